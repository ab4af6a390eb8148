package api

import (
	"net/http"
	"strings"

	apperrors "github.com/pawtrail/pawtrail/internal/platform/errors"
	"github.com/pawtrail/pawtrail/internal/platform/requestctx"
)

// requireAuth verifies the bearer token and stores the caller's user id in
// the request context before invoking next.
func (h *handlers) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, apperrors.New(apperrors.CodeAuthTokenInvalid, "missing bearer token"))
			return
		}
		user, err := h.auth.Authenticate(r.Context(), token)
		if err != nil {
			writeError(w, err)
			return
		}
		ctx := requestctx.WithUserID(r.Context(), user.ID)
		next(w, r.WithContext(ctx))
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// callerID returns the authenticated user id placed by requireAuth.
func callerID(r *http.Request) (int64, error) {
	id, ok := requestctx.UserIDFromContext(r.Context())
	if !ok {
		return 0, apperrors.New(apperrors.CodeAuthTokenInvalid, "request is not authenticated")
	}
	return id, nil
}
