package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	apperrors "github.com/pawtrail/pawtrail/internal/platform/errors"
)

// errorBody is the JSON error envelope returned on every failed request.
type errorBody struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

// writeError maps a domain error to its HTTP status and JSON envelope.
// Errors without a domain code are logged and reported as internal.
func writeError(w http.ResponseWriter, err error) {
	var domainErr *apperrors.Error
	if !errors.As(err, &domainErr) {
		log.Printf("api: internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Code:    string(apperrors.CodeInternal),
			Message: "internal error",
		})
		return
	}
	writeJSON(w, domainErr.Code.HTTPStatus(), errorBody{
		Code:     string(domainErr.Code),
		Message:  domainErr.Message,
		Metadata: domainErr.Metadata,
	})
}

// decodeJSON reads a JSON request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidArgument, "malformed request body", err)
	}
	return nil
}

// pathID parses the named path segment as a positive integer id.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("invalid %s %q", name, raw))
	}
	return id, nil
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("invalid %s %q", name, raw))
	}
	return n, nil
}
