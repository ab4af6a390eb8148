package api

import (
	"errors"
	"net/http"

	apperrors "github.com/pawtrail/pawtrail/internal/platform/errors"
	usersstorage "github.com/pawtrail/pawtrail/internal/services/users/storage"
)

func (h *handlers) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	user, err := h.users.GetUserByID(r.Context(), userID)
	if errors.Is(err, usersstorage.ErrNotFound) {
		writeError(w, apperrors.New(apperrors.CodeUserNotFound, "user not found"))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserJSON(user))
}

type updateProfileRequest struct {
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
}

func (h *handlers) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	current, err := h.users.GetUserByID(r.Context(), userID)
	if errors.Is(err, usersstorage.ErrNotFound) {
		writeError(w, apperrors.New(apperrors.CodeUserNotFound, "user not found"))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	// Absent fields keep their current value.
	fullName := current.FullName
	if req.FullName != nil {
		fullName = *req.FullName
	}
	phone := current.Phone
	if req.Phone != nil {
		phone = *req.Phone
	}
	updated, err := h.users.UpdateUserProfile(r.Context(), userID, fullName, phone)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserJSON(updated))
}
