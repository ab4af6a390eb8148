package api

import (
	"errors"
	"net/http"

	apperrors "github.com/pawtrail/pawtrail/internal/platform/errors"
	usersstorage "github.com/pawtrail/pawtrail/internal/services/users/storage"
)

func (h *handlers) handleListConversations(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	summaries, err := h.conversations.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]conversationSummaryJSON, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, toConversationSummaryJSON(s))
	}
	writeJSON(w, http.StatusOK, out)
}

type createConversationRequest struct {
	UserID int64  `json:"user_id"`
	PetID  *int64 `json:"pet_id"`
}

func (h *handlers) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req createConversationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.users.GetUserByID(r.Context(), req.UserID); err != nil {
		if errors.Is(err, usersstorage.ErrNotFound) {
			writeError(w, apperrors.New(apperrors.CodeUserNotFound, "user not found"))
			return
		}
		writeError(w, err)
		return
	}
	conv, err := h.conversations.Create(r.Context(), userID, req.UserID, req.PetID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toConversationJSON(conv))
}

func (h *handlers) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	conversationID, err := pathID(r, "conversationID")
	if err != nil {
		writeError(w, err)
		return
	}
	conv, err := h.conversations.Get(r.Context(), userID, conversationID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toConversationJSON(conv))
}

func (h *handlers) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	conversationID, err := pathID(r, "conversationID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.conversations.Delete(r.Context(), userID, conversationID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

const defaultMessagePageSize = 50

func (h *handlers) handleListMessages(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	conversationID, err := pathID(r, "conversationID")
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := queryInt(r, "limit", defaultMessagePageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	messages, err := h.conversations.Messages(r.Context(), userID, conversationID, offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]messageJSON, 0, len(messages))
	for _, m := range messages {
		out = append(out, toMessageJSON(m))
	}
	writeJSON(w, http.StatusOK, out)
}
