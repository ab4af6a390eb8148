package api

import (
	"errors"
	"net/http"

	apperrors "github.com/pawtrail/pawtrail/internal/platform/errors"
	notifstorage "github.com/pawtrail/pawtrail/internal/services/notifications/storage"
)

func (h *handlers) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	filter := notifstorage.ListFilter{
		UnreadOnly: r.URL.Query().Get("unread") == "true",
		Offset:     offset,
		Limit:      limit,
	}
	notifications, err := h.notifications.ListNotificationsByUser(r.Context(), userID, filter)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]notificationJSON, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, toNotificationJSON(n))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) handleUnreadNotificationCount(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	count, err := h.notifications.CountUnreadNotifications(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": count})
}

func (h *handlers) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	notificationID, err := pathID(r, "notificationID")
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.notifications.MarkNotificationRead(r.Context(), notificationID, userID); err != nil {
		if errors.Is(err, notifstorage.ErrNotFound) {
			writeError(w, apperrors.New(apperrors.CodeNotificationNotFound, "notification not found"))
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

func (h *handlers) handleMarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	marked, err := h.notifications.MarkAllNotificationsRead(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"marked": marked})
}
