// Package storage defines persistence contracts for user notifications.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested notification is missing.
var ErrNotFound = errors.New("record not found")

// Notification stores one inbox item. MatchID links match alerts back to
// the similarity match that produced them.
type Notification struct {
	ID        int64
	UserID    int64
	MatchID   *int64
	Message   string
	IsRead    bool
	CreatedAt time.Time
}

// ListFilter narrows notification listings.
type ListFilter struct {
	UnreadOnly bool
	Offset     int
	Limit      int
}

// NotificationStore persists notification inbox items.
type NotificationStore interface {
	CreateNotification(ctx context.Context, notification Notification) (Notification, error)
	GetNotification(ctx context.Context, id int64) (Notification, error)
	// ListNotificationsByUser returns inbox items newest-first.
	ListNotificationsByUser(ctx context.Context, userID int64, filter ListFilter) ([]Notification, error)
	// MarkNotificationRead flips is_read and reports whether the item was
	// newly marked.
	MarkNotificationRead(ctx context.Context, id, userID int64) (bool, error)
	// MarkAllNotificationsRead returns the number of items newly marked.
	MarkAllNotificationsRead(ctx context.Context, userID int64) (int, error)
	CountUnreadNotifications(ctx context.Context, userID int64) (int, error)
}
