package server

import (
	"context"

	authapp "github.com/pawtrail/pawtrail/internal/services/auth/app"
	chatapp "github.com/pawtrail/pawtrail/internal/services/chat/app"
	notifstorage "github.com/pawtrail/pawtrail/internal/services/notifications/storage"
)

// tokenAuthenticator lets the chat socket server verify bearer tokens
// through the auth service.
type tokenAuthenticator struct {
	auth *authapp.Service
}

func (a tokenAuthenticator) Authenticate(ctx context.Context, token string) (chatapp.Identity, error) {
	user, err := a.auth.Authenticate(ctx, token)
	if err != nil {
		return chatapp.Identity{}, err
	}
	return chatapp.Identity{ID: user.ID, Name: user.FullName}, nil
}

// matchNotifier records match alerts as persistent notifications.
type matchNotifier struct {
	store notifstorage.NotificationStore
}

func (n matchNotifier) NotifyMatch(ctx context.Context, userID, matchID int64, message string) error {
	_, err := n.store.CreateNotification(ctx, notifstorage.Notification{
		UserID:  userID,
		MatchID: &matchID,
		Message: message,
	})
	return err
}
