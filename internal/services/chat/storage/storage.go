// Package storage defines persistence contracts for conversations and
// chat messages. The real-time session layer consumes these interfaces and
// never touches SQL directly.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested conversation or message is missing.
var ErrNotFound = errors.New("record not found")

// Conversation stores one two-party chat context, optionally anchored to a
// pet listing.
type Conversation struct {
	ID        int64
	User1ID   int64
	User2ID   int64
	PetID     *int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Participant reports whether userID is one of the conversation's two parties.
func (c Conversation) Participant(userID int64) bool {
	return userID == c.User1ID || userID == c.User2ID
}

// Other returns the participant on the opposite side from userID.
func (c Conversation) Other(userID int64) int64 {
	if userID == c.User1ID {
		return c.User2ID
	}
	return c.User1ID
}

// Message stores one chat message. RecipientID is denormalized to the "other"
// participant at send time; once IsRead is true it never reverts.
type Message struct {
	ID             int64
	ConversationID int64
	SenderID       int64
	RecipientID    int64
	Content        string
	IsRead         bool
	CreatedAt      time.Time
}

// ConversationSummary is one row of the conversation inbox listing.
type ConversationSummary struct {
	Conversation Conversation
	LastMessage  *Message
	UnreadCount  int
}

// ConversationStore persists two-party conversations.
type ConversationStore interface {
	// CreateConversation returns the existing conversation when one already
	// exists for the same user pair and pet anchor, in either direction.
	CreateConversation(ctx context.Context, user1ID, user2ID int64, petID *int64) (Conversation, error)
	GetConversation(ctx context.Context, id int64) (Conversation, error)
	// ListConversationsByUser returns inbox summaries ordered by most
	// recently updated first.
	ListConversationsByUser(ctx context.Context, userID int64) ([]ConversationSummary, error)
	// TouchConversation advances updated_at; it never moves it backwards.
	TouchConversation(ctx context.Context, id int64, at time.Time) error
	DeleteConversation(ctx context.Context, id int64) error
}

// MessageStore persists chat messages.
type MessageStore interface {
	AppendMessage(ctx context.Context, msg Message) (Message, error)
	GetMessage(ctx context.Context, conversationID, messageID int64) (Message, error)
	// MarkMessageRead flips is_read and reports whether the message was
	// newly marked (false when already read). Missing messages return
	// ErrNotFound.
	MarkMessageRead(ctx context.Context, conversationID, messageID int64) (bool, error)
	// MarkConversationRead marks every unread message addressed to
	// recipientID in the conversation and returns the newly-read message ids.
	MarkConversationRead(ctx context.Context, conversationID, recipientID int64) ([]int64, error)
	// ListMessages returns messages newest-first with offset pagination.
	ListMessages(ctx context.Context, conversationID int64, offset, limit int) ([]Message, error)
	CountUnread(ctx context.Context, conversationID, recipientID int64) (int, error)
}
