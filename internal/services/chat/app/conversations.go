package server

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/pawtrail/pawtrail/internal/platform/errors"
	"github.com/pawtrail/pawtrail/internal/services/chat/storage"
)

// Conversations exposes the inbox side of chat: creating, listing, and
// reading conversations over plain request/response calls. The live
// socket sessions are handled by Server.
type Conversations struct {
	conversations storage.ConversationStore
	messages      storage.MessageStore
}

// NewConversations builds the conversation service over its stores.
func NewConversations(conversations storage.ConversationStore, messages storage.MessageStore) (*Conversations, error) {
	if conversations == nil {
		return nil, errors.New("conversation store is required")
	}
	if messages == nil {
		return nil, errors.New("message store is required")
	}
	return &Conversations{conversations: conversations, messages: messages}, nil
}

// Create opens a conversation between userID and otherID, optionally anchored
// to a pet listing. An existing conversation for the same pair and anchor is
// returned instead of a duplicate.
func (c *Conversations) Create(ctx context.Context, userID, otherID int64, petID *int64) (storage.Conversation, error) {
	if otherID <= 0 {
		return storage.Conversation{}, apperrors.New(apperrors.CodeInvalidArgument, "recipient user id is required")
	}
	if userID == otherID {
		return storage.Conversation{}, apperrors.New(apperrors.CodeConversationSelfChat, "cannot start a conversation with yourself")
	}
	conv, err := c.conversations.CreateConversation(ctx, userID, otherID, petID)
	if err != nil {
		return storage.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// List returns the user's inbox summaries, most recently updated first.
func (c *Conversations) List(ctx context.Context, userID int64) ([]storage.ConversationSummary, error) {
	return c.conversations.ListConversationsByUser(ctx, userID)
}

// Get returns one conversation the user participates in.
func (c *Conversations) Get(ctx context.Context, userID, conversationID int64) (storage.Conversation, error) {
	return c.participantConversation(ctx, userID, conversationID)
}

// Delete removes a conversation and its messages.
func (c *Conversations) Delete(ctx context.Context, userID, conversationID int64) error {
	if _, err := c.participantConversation(ctx, userID, conversationID); err != nil {
		return err
	}
	if err := c.conversations.DeleteConversation(ctx, conversationID); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

// Messages returns a page of the conversation's messages, newest first.
// Fetching a page marks every message addressed to the reader as read.
func (c *Conversations) Messages(ctx context.Context, userID, conversationID int64, offset, limit int) ([]storage.Message, error) {
	if _, err := c.participantConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	if _, err := c.messages.MarkConversationRead(ctx, conversationID, userID); err != nil {
		return nil, fmt.Errorf("mark conversation read: %w", err)
	}
	msgs, err := c.messages.ListMessages(ctx, conversationID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

func (c *Conversations) participantConversation(ctx context.Context, userID, conversationID int64) (storage.Conversation, error) {
	conv, err := c.conversations.GetConversation(ctx, conversationID)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Conversation{}, apperrors.New(apperrors.CodeConversationNotFound, "conversation not found")
	}
	if err != nil {
		return storage.Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	if !conv.Participant(userID) {
		return storage.Conversation{}, apperrors.New(apperrors.CodeConversationNotParticipant, "not a conversation participant")
	}
	return conv, nil
}
