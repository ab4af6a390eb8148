package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pawtrail/pawtrail/internal/services/chat/storage"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestCreateConversationIdempotentPerPair(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	petID := int64(7)
	first, err := store.CreateConversation(context.Background(), 1, 2, &petID)
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	// Same pair in reverse order resolves to the same conversation.
	second, err := store.CreateConversation(context.Background(), 2, 1, &petID)
	if err != nil {
		t.Fatalf("create conversation again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same conversation, got %d and %d", first.ID, second.ID)
	}

	// A different pet anchor is a different conversation.
	otherPet := int64(9)
	third, err := store.CreateConversation(context.Background(), 1, 2, &otherPet)
	if err != nil {
		t.Fatalf("create conversation with other pet: %v", err)
	}
	if third.ID == first.ID {
		t.Fatal("expected distinct conversation for different pet")
	}
}

func TestCreateConversationRejectsSelfChat(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if _, err := store.CreateConversation(context.Background(), 5, 5, nil); err == nil {
		t.Fatal("expected self chat to be rejected")
	}
}

func TestAppendAndListMessages(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	conversation, err := store.CreateConversation(context.Background(), 1, 2, nil)
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}

	base := time.Date(2026, time.May, 2, 9, 0, 0, 0, time.UTC)
	for i, body := range []string{"hi", "hello", "any news?"} {
		_, err := store.AppendMessage(context.Background(), storage.Message{
			ConversationID: conversation.ID,
			SenderID:       1,
			RecipientID:    2,
			Content:        body,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("append message %d: %v", i, err)
		}
	}

	messages, err := store.ListMessages(context.Background(), conversation.ID, 0, 2)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Content != "any news?" {
		t.Fatalf("expected newest first, got %q", messages[0].Content)
	}

	rest, err := store.ListMessages(context.Background(), conversation.ID, 2, 2)
	if err != nil {
		t.Fatalf("list messages offset: %v", err)
	}
	if len(rest) != 1 || rest[0].Content != "hi" {
		t.Fatalf("expected oldest message in last page, got %+v", rest)
	}
}

func TestAppendMessageRejectsEmptyContent(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	conversation, err := store.CreateConversation(context.Background(), 1, 2, nil)
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	_, err = store.AppendMessage(context.Background(), storage.Message{
		ConversationID: conversation.ID,
		SenderID:       1,
		RecipientID:    2,
		Content:        "   ",
	})
	if err == nil {
		t.Fatal("expected empty content error")
	}
}

func TestMarkMessageReadOnce(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	conversation, err := store.CreateConversation(context.Background(), 1, 2, nil)
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	msg, err := store.AppendMessage(context.Background(), storage.Message{
		ConversationID: conversation.ID,
		SenderID:       1,
		RecipientID:    2,
		Content:        "look at this",
	})
	if err != nil {
		t.Fatalf("append message: %v", err)
	}

	marked, err := store.MarkMessageRead(context.Background(), conversation.ID, msg.ID)
	if err != nil {
		t.Fatalf("mark message read: %v", err)
	}
	if !marked {
		t.Fatal("expected first mark to report newly read")
	}

	marked, err = store.MarkMessageRead(context.Background(), conversation.ID, msg.ID)
	if err != nil {
		t.Fatalf("mark message read again: %v", err)
	}
	if marked {
		t.Fatal("expected second mark to be a no-op")
	}

	if _, err := store.MarkMessageRead(context.Background(), conversation.ID, 9999); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found for missing message, got %v", err)
	}
}

func TestMarkConversationRead(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	conversation, err := store.CreateConversation(context.Background(), 1, 2, nil)
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}

	var lastID int64
	for i := 0; i < 3; i++ {
		msg, err := store.AppendMessage(context.Background(), storage.Message{
			ConversationID: conversation.ID,
			SenderID:       1,
			RecipientID:    2,
			Content:        "unread",
		})
		if err != nil {
			t.Fatalf("append message: %v", err)
		}
		lastID = msg.ID
	}
	// A message addressed to the other side must not be touched.
	if _, err := store.AppendMessage(context.Background(), storage.Message{
		ConversationID: conversation.ID,
		SenderID:       2,
		RecipientID:    1,
		Content:        "reply",
	}); err != nil {
		t.Fatalf("append reply: %v", err)
	}

	ids, err := store.MarkConversationRead(context.Background(), conversation.ID, 2)
	if err != nil {
		t.Fatalf("mark conversation read: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 newly-read ids, got %d", len(ids))
	}
	if ids[len(ids)-1] != lastID {
		t.Fatalf("expected creation order, last id %d, got %d", lastID, ids[len(ids)-1])
	}

	unread, err := store.CountUnread(context.Background(), conversation.ID, 2)
	if err != nil {
		t.Fatalf("count unread: %v", err)
	}
	if unread != 0 {
		t.Fatalf("expected 0 unread, got %d", unread)
	}
	unread, err = store.CountUnread(context.Background(), conversation.ID, 1)
	if err != nil {
		t.Fatalf("count unread for user 1: %v", err)
	}
	if unread != 1 {
		t.Fatalf("expected reply to stay unread, got %d", unread)
	}

	again, err := store.MarkConversationRead(context.Background(), conversation.ID, 2)
	if err != nil {
		t.Fatalf("mark conversation read again: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected no newly-read ids, got %d", len(again))
	}
}

func TestTouchConversationMonotonic(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	conversation, err := store.CreateConversation(context.Background(), 1, 2, nil)
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}

	future := conversation.UpdatedAt.Add(time.Hour)
	if err := store.TouchConversation(context.Background(), conversation.ID, future); err != nil {
		t.Fatalf("touch conversation: %v", err)
	}
	got, err := store.GetConversation(context.Background(), conversation.ID)
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	if !got.UpdatedAt.Equal(future) {
		t.Fatalf("expected updated_at %v, got %v", future, got.UpdatedAt)
	}

	// Touching with an earlier timestamp never moves updated_at backwards.
	if err := store.TouchConversation(context.Background(), conversation.ID, future.Add(-time.Minute)); err != nil {
		t.Fatalf("touch conversation with earlier time: %v", err)
	}
	got, err = store.GetConversation(context.Background(), conversation.ID)
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	if !got.UpdatedAt.Equal(future) {
		t.Fatalf("expected updated_at to stay %v, got %v", future, got.UpdatedAt)
	}
}

func TestListConversationsByUser(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	first, err := store.CreateConversation(context.Background(), 1, 2, nil)
	if err != nil {
		t.Fatalf("create first conversation: %v", err)
	}
	second, err := store.CreateConversation(context.Background(), 1, 3, nil)
	if err != nil {
		t.Fatalf("create second conversation: %v", err)
	}

	if _, err := store.AppendMessage(context.Background(), storage.Message{
		ConversationID: first.ID,
		SenderID:       2,
		RecipientID:    1,
		Content:        "found your cat?",
	}); err != nil {
		t.Fatalf("append message: %v", err)
	}
	if err := store.TouchConversation(context.Background(), first.ID, time.Now().UTC().Add(time.Minute)); err != nil {
		t.Fatalf("touch conversation: %v", err)
	}

	summaries, err := store.ListConversationsByUser(context.Background(), 1)
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(summaries))
	}
	if summaries[0].Conversation.ID != first.ID {
		t.Fatalf("expected most recently updated first, got %d", summaries[0].Conversation.ID)
	}
	if summaries[0].LastMessage == nil || summaries[0].LastMessage.Content != "found your cat?" {
		t.Fatalf("expected last message, got %+v", summaries[0].LastMessage)
	}
	if summaries[0].UnreadCount != 1 {
		t.Fatalf("expected 1 unread, got %d", summaries[0].UnreadCount)
	}
	if summaries[1].Conversation.ID != second.ID {
		t.Fatalf("expected second conversation, got %d", summaries[1].Conversation.ID)
	}

	if err := store.DeleteConversation(context.Background(), first.ID); err != nil {
		t.Fatalf("delete conversation: %v", err)
	}
	if _, err := store.GetConversation(context.Background(), first.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
