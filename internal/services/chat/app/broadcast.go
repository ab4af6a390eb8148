package server

import (
	"context"
	"log"
	"time"

	"github.com/pawtrail/pawtrail/internal/services/chat/storage"
)

// broadcaster fans events out to live peers. Send failures are logged
// per recipient and never abort the fan-out; a slow or broken socket
// must not block delivery to everyone else.
type broadcaster struct {
	registry      *registry
	conversations storage.ConversationStore
	messages      storage.MessageStore
}

// deliverMessage sends msg to every live participant of the
// conversation, including the sender's own connection. For recipients
// other than the sender the persisted read flag is flipped before the
// frame goes out, so a reconnecting client sees consistent state.
func (b *broadcaster) deliverMessage(ctx context.Context, conv storage.Conversation, msg storage.Message, senderName string) {
	event := messageEvent{
		MessageID:      msg.ID,
		Content:        msg.Content,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		RecipientID:    msg.RecipientID,
		IsRead:         false,
		CreatedAt:      msg.CreatedAt,
		SenderName:     senderName,
		Type:           typeText,
	}
	for userID, p := range b.registry.conversation(conv.ID) {
		if userID != msg.SenderID {
			if _, err := b.messages.MarkMessageRead(ctx, conv.ID, msg.ID); err != nil {
				log.Printf("chat: mark message read on delivery failed conversation=%d message=%d user=%d err=%v", conv.ID, msg.ID, userID, err)
			}
		}
		if err := p.send(event); err != nil {
			log.Printf("chat: deliver message failed conversation=%d message=%d user=%d err=%v", conv.ID, msg.ID, userID, err)
		}
	}
}

// announcePresence tells every user who shares a conversation with
// userID that they went online or offline. Each recipient is notified
// at most once even when several conversations are shared.
func (b *broadcaster) announcePresence(ctx context.Context, userID int64, statusType string, lastActiveAt time.Time) {
	convs, err := b.conversations.ListConversationsByUser(ctx, userID)
	if err != nil {
		log.Printf("chat: list conversations for presence failed user=%d err=%v", userID, err)
		return
	}
	event := presenceEvent{UserID: userID, StatusType: statusType, LastActiveAt: &lastActiveAt}
	notified := make(map[int64]bool)
	for _, sum := range convs {
		other := sum.Conversation.Other(userID)
		if notified[other] {
			continue
		}
		p := b.registry.get(sum.Conversation.ID, other)
		if p == nil {
			continue
		}
		notified[other] = true
		if err := p.send(event); err != nil {
			log.Printf("chat: presence broadcast failed user=%d to=%d err=%v", userID, other, err)
		}
	}
}

// announceTyping sends a typing transition to the other live
// participants of the conversation.
func (b *broadcaster) announceTyping(conversationID, fromUserID int64, statusType string) {
	event := typingEvent{UserID: fromUserID, StatusType: statusType}
	for userID, p := range b.registry.conversation(conversationID) {
		if userID == fromUserID {
			continue
		}
		if err := p.send(event); err != nil {
			log.Printf("chat: typing broadcast failed conversation=%d from=%d to=%d err=%v", conversationID, fromUserID, userID, err)
		}
	}
}

// announceRead tells the original sender that readerID read messageID,
// if the sender currently holds a live connection in the conversation.
func (b *broadcaster) announceRead(conversationID, senderID, readerID, messageID int64) {
	p := b.registry.get(conversationID, senderID)
	if p == nil {
		return
	}
	event := readEvent{UserID: readerID, StatusType: typeMessageRead, MessageID: messageID}
	if err := p.send(event); err != nil {
		log.Printf("chat: read receipt failed conversation=%d message=%d to=%d err=%v", conversationID, messageID, senderID, err)
	}
}
