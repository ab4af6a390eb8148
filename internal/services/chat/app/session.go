package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"strings"

	"golang.org/x/net/websocket"

	"github.com/pawtrail/pawtrail/internal/services/chat/storage"
)

// Identity is the authenticated user behind a websocket connection.
type Identity struct {
	ID   int64
	Name string
}

// Authenticator resolves a bearer token carried in the websocket URL
// into an identity. Implementations live in the auth service.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Identity, error)
}

// policyViolation is the close status sent for every pre-join failure:
// missing token, bad token, unknown conversation, non-participant.
// Clients only need to know the join was rejected, not why.
const policyViolation = 1008

// session is one authenticated websocket connection bound to a single
// conversation.
type session struct {
	srv      *Server
	conn     *websocket.Conn
	peer     *peer
	identity Identity
	conv     storage.Conversation
}

func (sess *session) run(ctx context.Context) {
	me := sess.identity.ID
	other := sess.conv.Other(me)

	sess.peer = newPeer(me, sess.conn)
	if prev := sess.srv.registry.register(sess.conv.ID, me, sess.peer); prev != nil {
		log.Printf("chat: replaced stale connection conversation=%d user=%d", sess.conv.ID, me)
	}
	defer sess.teardown(ctx)

	now := sess.srv.now()
	if err := sess.srv.presence.setOnline(ctx, me, true, now); err != nil {
		log.Printf("chat: persist online failed user=%d err=%v", me, err)
	}
	sess.srv.broadcast.announcePresence(ctx, me, typeUserOnline, now)

	// Everything addressed to this user in the conversation becomes read
	// the moment they join, and the sender gets a receipt per message.
	readIDs, err := sess.srv.messages.MarkConversationRead(ctx, sess.conv.ID, me)
	if err != nil {
		log.Printf("chat: mark conversation read on join failed conversation=%d user=%d err=%v", sess.conv.ID, me, err)
	}
	for _, msgID := range readIDs {
		sess.srv.broadcast.announceRead(sess.conv.ID, other, me, msgID)
	}

	// One-time snapshot of the other participant's presence so the
	// client can render their status without waiting for a transition.
	online, lastActive := sess.srv.presence.status(other)
	snapshot := presenceEvent{UserID: other, StatusType: typeUserOffline}
	if online {
		snapshot.StatusType = typeUserOnline
	}
	if !lastActive.IsZero() {
		snapshot.LastActiveAt = &lastActive
	}
	if err := sess.peer.send(snapshot); err != nil {
		log.Printf("chat: presence snapshot failed conversation=%d user=%d err=%v", sess.conv.ID, me, err)
	}
	if err := sess.peer.send(systemEvent{Type: "system", Message: "connected"}); err != nil {
		log.Printf("chat: connect ack failed conversation=%d user=%d err=%v", sess.conv.ID, me, err)
	}

	sess.readLoop(ctx)
}

// readLoop receives frames until the connection errors, the peer goes
// away, or the idle deadline passes. Malformed payloads are logged and
// skipped; they never terminate the session.
func (sess *session) readLoop(ctx context.Context) {
	me := sess.identity.ID
	for {
		if err := sess.conn.SetReadDeadline(sess.srv.now().Add(sess.srv.idleTimeout)); err != nil {
			log.Printf("chat: set read deadline failed conversation=%d user=%d err=%v", sess.conv.ID, me, err)
			return
		}
		var raw []byte
		if err := websocket.Message.Receive(sess.conn, &raw); err != nil {
			var netErr net.Error
			switch {
			case errors.Is(err, io.EOF):
			case errors.As(err, &netErr) && netErr.Timeout():
				log.Printf("chat: idle disconnect conversation=%d user=%d", sess.conv.ID, me)
			default:
				log.Printf("chat: receive failed conversation=%d user=%d err=%v", sess.conv.ID, me, err)
			}
			return
		}
		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			log.Printf("chat: malformed frame conversation=%d user=%d err=%v", sess.conv.ID, me, err)
			continue
		}
		if err := sess.srv.presence.touch(ctx, me, sess.srv.now()); err != nil {
			log.Printf("chat: touch activity failed user=%d err=%v", me, err)
		}
		sess.dispatch(ctx, frame)
	}
}

func (sess *session) dispatch(ctx context.Context, frame inboundFrame) {
	messageType := frame.MessageType
	// Older clients omit message_type on plain text frames.
	if messageType == "" && frame.Content != "" {
		messageType = typeText
	}
	switch messageType {
	case typeText:
		sess.handleText(ctx, frame.Content)
	case typeTypingStart:
		sess.srv.typing.start(sess.conv.ID, sess.identity.ID, sess.srv.now())
		sess.srv.broadcast.announceTyping(sess.conv.ID, sess.identity.ID, typeTypingStart)
	case typeTypingEnd:
		sess.srv.typing.stop(sess.conv.ID, sess.identity.ID)
		sess.srv.broadcast.announceTyping(sess.conv.ID, sess.identity.ID, typeTypingEnd)
	case typeMessageRead:
		sess.handleRead(ctx, frame.MessageID)
	case typeUserOnline, typeUserOffline:
		// Presence is derived from the connection itself; clients cannot
		// assert it.
	case "":
	default:
		log.Printf("chat: unknown message type %q conversation=%d user=%d", messageType, sess.conv.ID, sess.identity.ID)
	}
}

func (sess *session) handleText(ctx context.Context, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}
	me := sess.identity.ID
	msg, err := sess.srv.messages.AppendMessage(ctx, storage.Message{
		ConversationID: sess.conv.ID,
		SenderID:       me,
		RecipientID:    sess.conv.Other(me),
		Content:        content,
		CreatedAt:      sess.srv.now(),
	})
	if err != nil {
		log.Printf("chat: append message failed conversation=%d user=%d err=%v", sess.conv.ID, me, err)
		if err := sess.peer.send(errorEvent{Type: "error", Message: "message could not be saved"}); err != nil {
			log.Printf("chat: error frame failed conversation=%d user=%d err=%v", sess.conv.ID, me, err)
		}
		return
	}
	if err := sess.srv.conversations.TouchConversation(ctx, sess.conv.ID, msg.CreatedAt); err != nil {
		log.Printf("chat: touch conversation failed conversation=%d err=%v", sess.conv.ID, err)
	}
	sess.srv.typing.stop(sess.conv.ID, me)
	sess.srv.broadcast.deliverMessage(ctx, sess.conv, msg, sess.identity.Name)
}

func (sess *session) handleRead(ctx context.Context, messageID int64) {
	me := sess.identity.ID
	if messageID == 0 {
		log.Printf("chat: read receipt without message id conversation=%d user=%d", sess.conv.ID, me)
		return
	}
	msg, err := sess.srv.messages.GetMessage(ctx, sess.conv.ID, messageID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("chat: load message for read receipt failed conversation=%d message=%d err=%v", sess.conv.ID, messageID, err)
		}
		return
	}
	if msg.RecipientID != me {
		return
	}
	changed, err := sess.srv.messages.MarkMessageRead(ctx, sess.conv.ID, messageID)
	if err != nil {
		log.Printf("chat: mark message read failed conversation=%d message=%d err=%v", sess.conv.ID, messageID, err)
		return
	}
	if changed {
		sess.srv.broadcast.announceRead(sess.conv.ID, msg.SenderID, me, messageID)
	}
}

// teardown reverses the join sequence. Every step runs even when an
// earlier one fails; a broken store must not leak registry entries.
func (sess *session) teardown(ctx context.Context) {
	me := sess.identity.ID
	now := sess.srv.now()
	if err := sess.srv.presence.setOnline(ctx, me, false, now); err != nil {
		log.Printf("chat: persist offline failed user=%d err=%v", me, err)
	}
	sess.srv.broadcast.announcePresence(ctx, me, typeUserOffline, now)
	sess.srv.typing.stop(sess.conv.ID, me)
	sess.srv.registry.unregister(sess.conv.ID, me, sess.peer)
}
