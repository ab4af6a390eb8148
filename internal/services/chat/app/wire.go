package server

import "time"

// Inbound and outbound message types shared with clients. The values
// mirror what mobile and web clients already send, so they are part of
// the wire contract.
const (
	typeText        = "text"
	typeTypingStart = "typing_started"
	typeTypingEnd   = "typing_ended"
	typeUserOnline  = "user_online"
	typeUserOffline = "user_offline"
	typeMessageRead = "message_read"
)

// inboundFrame is the envelope clients send over the socket. A frame
// with content but no message_type is treated as text; this leniency is
// deliberate and load-bearing for older clients.
type inboundFrame struct {
	MessageType string `json:"message_type"`
	Content     string `json:"content"`
	MessageID   int64  `json:"message_id"`
}

// messageEvent is fanned out to every live participant when a chat
// message is delivered.
type messageEvent struct {
	MessageID      int64     `json:"message_id"`
	Content        string    `json:"content"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	RecipientID    int64     `json:"recipient_id"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
	SenderName     string    `json:"sender_name"`
	Type           string    `json:"type"`
}

// presenceEvent announces an online or offline transition.
type presenceEvent struct {
	UserID       int64      `json:"user_id"`
	StatusType   string     `json:"status_type"`
	LastActiveAt *time.Time `json:"last_active_at"`
}

// typingEvent announces a typing start or stop.
type typingEvent struct {
	UserID     int64  `json:"user_id"`
	StatusType string `json:"status_type"`
}

// readEvent tells a sender one of their messages was read.
type readEvent struct {
	UserID     int64  `json:"user_id"`
	StatusType string `json:"status_type"`
	MessageID  int64  `json:"message_id"`
}

// errorEvent reports a recoverable failure without closing the socket.
type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// systemEvent carries connection lifecycle notices.
type systemEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
