package server

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/net/websocket"

	"github.com/pawtrail/pawtrail/internal/platform/timeouts"
	"github.com/pawtrail/pawtrail/internal/services/chat/storage"
)

// Config carries the dependencies for the chat websocket server.
type Config struct {
	Auth          Authenticator
	Users         StatusStore
	Conversations storage.ConversationStore
	Messages      storage.MessageStore

	// IdleTimeout defaults to timeouts.ChatIdle, TypingTTL to
	// timeouts.TypingTTL. Now defaults to time.Now and exists for tests.
	IdleTimeout time.Duration
	TypingTTL   time.Duration
	Now         func() time.Time
}

// Server owns the live connection state for the chat service: who is
// connected, who is online, who is typing. All of it is per-process;
// durable chat state lives in the stores.
type Server struct {
	auth          Authenticator
	conversations storage.ConversationStore
	messages      storage.MessageStore

	registry  *registry
	presence  *presence
	typing    *typingTracker
	broadcast *broadcaster

	idleTimeout time.Duration
	now         func() time.Time
}

// New validates cfg and assembles a Server.
func New(cfg Config) (*Server, error) {
	if cfg.Auth == nil {
		return nil, fmt.Errorf("chat server: authenticator is required")
	}
	if cfg.Users == nil {
		return nil, fmt.Errorf("chat server: status store is required")
	}
	if cfg.Conversations == nil {
		return nil, fmt.Errorf("chat server: conversation store is required")
	}
	if cfg.Messages == nil {
		return nil, fmt.Errorf("chat server: message store is required")
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = timeouts.ChatIdle
	}
	if cfg.TypingTTL <= 0 {
		cfg.TypingTTL = timeouts.TypingTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	srv := &Server{
		auth:          cfg.Auth,
		conversations: cfg.Conversations,
		messages:      cfg.Messages,
		registry:      newRegistry(),
		presence:      newPresence(cfg.Users),
		typing:        newTypingTracker(cfg.TypingTTL),
		idleTimeout:   cfg.IdleTimeout,
		now:           cfg.Now,
	}
	srv.broadcast = &broadcaster{
		registry:      srv.registry,
		conversations: cfg.Conversations,
		messages:      cfg.Messages,
	}
	return srv, nil
}

// Handler returns the websocket endpoint. The conversation id rides in
// the path and the auth token in the token query parameter, since
// browser websocket clients cannot set headers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /ws/{conversationID}", websocket.Handler(s.serveWS))
	return mux
}

// serveWS authenticates the upgraded connection and hands it to a
// session. Every pre-join failure closes with the same policy
// violation status.
func (s *Server) serveWS(ws *websocket.Conn) {
	req := ws.Request()
	ctx := req.Context()

	conversationID, err := strconv.ParseInt(req.PathValue("conversationID"), 10, 64)
	if err != nil {
		log.Printf("chat: invalid conversation id %q remote=%s", req.PathValue("conversationID"), req.RemoteAddr)
		s.reject(ws)
		return
	}
	token := req.URL.Query().Get("token")
	if token == "" {
		log.Printf("chat: missing token conversation=%d remote=%s", conversationID, req.RemoteAddr)
		s.reject(ws)
		return
	}
	identity, err := s.auth.Authenticate(ctx, token)
	if err != nil {
		log.Printf("chat: authentication failed conversation=%d remote=%s err=%v", conversationID, req.RemoteAddr, err)
		s.reject(ws)
		return
	}
	conv, err := s.conversations.GetConversation(ctx, conversationID)
	if err != nil {
		log.Printf("chat: conversation lookup failed conversation=%d user=%d err=%v", conversationID, identity.ID, err)
		s.reject(ws)
		return
	}
	if !conv.Participant(identity.ID) {
		log.Printf("chat: user is not a participant conversation=%d user=%d", conversationID, identity.ID)
		s.reject(ws)
		return
	}

	sess := &session{srv: s, conn: ws, identity: identity, conv: conv}
	sess.run(ctx)
}

func (s *Server) reject(ws *websocket.Conn) {
	if err := ws.WriteClose(policyViolation); err != nil {
		log.Printf("chat: write close failed err=%v", err)
	}
}
