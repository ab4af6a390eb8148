// Package api hosts the JSON HTTP surface of the backend: account and
// session endpoints, the pet registry, conversation inboxes,
// notifications, and the websocket mount for live chat.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pawtrail/pawtrail/internal/platform/timeouts"
	authapp "github.com/pawtrail/pawtrail/internal/services/auth/app"
	chatapp "github.com/pawtrail/pawtrail/internal/services/chat/app"
	notifstorage "github.com/pawtrail/pawtrail/internal/services/notifications/storage"
	petsapp "github.com/pawtrail/pawtrail/internal/services/pets/app"
	usersstorage "github.com/pawtrail/pawtrail/internal/services/users/storage"
)

// Config defines startup inputs for the api service.
type Config struct {
	HTTPAddr string

	Auth          *authapp.Service
	Users         usersstorage.UserStore
	Pets          *petsapp.Service
	Conversations *chatapp.Conversations
	Notifications notifstorage.NotificationStore

	// ChatHandler serves the websocket endpoints. It carries its own
	// token authentication, so it mounts outside the bearer middleware.
	ChatHandler http.Handler
}

func (c Config) validate() error {
	if c.Auth == nil {
		return errors.New("auth service is required")
	}
	if c.Users == nil {
		return errors.New("user store is required")
	}
	if c.Pets == nil {
		return errors.New("pets service is required")
	}
	if c.Conversations == nil {
		return errors.New("conversations service is required")
	}
	if c.Notifications == nil {
		return errors.New("notification store is required")
	}
	return nil
}

// Server hosts the api HTTP surface and lifecycle.
type Server struct {
	httpAddr   string
	httpServer *http.Server
}

// handlers groups the service dependencies behind the route handlers.
type handlers struct {
	auth          *authapp.Service
	users         usersstorage.UserStore
	pets          *petsapp.Service
	conversations *chatapp.Conversations
	notifications notifstorage.NotificationStore
}

// NewHandler builds the routed handler tree from cfg.
func NewHandler(cfg Config) (http.Handler, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	h := &handlers{
		auth:          cfg.Auth,
		users:         cfg.Users,
		pets:          cfg.Pets,
		conversations: cfg.Conversations,
		notifications: cfg.Notifications,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.handleHealth)

	mux.HandleFunc("POST /api/v1/auth/register", h.handleRegister)
	mux.HandleFunc("POST /api/v1/auth/login", h.handleLogin)
	mux.HandleFunc("POST /api/v1/auth/verify", h.handleVerifyEmail)
	mux.HandleFunc("POST /api/v1/auth/resend", h.handleResendCode)

	authed := h.requireAuth
	mux.HandleFunc("GET /api/v1/users/me", authed(h.handleCurrentUser))
	mux.HandleFunc("PATCH /api/v1/users/me", authed(h.handleUpdateProfile))

	mux.HandleFunc("POST /api/v1/pets", authed(h.handleCreatePet))
	mux.HandleFunc("GET /api/v1/pets", authed(h.handleListPets))
	mux.HandleFunc("GET /api/v1/pets/{petID}", authed(h.handleGetPet))
	mux.HandleFunc("PUT /api/v1/pets/{petID}", authed(h.handleUpdatePet))
	mux.HandleFunc("DELETE /api/v1/pets/{petID}", authed(h.handleDeletePet))
	mux.HandleFunc("POST /api/v1/pets/{petID}/photos", authed(h.handleAddPhotos))
	mux.HandleFunc("GET /api/v1/pets/{petID}/matches", authed(h.handleListMatches))
	mux.HandleFunc("POST /api/v1/pets/{petID}/matches", authed(h.handleFindMatches))

	mux.HandleFunc("GET /api/v1/chats", authed(h.handleListConversations))
	mux.HandleFunc("POST /api/v1/chats", authed(h.handleCreateConversation))
	mux.HandleFunc("GET /api/v1/chats/{conversationID}", authed(h.handleGetConversation))
	mux.HandleFunc("DELETE /api/v1/chats/{conversationID}", authed(h.handleDeleteConversation))
	mux.HandleFunc("GET /api/v1/chats/{conversationID}/messages", authed(h.handleListMessages))

	mux.HandleFunc("GET /api/v1/notifications", authed(h.handleListNotifications))
	mux.HandleFunc("GET /api/v1/notifications/unread-count", authed(h.handleUnreadNotificationCount))
	mux.HandleFunc("POST /api/v1/notifications/{notificationID}/read", authed(h.handleMarkNotificationRead))
	mux.HandleFunc("POST /api/v1/notifications/read-all", authed(h.handleMarkAllNotificationsRead))

	if cfg.ChatHandler != nil {
		mux.Handle("/ws/", cfg.ChatHandler)
	}
	return mux, nil
}

// NewServer validates config and constructs an api server.
func NewServer(cfg Config) (*Server, error) {
	httpAddr := strings.TrimSpace(cfg.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	handler, err := NewHandler(cfg)
	if err != nil {
		return nil, fmt.Errorf("compose api handler: %w", err)
	}
	return &Server{
		httpAddr: httpAddr,
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           handler,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
	}, nil
}

// ListenAndServe serves HTTP traffic until context cancellation or server stop.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("api server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown api http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve api http: %w", err)
	}
}

// Close closes open server resources.
func (s *Server) Close() {
	if s == nil || s.httpServer == nil {
		return
	}
	_ = s.httpServer.Close()
}

func (h *handlers) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
