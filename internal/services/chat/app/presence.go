package server

import (
	"context"
	"sync"
	"time"
)

// StatusStore persists user online state and activity timestamps.
type StatusStore interface {
	SetUserOnline(ctx context.Context, userID int64, online bool, at time.Time) error
	TouchUserActivity(ctx context.Context, userID int64, at time.Time) error
}

type presenceEntry struct {
	online       bool
	lastActiveAt time.Time
}

// presence keeps the in-memory view of who is online and when they were
// last active, writing through to the durable store on every change.
type presence struct {
	store StatusStore

	mu      sync.Mutex
	entries map[int64]presenceEntry
}

func newPresence(store StatusStore) *presence {
	return &presence{store: store, entries: make(map[int64]presenceEntry)}
}

// setOnline flips the in-memory state and persists it. The in-memory
// view is updated even when the store write fails so broadcasts stay
// consistent with what connected clients observe.
func (p *presence) setOnline(ctx context.Context, userID int64, online bool, at time.Time) error {
	p.mu.Lock()
	p.entries[userID] = presenceEntry{online: online, lastActiveAt: at}
	p.mu.Unlock()
	return p.store.SetUserOnline(ctx, userID, online, at)
}

// touch advances the user's last-active timestamp.
func (p *presence) touch(ctx context.Context, userID int64, at time.Time) error {
	p.mu.Lock()
	e := p.entries[userID]
	e.lastActiveAt = at
	p.entries[userID] = e
	p.mu.Unlock()
	return p.store.TouchUserActivity(ctx, userID, at)
}

// status reports the in-memory online flag and last-active timestamp.
// Users never seen by this process report offline with a zero time.
func (p *presence) status(userID int64) (bool, time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.entries[userID]
	return e.online, e.lastActiveAt
}
