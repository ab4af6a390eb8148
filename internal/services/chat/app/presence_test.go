package server

import (
	"context"
	"errors"
	"testing"
	"time"
)

type recordingStatusStore struct {
	err     error
	online  map[int64]bool
	touched map[int64]time.Time
}

func newRecordingStatusStore() *recordingStatusStore {
	return &recordingStatusStore{online: make(map[int64]bool), touched: make(map[int64]time.Time)}
}

func (s *recordingStatusStore) SetUserOnline(_ context.Context, userID int64, online bool, _ time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.online[userID] = online
	return nil
}

func (s *recordingStatusStore) TouchUserActivity(_ context.Context, userID int64, at time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.touched[userID] = at
	return nil
}

func TestPresenceSetOnlineWritesThrough(t *testing.T) {
	t.Parallel()

	store := newRecordingStatusStore()
	p := newPresence(store)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := p.setOnline(ctx, 1, true, now); err != nil {
		t.Fatalf("setOnline: %v", err)
	}
	online, lastActive := p.status(1)
	if !online || !lastActive.Equal(now) {
		t.Fatalf("status = (%v, %v), want (true, %v)", online, lastActive, now)
	}
	if !store.online[1] {
		t.Fatal("online state not persisted")
	}

	if err := p.setOnline(ctx, 1, false, now.Add(time.Minute)); err != nil {
		t.Fatalf("setOnline: %v", err)
	}
	online, lastActive = p.status(1)
	if online || !lastActive.Equal(now.Add(time.Minute)) {
		t.Fatalf("status after offline = (%v, %v)", online, lastActive)
	}
}

func TestPresenceTouchAdvancesLastActive(t *testing.T) {
	t.Parallel()

	store := newRecordingStatusStore()
	p := newPresence(store)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := p.setOnline(ctx, 1, true, now); err != nil {
		t.Fatalf("setOnline: %v", err)
	}
	later := now.Add(45 * time.Second)
	if err := p.touch(ctx, 1, later); err != nil {
		t.Fatalf("touch: %v", err)
	}
	online, lastActive := p.status(1)
	if !online || !lastActive.Equal(later) {
		t.Fatalf("status = (%v, %v), want (true, %v)", online, lastActive, later)
	}
	if !store.touched[1].Equal(later) {
		t.Fatal("activity not persisted")
	}
}

func TestPresenceMemoryUpdatesDespiteStoreFailure(t *testing.T) {
	t.Parallel()

	store := newRecordingStatusStore()
	store.err = errors.New("disk full")
	p := newPresence(store)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := p.setOnline(context.Background(), 1, true, now); err == nil {
		t.Fatal("setOnline succeeded, want store error")
	}
	if online, _ := p.status(1); !online {
		t.Fatal("in-memory state not updated on store failure")
	}
}

func TestPresenceUnknownUserIsOffline(t *testing.T) {
	t.Parallel()

	p := newPresence(newRecordingStatusStore())
	online, lastActive := p.status(42)
	if online || !lastActive.IsZero() {
		t.Fatalf("status = (%v, %v), want offline with zero time", online, lastActive)
	}
}
