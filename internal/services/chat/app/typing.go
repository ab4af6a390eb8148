package server

import (
	"sync"
	"time"
)

// typingTracker records who is currently composing a message in each
// conversation. Entries carry a deadline so a client that disappears
// mid-keystroke does not stay "typing" forever.
type typingTracker struct {
	ttl time.Duration

	mu     sync.Mutex
	byConv map[int64]map[int64]time.Time
}

func newTypingTracker(ttl time.Duration) *typingTracker {
	return &typingTracker{ttl: ttl, byConv: make(map[int64]map[int64]time.Time)}
}

func (t *typingTracker) start(conversationID, userID int64, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	byUser := t.byConv[conversationID]
	if byUser == nil {
		byUser = make(map[int64]time.Time)
		t.byConv[conversationID] = byUser
	}
	byUser[userID] = now.Add(t.ttl)
}

func (t *typingTracker) stop(conversationID, userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	byUser := t.byConv[conversationID]
	if byUser == nil {
		return
	}
	delete(byUser, userID)
	if len(byUser) == 0 {
		delete(t.byConv, conversationID)
	}
}

// typing reports whether userID is composing in conversationID. Expired
// entries are dropped on read.
func (t *typingTracker) typing(conversationID, userID int64, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	byUser := t.byConv[conversationID]
	deadline, ok := byUser[userID]
	if !ok {
		return false
	}
	if now.After(deadline) {
		delete(byUser, userID)
		if len(byUser) == 0 {
			delete(t.byConv, conversationID)
		}
		return false
	}
	return true
}
