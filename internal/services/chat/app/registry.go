package server

import "sync"

// registry tracks which users hold a live websocket connection per
// conversation. A user holds at most one connection per conversation;
// a newer connection replaces the previous one (last wins).
type registry struct {
	mu    sync.Mutex
	conns map[int64]map[int64]*peer
}

func newRegistry() *registry {
	return &registry{conns: make(map[int64]map[int64]*peer)}
}

// register records p as the live connection for (conversationID, userID)
// and returns the peer it replaced, if any.
func (r *registry) register(conversationID, userID int64, p *peer) *peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	byUser := r.conns[conversationID]
	if byUser == nil {
		byUser = make(map[int64]*peer)
		r.conns[conversationID] = byUser
	}
	prev := byUser[userID]
	byUser[userID] = p
	return prev
}

// unregister removes p from (conversationID, userID). It is a no-op when
// a different peer is registered, so a stale connection tearing down
// cannot evict its replacement.
func (r *registry) unregister(conversationID, userID int64, p *peer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byUser := r.conns[conversationID]
	if byUser == nil || byUser[userID] != p {
		return
	}
	delete(byUser, userID)
	if len(byUser) == 0 {
		delete(r.conns, conversationID)
	}
}

// conversation returns a snapshot of the live peers in conversationID.
func (r *registry) conversation(conversationID int64) map[int64]*peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	byUser := r.conns[conversationID]
	if len(byUser) == 0 {
		return nil
	}
	out := make(map[int64]*peer, len(byUser))
	for id, p := range byUser {
		out[id] = p
	}
	return out
}

// get returns the live peer for (conversationID, userID), or nil.
func (r *registry) get(conversationID, userID int64) *peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conns[conversationID][userID]
}
