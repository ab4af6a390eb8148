package server

import (
	"sync"

	"golang.org/x/net/websocket"
)

// peer wraps a websocket connection with a send mutex so concurrent
// broadcasts do not interleave frames on the wire.
type peer struct {
	userID int64

	mu   sync.Mutex
	conn *websocket.Conn
}

func newPeer(userID int64, conn *websocket.Conn) *peer {
	return &peer{userID: userID, conn: conn}
}

// send marshals v as JSON and writes it as a single websocket frame.
func (p *peer) send(v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return websocket.JSON.Send(p.conn, v)
}
