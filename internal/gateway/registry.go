package gateway

import (
	"sync"

	ws "nhooyr.io/websocket"
)

// Registry tracks the open session websockets so shutdown can close them.
type Registry struct {
	mu    sync.Mutex
	conns map[string]*ws.Conn
}

func NewRegistry() *Registry { return &Registry{conns: make(map[string]*ws.Conn)} }

func (r *Registry) Add(connID string, c *ws.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[connID] = c
}

func (r *Registry) Remove(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, connID)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// CloseAll closes every live connection with a going-away status. Each
// connection's read loop observes the close and runs its own teardown.
func (r *Registry) CloseAll(reason string) {
	r.mu.Lock()
	conns := make([]*ws.Conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.mu.Unlock()

	for _, c := range conns {
		_ = c.Close(ws.StatusGoingAway, reason)
	}
}
