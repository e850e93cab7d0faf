package session

import (
	"sync"
	"time"
)

// Info is a point-in-time snapshot of one live connection's session.
type Info struct {
	ConnID        string    `json:"conn_id"`
	UtteranceID   string    `json:"utterance_id,omitempty"`
	State         string    `json:"state"`
	BufferedBytes int       `json:"buffered_bytes"`
	ConnectedAt   time.Time `json:"connected_at"`
	Events        []Event   `json:"events,omitempty"`
}

type entry struct {
	sess        *Session
	connectedAt time.Time
}

// Registry tracks live sessions by connection id for introspection. It holds
// no session state of its own; the owning connection handler remains the
// sole mutator of each Session.
type Registry struct {
	mu   sync.RWMutex
	live map[string]entry
}

func NewRegistry() *Registry {
	return &Registry{live: make(map[string]entry)}
}

func (r *Registry) Put(connID string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live[connID] = entry{sess: s, connectedAt: time.Now().UTC()}
	gaugeConnections.Set(float64(len(r.live)))
}

func (r *Registry) Remove(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.live, connID)
	gaugeConnections.Set(float64(len(r.live)))
}

// Snapshot returns the current state of every live session. withEvents
// includes each session's turn trail.
func (r *Registry) Snapshot(withEvents bool) []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.live))
	for id, e := range r.live {
		info := Info{
			ConnID:        id,
			UtteranceID:   e.sess.ID(),
			State:         e.sess.State().String(),
			BufferedBytes: e.sess.BufferedBytes(),
			ConnectedAt:   e.connectedAt,
		}
		if withEvents {
			info.Events = e.sess.Events()
		}
		out = append(out, info)
	}
	return out
}
