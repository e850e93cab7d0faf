package session

import (
	"sync"
	"time"
)

// Event is one entry in a session's turn trail.
type Event struct {
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Trail keeps a bounded in-memory history of turn events for one session.
type Trail struct {
	mu     sync.Mutex
	events []Event
}

// maxEvents caps the trail so a long-lived connection cannot grow it
// without bound.
const maxEvents = 200

func NewTrail() *Trail {
	return &Trail{}
}

func (t *Trail) Append(typ string, payload map[string]any) Event {
	evt := Event{Type: typ, Timestamp: time.Now().UTC(), Payload: payload}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, evt)
	if l := len(t.events); l > maxEvents {
		keep := maxEvents - 1
		dropped := l - keep
		t.events = append([]Event(nil), t.events[l-keep:]...)
		t.events = append(t.events, Event{
			Type:      "events_truncated",
			Timestamp: time.Now().UTC(),
			Payload:   map[string]any{"dropped": dropped, "kept": keep},
		})
	}
	return evt
}

func (t *Trail) List() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}
