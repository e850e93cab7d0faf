// Package session owns the per-connection utterance state machine. One
// Session exists per live websocket connection and is never shared between
// connections.
package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// State of the utterance lifecycle.
type State int

const (
	Idle State = iota
	Capturing
	Processing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	case Processing:
		return "processing"
	default:
		return "unknown"
	}
}

// Session is the state machine for one connection: Idle → Capturing →
// Processing → Idle. All methods are safe for concurrent use; the pipeline
// completion path and the read loop may touch it from different goroutines.
type Session struct {
	mu       sync.Mutex
	state    State
	id       string
	chunks   [][]byte
	minBytes int

	log    *logrus.Entry
	events *Trail
}

func New(minUtteranceBytes int, log *logrus.Entry) *Session {
	return &Session{
		minBytes: minUtteranceBytes,
		log:      log,
		events:   NewTrail(),
	}
}

// Start begins capturing a new utterance. A start while already Capturing or
// Processing is a no-op: the active utterance keeps its id and buffer.
func (s *Session) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle {
		s.log.WithFields(logrus.Fields{"state": s.state.String(), "utterance_id": s.id}).
			Debug("start ignored, session already active")
		return false
	}
	s.id = uuid.New().String()
	s.chunks = nil
	s.setState(Capturing)
	s.events.Append("utterance_started", map[string]any{"utterance_id": s.id})
	return true
}

// Append buffers one audio chunk. Chunks arriving with no active capture are
// logged and dropped; there is no session to attach them to.
func (s *Session) Append(chunk []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Capturing {
		s.log.WithField("state", s.state.String()).Debug("chunk ignored, no active capture")
		return false
	}
	s.chunks = append(s.chunks, chunk)
	return true
}

// End finalizes the buffered chunks into one utterance. It returns the
// assembled buffer and true when the utterance is viable and the session has
// moved to Processing. Buffers under the minimum byte threshold are treated
// as noise: the session resets to Idle and no pipeline runs.
func (s *Session) End() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Capturing {
		s.log.WithField("state", s.state.String()).Debug("end ignored, no active capture")
		return nil, false
	}

	total := 0
	for _, c := range s.chunks {
		total += len(c)
	}
	buf := make([]byte, 0, total)
	for _, c := range s.chunks {
		buf = append(buf, c...)
	}

	if len(buf) < s.minBytes {
		s.log.WithFields(logrus.Fields{"bytes": len(buf), "min": s.minBytes, "utterance_id": s.id}).
			Info("utterance below minimum size, discarding")
		metricUtterances.WithLabelValues("discarded").Inc()
		s.events.Append("utterance_discarded", map[string]any{"bytes": len(buf)})
		s.resetLocked()
		return nil, false
	}

	metricUtterances.WithLabelValues("accepted").Inc()
	metricUtteranceBytes.Observe(float64(len(buf)))
	s.events.Append("utterance_finalized", map[string]any{"bytes": len(buf), "utterance_id": s.id})
	s.setState(Processing)
	return buf, true
}

// Reset returns the session to Idle, clearing the chunk buffer and id. It is
// called on every pipeline exit path and on connection close.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.chunks = nil
	s.id = ""
	s.setState(Idle)
}

func (s *Session) setState(to State) {
	from := s.state
	if from == to {
		return
	}
	metricStateTransitions.WithLabelValues(from.String(), to.String()).Inc()
	s.state = to
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// BufferedBytes reports the current size of the chunk buffer.
func (s *Session) BufferedBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.chunks {
		n += len(c)
	}
	return n
}

// Events exposes the recent turn event trail for introspection.
func (s *Session) Events() []Event {
	return s.events.List()
}

// Record appends an event to the session trail.
func (s *Session) Record(typ string, payload map[string]any) {
	s.events.Append(typ, payload)
}
