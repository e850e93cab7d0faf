package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"voiceturn/agent/internal/protocol"
)

// scriptedCapture hands out a fixed set of slices, then blocks until the
// context is cancelled.
type scriptedCapture struct {
	mu      sync.Mutex
	slices  [][]byte
	openErr error
	opened  bool
	closed  bool
}

func (c *scriptedCapture) Open() error {
	if c.openErr != nil {
		return c.openErr
	}
	c.mu.Lock()
	c.opened = true
	c.mu.Unlock()
	return nil
}

func (c *scriptedCapture) ReadSlice(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	if len(c.slices) > 0 {
		s := c.slices[0]
		c.slices = c.slices[1:]
		c.mu.Unlock()
		return s, nil
	}
	c.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (c *scriptedCapture) Level() float64 { return 0 }

func (c *scriptedCapture) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

type sentLog struct {
	mu   sync.Mutex
	msgs []protocol.ClientMessage
}

func (s *sentLog) send(m protocol.ClientMessage) error {
	s.mu.Lock()
	s.msgs = append(s.msgs, m)
	s.mu.Unlock()
	return nil
}

func (s *sentLog) snapshot() []protocol.ClientMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.ClientMessage(nil), s.msgs...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never met")
}

func TestUplinkFramesOneUtterance(t *testing.T) {
	dev := &scriptedCapture{slices: [][]byte{[]byte("aa"), []byte("bb")}}
	out := &sentLog{}
	u := NewUplink(dev, out.send, newTestLog())

	if err := u.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, func() bool { return len(out.snapshot()) >= 3 })
	u.Stop()

	msgs := out.snapshot()
	if len(msgs) != 4 {
		t.Fatalf("sent %d frames, want 4", len(msgs))
	}
	if msgs[0].Type != protocol.TypeUserAudioStart {
		t.Fatalf("first frame = %s, want %s", msgs[0].Type, protocol.TypeUserAudioStart)
	}
	for i, want := range []string{"aa", "bb"} {
		m := msgs[i+1]
		if m.Type != protocol.TypeUserAudioChunk {
			t.Fatalf("frame %d type = %s", i+1, m.Type)
		}
		got, err := base64.StdEncoding.DecodeString(m.Chunk)
		if err != nil || string(got) != want {
			t.Fatalf("frame %d payload = %q (%v), want %q", i+1, got, err, want)
		}
	}
	if msgs[3].Type != protocol.TypeUserAudioEnd {
		t.Fatalf("last frame = %s, want %s", msgs[3].Type, protocol.TypeUserAudioEnd)
	}
	if !dev.closed {
		t.Fatal("device not closed after Stop")
	}
}

func TestUplinkFailsClosedWhenDeviceUnavailable(t *testing.T) {
	dev := &scriptedCapture{openErr: errors.New("no microphone")}
	out := &sentLog{}
	u := NewUplink(dev, out.send, newTestLog())

	if err := u.Start(context.Background()); err == nil {
		t.Fatal("expected Start to fail")
	}
	if n := len(out.snapshot()); n != 0 {
		t.Fatalf("sent %d frames after failed open, want 0", n)
	}
}

func TestUplinkStopWithoutStart(t *testing.T) {
	out := &sentLog{}
	u := NewUplink(&scriptedCapture{}, out.send, newTestLog())
	u.Stop()
	if n := len(out.snapshot()); n != 0 {
		t.Fatalf("sent %d frames, want 0", n)
	}
}

// countChunks tallies audio chunk frames in a sent-message snapshot.
func countChunks(msgs []protocol.ClientMessage) int {
	n := 0
	for _, m := range msgs {
		if m.Type == protocol.TypeUserAudioChunk {
			n++
		}
	}
	return n
}

func TestUplinkStreamsAcrossConsecutiveUtterances(t *testing.T) {
	// 16 slices of 4 bytes at 1000 Hz / 2 ms, shared across both turns.
	data := make([]byte, 64)
	for i := range data {
		data[i] = byte(i)
	}
	dev := NewPCMCapture(bytes.NewReader(data), 1000, 2)
	out := &sentLog{}
	u := NewUplink(dev, out.send, newTestLog())

	for utterance := 1; utterance <= 2; utterance++ {
		before := countChunks(out.snapshot())
		if err := u.Start(context.Background()); err != nil {
			t.Fatalf("utterance %d Start: %v", utterance, err)
		}
		waitFor(t, func() bool { return countChunks(out.snapshot()) >= before+2 })
		u.Stop()
		if got := countChunks(out.snapshot()); got < before+2 {
			t.Fatalf("utterance %d streamed %d chunks, want at least 2", utterance, got-before)
		}
	}
}

func TestUplinkEmptyCaptureStillFramesUtterance(t *testing.T) {
	dev := &scriptedCapture{}
	out := &sentLog{}
	u := NewUplink(dev, out.send, newTestLog())

	if err := u.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	u.Stop()

	msgs := out.snapshot()
	if len(msgs) != 2 {
		t.Fatalf("sent %d frames, want start+end", len(msgs))
	}
	if msgs[0].Type != protocol.TypeUserAudioStart || msgs[1].Type != protocol.TypeUserAudioEnd {
		t.Fatalf("frames = %v", msgs)
	}
}
