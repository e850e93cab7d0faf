package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func newTestLog() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

// fakeDevice records played buffers in order and can block or fail.
type fakeDevice struct {
	mu      sync.Mutex
	played  []string
	delay   time.Duration
	failOn  string
	started chan string
}

func (d *fakeDevice) Play(ctx context.Context, audio []byte) error {
	if d.started != nil {
		d.started <- string(audio)
	}
	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if d.failOn != "" && string(audio) == d.failOn {
		return errors.New("device error")
	}
	d.mu.Lock()
	d.played = append(d.played, string(audio))
	d.mu.Unlock()
	return nil
}

func (d *fakeDevice) order() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.played...)
}

func TestQueuePlaysInArrivalOrder(t *testing.T) {
	dev := &fakeDevice{delay: 10 * time.Millisecond}
	starts := 0
	ended := make(chan struct{}, 4)
	q := NewQueue(dev, func() { starts++ }, func() { ended <- struct{}{} }, newTestLog())

	q.Enqueue([]byte("A"))
	q.Enqueue([]byte("B"))
	q.Enqueue([]byte("C"))

	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("queue did not drain")
	}

	got := dev.order()
	if len(got) != 3 || got[0] != "A" || got[1] != "B" || got[2] != "C" {
		t.Fatalf("play order = %v, want [A B C]", got)
	}
	if starts != 1 {
		t.Fatalf("onStart fired %d times, want 1", starts)
	}
	if len(ended) != 0 {
		t.Fatal("onEnd fired more than once")
	}
	if q.Playing() {
		t.Fatal("queue still marked playing after drain")
	}
}

func TestQueueStopWhileIdleIsNoOp(t *testing.T) {
	dev := &fakeDevice{}
	ends := 0
	q := NewQueue(dev, nil, func() { ends++ }, newTestLog())

	q.Stop()
	if ends != 0 {
		t.Fatalf("onEnd fired %d times on idle stop, want 0", ends)
	}
}

func TestQueueStopInterruptsAndClears(t *testing.T) {
	dev := &fakeDevice{delay: time.Hour, started: make(chan string, 1)}
	ended := make(chan struct{}, 4)
	q := NewQueue(dev, nil, func() { ended <- struct{}{} }, newTestLog())

	q.Enqueue([]byte("A"))
	q.Enqueue([]byte("B"))

	select {
	case <-dev.started:
	case <-time.After(2 * time.Second):
		t.Fatal("playback never started")
	}

	q.Stop()

	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("onEnd never fired after Stop")
	}
	// Give a cancelled run loop time to misbehave if it were going to.
	time.Sleep(50 * time.Millisecond)
	if len(ended) != 0 {
		t.Fatal("onEnd fired more than once")
	}
	if q.Playing() {
		t.Fatal("queue still marked playing after Stop")
	}
	if got := dev.order(); len(got) != 0 {
		t.Fatalf("completed plays after interrupt = %v, want none", got)
	}
}

func TestQueueCallbacksStayOrderedAcrossDrain(t *testing.T) {
	dev := &fakeDevice{}
	var mu sync.Mutex
	var trace []string
	record := func(s string) {
		mu.Lock()
		trace = append(trace, s)
		mu.Unlock()
	}

	entered := make(chan struct{}, 2)
	endGate := make(chan struct{}, 2)
	q := NewQueue(dev,
		func() { record("start") },
		func() {
			record("end")
			entered <- struct{}{}
			<-endGate
		},
		newTestLog())

	q.Enqueue([]byte("A"))
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first drain never reached onEnd")
	}

	// Enqueue while the drain callback is still running: its onStart must
	// wait for the in-flight onEnd to return.
	q.Enqueue([]byte("B"))
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	n := len(trace)
	mu.Unlock()
	if n != 2 {
		t.Fatalf("callbacks reordered during drain: %v", trace)
	}
	endGate <- struct{}{}

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("second drain never reached onEnd")
	}
	endGate <- struct{}{}

	waitFor(t, func() bool { return !q.Playing() })
	mu.Lock()
	defer mu.Unlock()
	want := []string{"start", "end", "start", "end"}
	if len(trace) != len(want) {
		t.Fatalf("trace = %v, want %v", trace, want)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("trace[%d] = %q, want %q (full trace %v)", i, trace[i], want[i], trace)
		}
	}
}

func TestQueueSkipsFailedBuffer(t *testing.T) {
	dev := &fakeDevice{delay: 10 * time.Millisecond, failOn: "bad"}
	ended := make(chan struct{}, 2)
	q := NewQueue(dev, nil, func() { ended <- struct{}{} }, newTestLog())

	q.Enqueue([]byte("good1"))
	q.Enqueue([]byte("bad"))
	q.Enqueue([]byte("good2"))

	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("queue did not drain")
	}

	got := dev.order()
	if len(got) != 2 || got[0] != "good1" || got[1] != "good2" {
		t.Fatalf("play order = %v, want [good1 good2]", got)
	}
}
