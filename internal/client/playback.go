package client

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Queue plays audio buffers strictly in arrival order. onStart fires once
// per idle-to-playing transition, onEnd once per drain or Stop.
type Queue struct {
	dev     PlaybackDevice
	onStart func()
	onEnd   func()
	log     *logrus.Entry

	mu      sync.Mutex
	items   [][]byte
	playing bool
	ending  bool
	cancel  context.CancelFunc
}

func NewQueue(dev PlaybackDevice, onStart, onEnd func(), log *logrus.Entry) *Queue {
	return &Queue{dev: dev, onStart: onStart, onEnd: onEnd, log: log}
}

// Enqueue appends a buffer. If the queue was idle it starts playing
// immediately; otherwise the buffer waits its turn.
func (q *Queue) Enqueue(audio []byte) {
	q.mu.Lock()
	q.items = append(q.items, audio)
	if q.playing {
		q.mu.Unlock()
		return
	}
	q.playing = true
	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	q.mu.Unlock()

	if q.onStart != nil {
		q.onStart()
	}
	go q.run(ctx)
}

func (q *Queue) run(ctx context.Context) {
	for {
		q.mu.Lock()
		if ctx.Err() != nil {
			// Stop already signalled the end.
			q.mu.Unlock()
			return
		}
		if len(q.items) == 0 {
			// Stay marked playing while onEnd runs so a racing Enqueue
			// queues behind it instead of firing onStart first.
			q.ending = true
			q.mu.Unlock()
			if q.onEnd != nil {
				q.onEnd()
			}
			q.mu.Lock()
			q.ending = false
			if ctx.Err() != nil || len(q.items) == 0 {
				q.items = nil
				q.playing = false
				cancel := q.cancel
				q.cancel = nil
				q.mu.Unlock()
				if cancel != nil {
					cancel()
				}
				return
			}
			// Buffers arrived during the callback; this is a fresh
			// idle-to-playing transition.
			q.mu.Unlock()
			if q.onStart != nil {
				q.onStart()
			}
			continue
		}
		item := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		if err := q.dev.Play(ctx, item); err != nil {
			if ctx.Err() != nil {
				return
			}
			q.log.WithError(err).Warn("segment playback failed, skipping")
		}
	}
}

// Playing reports whether a run loop is currently active.
func (q *Queue) Playing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.playing
}

// Stop interrupts the current buffer, clears everything queued, and fires
// onEnd. Stopping an idle queue is a no-op.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.playing {
		q.mu.Unlock()
		return
	}
	q.items = nil
	cancel := q.cancel
	if q.ending {
		// The drain callback in flight already reports this end; the run
		// loop observes the cancelled context and goes idle.
		q.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return
	}
	q.playing = false
	q.cancel = nil
	q.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if q.onEnd != nil {
		q.onEnd()
	}
}
