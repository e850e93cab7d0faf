package client

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"voiceturn/agent/internal/protocol"
)

// Uplink streams capture slices to the server for the duration of one
// utterance. Start opens the device and announces the utterance; Stop
// drains the stream goroutine and sends the end-of-utterance frame.
type Uplink struct {
	dev  CaptureDevice
	send func(protocol.ClientMessage) error
	log  *logrus.Entry

	mu     sync.Mutex
	active bool
	cancel context.CancelFunc
	done   chan struct{}
}

func NewUplink(dev CaptureDevice, send func(protocol.ClientMessage) error, log *logrus.Entry) *Uplink {
	return &Uplink{dev: dev, send: send, log: log}
}

// Start fails closed: if the capture device can't be opened, no frames
// are sent and the error is returned to the caller.
func (u *Uplink) Start(ctx context.Context) error {
	u.mu.Lock()
	if u.active {
		u.mu.Unlock()
		return nil
	}
	if err := u.dev.Open(); err != nil {
		u.mu.Unlock()
		return fmt.Errorf("capture device: %w", err)
	}
	cctx, cancel := context.WithCancel(ctx)
	u.active = true
	u.cancel = cancel
	u.done = make(chan struct{})
	done := u.done
	u.mu.Unlock()

	if err := u.send(protocol.ClientMessage{Type: protocol.TypeUserAudioStart}); err != nil {
		cancel()
		close(done)
		u.teardown()
		return fmt.Errorf("announce utterance: %w", err)
	}

	go u.stream(cctx, done)
	return nil
}

func (u *Uplink) stream(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		slice, err := u.dev.ReadSlice(ctx)
		if err != nil {
			if err != io.EOF && ctx.Err() == nil {
				u.log.WithError(err).Warn("capture read failed")
			}
			return
		}
		if len(slice) == 0 {
			continue
		}
		msg := protocol.ClientMessage{
			Type:  protocol.TypeUserAudioChunk,
			Chunk: base64.StdEncoding.EncodeToString(slice),
		}
		if err := u.send(msg); err != nil {
			u.log.WithError(err).Warn("chunk send failed")
			return
		}
	}
}

// Stop ends the utterance: the stream goroutine is stopped before the
// end frame goes out, so no chunk can trail it.
func (u *Uplink) Stop() {
	u.mu.Lock()
	if !u.active {
		u.mu.Unlock()
		return
	}
	u.active = false
	cancel := u.cancel
	done := u.done
	u.cancel = nil
	u.done = nil
	u.mu.Unlock()

	cancel()
	<-done
	if err := u.dev.Close(); err != nil {
		u.log.WithError(err).Warn("capture close failed")
	}
	if err := u.send(protocol.ClientMessage{Type: protocol.TypeUserAudioEnd}); err != nil {
		u.log.WithError(err).Warn("end frame send failed")
	}
}

func (u *Uplink) teardown() {
	u.mu.Lock()
	u.active = false
	u.cancel = nil
	u.done = nil
	u.mu.Unlock()
	_ = u.dev.Close()
}
