// Package client implements the capture, voice-activity, and playback side
// of the conversation loop against pluggable audio devices.
package client

import (
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"time"
)

// CaptureDevice produces fixed-duration audio slices while recording and
// exposes the current input level for voice-activity detection.
type CaptureDevice interface {
	Open() error
	// ReadSlice blocks until the next capture slice is ready, returning
	// io.EOF when the source is exhausted.
	ReadSlice(ctx context.Context) ([]byte, error)
	// Level reports the normalized [0,1] amplitude of the latest slice.
	Level() float64
	Close() error
}

// PlaybackDevice decodes and plays one audio buffer to completion,
// honoring context cancellation mid-playback.
type PlaybackDevice interface {
	Play(ctx context.Context, audio []byte) error
}

// PCMCapture reads raw PCM16 mono audio from a reader in real-time-paced
// slices, standing in for a microphone.
type PCMCapture struct {
	src        io.Reader
	sliceBytes int
	interval   time.Duration

	mu    sync.Mutex
	level float64
	open  bool
}

func NewPCMCapture(src io.Reader, sampleRateHz, intervalMs int) *PCMCapture {
	return &PCMCapture{
		src:        src,
		sliceBytes: sampleRateHz * intervalMs / 1000 * 2,
		interval:   time.Duration(intervalMs) * time.Millisecond,
	}
}

var errNotOpen = errors.New("capture device not open")

func (p *PCMCapture) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.src == nil {
		return errors.New("capture source not set")
	}
	p.open = true
	return nil
}

func (p *PCMCapture) ReadSlice(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	open := p.open
	p.mu.Unlock()
	if !open {
		return nil, errNotOpen
	}

	buf := make([]byte, p.sliceBytes)
	n, err := io.ReadFull(p.src, buf)
	if n == 0 {
		p.setLevel(0)
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return nil, err
	}
	buf = buf[:n]
	p.setLevel(normalizedRMS(buf))

	// Pace at real time so the uplink streams like a live microphone.
	select {
	case <-time.After(p.interval):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return buf, nil
}

func (p *PCMCapture) Level() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

func (p *PCMCapture) setLevel(v float64) {
	p.mu.Lock()
	p.level = v
	p.mu.Unlock()
}

// Close stops slicing but leaves the source reader alone; the caller owns
// it, and Open may be called again for the next utterance.
func (p *PCMCapture) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = false
	p.level = 0
	return nil
}

// WriterPlayback writes synthesized audio to a sink. With a non-zero
// byteRate it sleeps to approximate playback duration so queue timing
// behaves like a real output device.
type WriterPlayback struct {
	dst      io.Writer
	byteRate int
}

func NewWriterPlayback(dst io.Writer, byteRate int) *WriterPlayback {
	return &WriterPlayback{dst: dst, byteRate: byteRate}
}

func (w *WriterPlayback) Play(ctx context.Context, audio []byte) error {
	if _, err := w.dst.Write(audio); err != nil {
		return err
	}
	if w.byteRate <= 0 {
		return nil
	}
	d := time.Duration(float64(len(audio)) / float64(w.byteRate) * float64(time.Second))
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// normalizedRMS computes the RMS amplitude of little-endian PCM16 samples,
// scaled to [0,1].
func normalizedRMS(b []byte) float64 {
	if len(b) < 2 {
		return 0
	}
	var sum float64
	n := len(b) / 2
	for i := 0; i < n; i++ {
		sample := int16(uint16(b[i*2]) | uint16(b[i*2+1])<<8)
		sum += float64(sample) * float64(sample)
	}
	return math.Sqrt(sum/float64(n)) / 32768.0
}
