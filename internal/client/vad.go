package client

import (
	"sync"
	"time"
)

// Monitor polls a capture level at a fixed interval and fires onEnd once
// after the level stays below threshold for a full window. A loud sample
// inside the window cancels the pending end and the countdown restarts on
// the next quiet sample.
type Monitor struct {
	threshold float64
	window    time.Duration
	interval  time.Duration

	level    func() float64
	onVolume func(float64)
	onEnd    func()

	mu          sync.Mutex
	stopped     bool
	fired       bool
	silentSince time.Time
	quit        chan struct{}
}

func NewMonitor(threshold float64, window, interval time.Duration, level func() float64, onVolume func(float64), onEnd func()) *Monitor {
	return &Monitor{
		threshold: threshold,
		window:    window,
		interval:  interval,
		level:     level,
		onVolume:  onVolume,
		onEnd:     onEnd,
		quit:      make(chan struct{}),
	}
}

// Start begins sampling in a background goroutine. The goroutine exits
// after onEnd fires or Stop is called.
func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) loop() {
	t := time.NewTicker(m.interval)
	defer t.Stop()
	for {
		select {
		case <-m.quit:
			return
		case now := <-t.C:
			if m.sample(now) {
				return
			}
		}
	}
}

// sample processes one polling tick. It returns true once monitoring is
// finished, either because the silence window elapsed or Stop won the race.
func (m *Monitor) sample(now time.Time) bool {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return true
	}
	vol := m.level()
	var end func()
	if vol < m.threshold {
		if m.silentSince.IsZero() {
			m.silentSince = now
		}
		if now.Sub(m.silentSince) >= m.window && !m.fired {
			m.fired = true
			m.stopped = true
			end = m.onEnd
		}
	} else {
		m.silentSince = time.Time{}
	}
	onVolume := m.onVolume
	m.mu.Unlock()

	if onVolume != nil {
		onVolume(vol)
	}
	if end != nil {
		end()
		return true
	}
	return false
}

// Stop halts sampling; no new end-of-utterance can fire once the stopped
// flag is set. Stop after the monitor fired on its own is a no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.mu.Unlock()
	close(m.quit)
}
