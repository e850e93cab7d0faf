package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	ws "nhooyr.io/websocket"

	"voiceturn/agent/internal/config"
	"voiceturn/agent/internal/protocol"
)

// defaultReplyTimeout bounds the wait for a reply after end-of-utterance.
// The server sends nothing for a discarded sub-minimum utterance, so the
// client must re-enable recording on its own.
const defaultReplyTimeout = 60 * time.Second

// Client runs the half-duplex conversation loop: record until silence,
// wait for the reply to finish playing, record again. Recording never
// overlaps playback.
type Client struct {
	cfg          config.Config
	url          string
	capture      CaptureDevice
	playback     PlaybackDevice
	maxTurns     int
	replyTimeout time.Duration
	log          *logrus.Entry
}

func New(cfg config.Config, url string, capture CaptureDevice, playback PlaybackDevice, maxTurns int, log *logrus.Entry) *Client {
	return &Client{
		cfg:          cfg,
		url:          url,
		capture:      capture,
		playback:     playback,
		maxTurns:     maxTurns,
		replyTimeout: defaultReplyTimeout,
		log:          log,
	}
}

// Run dials the server and drives turns until ctx is cancelled, the
// connection drops, or maxTurns complete (0 means unlimited).
func (c *Client) Run(ctx context.Context) error {
	conn, _, err := ws.Dial(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	defer conn.Close(ws.StatusNormalClosure, "done")
	conn.SetReadLimit(10 << 20)

	send := func(msg protocol.ClientMessage) error {
		wctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return conn.Write(wctx, ws.MessageText, msg.Encode())
	}

	// Set once the done-flagged segment arrives; the queue drain that
	// follows it is the real end of the turn, earlier drains are just
	// playback outrunning synthesis.
	var lastSegmentSeen atomic.Bool
	turnDone := make(chan struct{}, 1)
	signalTurnDone := func() {
		select {
		case turnDone <- struct{}{}:
		default:
		}
	}

	queue := NewQueue(c.playback,
		func() { c.log.Debug("playback started") },
		func() {
			c.log.Debug("playback drained")
			if lastSegmentSeen.Load() {
				signalTurnDone()
			}
		},
		c.log)

	uplink := NewUplink(c.capture, send, c.log)

	readErr := make(chan error, 1)
	go c.readLoop(ctx, conn, queue, &lastSegmentSeen, signalTurnDone, readErr)

	for turn := 1; c.maxTurns == 0 || turn <= c.maxTurns; turn++ {
		lastSegmentSeen.Store(false)
		// No reply is pending between turns; a buffered signal here is a
		// leftover from the previous turn's late drain.
		select {
		case <-turnDone:
		default:
		}
		log := c.log.WithField("turn", turn)

		log.Info("recording")
		if err := uplink.Start(ctx); err != nil {
			return err
		}

		recDone := make(chan struct{})
		mon := NewMonitor(
			c.cfg.VAD.VolumeThreshold,
			time.Duration(c.cfg.VAD.SilenceWindowMs)*time.Millisecond,
			time.Duration(c.cfg.VAD.SampleIntervalMs)*time.Millisecond,
			c.capture.Level,
			func(v float64) { log.WithField("level", fmt.Sprintf("%.3f", v)).Trace("volume") },
			func() {
				uplink.Stop()
				close(recDone)
			},
		)
		mon.Start()

		select {
		case <-ctx.Done():
			mon.Stop()
			return ctx.Err()
		case err := <-readErr:
			mon.Stop()
			return err
		case <-recDone:
		}

		log.Info("waiting for reply")
		select {
		case <-ctx.Done():
			queue.Stop()
			return ctx.Err()
		case err := <-readErr:
			return err
		case <-turnDone:
			log.Info("turn complete")
		case <-time.After(c.replyTimeout):
			// The utterance may have been discarded server-side, which
			// sends no frame at all.
			queue.Stop()
			log.Warn("no reply before deadline, re-enabling recording")
		}
	}
	return nil
}

func (c *Client) readLoop(ctx context.Context, conn *ws.Conn, queue *Queue, lastSeen *atomic.Bool, signalTurnDone func(), readErr chan<- error) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			readErr <- err
			return
		}

		var msg protocol.ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.WithError(err).Warn("unparseable server frame")
			continue
		}

		switch msg.Type {
		case protocol.TypeAIAudio:
			// Record the done flag before touching the payload so a
			// corrupt final chunk cannot leave the turn hanging.
			if msg.Done {
				lastSeen.Store(true)
			}
			audio, err := base64.StdEncoding.DecodeString(msg.Chunk)
			if err != nil {
				c.log.WithError(err).Warn("undecodable audio chunk, skipping")
				if msg.Done && !queue.Playing() {
					signalTurnDone()
				}
				continue
			}
			queue.Enqueue(audio)
		case protocol.TypeError:
			// The turn is over server-side; unblock recording.
			c.log.WithField("message", msg.Message).Warn("server reported turn failure")
			lastSeen.Store(true)
			signalTurnDone()
		default:
			c.log.WithField("type", msg.Type).Warn("unknown server frame")
		}
	}
}
