package gateway

import (
	"context"
	"encoding/base64"
	"time"

	ws "nhooyr.io/websocket"

	"voiceturn/agent/internal/protocol"
)

// conn wraps one websocket for outbound frames. Only the turn goroutine
// writes, at most one turn at a time, so no write lock is needed; the
// deadline keeps a stalled peer from pinning the turn.
type conn struct {
	c *ws.Conn
}

const writeTimeout = 10 * time.Second

func (c *conn) writeJSON(ctx context.Context, msg protocol.ServerMessage) error {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.c.Write(wctx, ws.MessageText, msg.Encode())
}

// SendAudio implements turn.Sender, carrying one synthesized segment as a
// base64 ai_audio frame.
func (c *conn) SendAudio(ctx context.Context, audio []byte, done bool) error {
	chunk := base64.StdEncoding.EncodeToString(audio)
	if err := c.writeJSON(ctx, protocol.AIAudio(chunk, done)); err != nil {
		metricSendFailures.Inc()
		return err
	}
	return nil
}

// SendError reports a turn failure to the client. Failures to deliver the
// error itself are swallowed; the connection is likely already gone.
func (c *conn) SendError(ctx context.Context, msg string) {
	if err := c.writeJSON(ctx, protocol.Error(msg)); err != nil {
		metricSendFailures.Inc()
	}
}
