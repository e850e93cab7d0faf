// Package gateway accepts session websockets and routes their JSON frames
// into the per-connection session state machine and the turn pipeline.
package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	ws "nhooyr.io/websocket"

	"voiceturn/agent/internal/config"
	"voiceturn/agent/internal/protocol"
	"voiceturn/agent/internal/session"
	"voiceturn/agent/internal/turn"
)

// turnTimeout bounds an orphaned turn whose connection is already gone, so
// a stalled provider stream cannot pin the goroutine forever.
const turnTimeout = 2 * time.Minute

type Server struct {
	cfg      config.Config
	registry *session.Registry
	conns    *Registry
	pipeline *turn.Pipeline
	log      *logrus.Entry
}

func NewServer(cfg config.Config, reg *session.Registry, conns *Registry, pipeline *turn.Pipeline, log *logrus.Entry) *Server {
	return &Server{cfg: cfg, registry: reg, conns: conns, pipeline: pipeline, log: log}
}

// HandleSessionWS owns one client connection for its whole lifetime: it
// builds the connection's Session, reads frames until the socket closes,
// and tears the session down on exit. An in-flight turn is not cancelled
// by teardown; its next send fails and the pipeline abandons the rest.
func (s *Server) HandleSessionWS(w http.ResponseWriter, r *http.Request) {
	c, err := ws.Accept(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket accept failed")
		return
	}

	connID := uuid.New().String()
	log := s.log.WithField("conn_id", connID)
	sess := session.New(s.cfg.Audio.MinUtteranceBytes, log)
	s.registry.Put(connID, sess)
	s.conns.Add(connID, c)
	log.Info("client connected")

	defer func() {
		sess.Reset()
		s.registry.Remove(connID)
		s.conns.Remove(connID)
		_ = c.Close(ws.StatusNormalClosure, "done")
		log.Info("client disconnected")
	}()

	wc := &conn{c: c}

	for {
		typ, data, err := c.Read(r.Context())
		if err != nil {
			return
		}
		if typ != ws.MessageText && typ != ws.MessageBinary {
			continue
		}

		var msg protocol.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.WithError(err).Debug("invalid frame, ignoring")
			metricMessages.WithLabelValues("invalid").Inc()
			continue
		}
		metricMessages.WithLabelValues(msg.Type).Inc()

		switch msg.Type {
		case protocol.TypeUserAudioStart:
			sess.Start()

		case protocol.TypeUserAudioChunk:
			chunk, err := base64.StdEncoding.DecodeString(msg.Chunk)
			if err != nil {
				log.WithError(err).Debug("undecodable audio chunk, ignoring")
				continue
			}
			sess.Append(chunk)

		case protocol.TypeUserAudioEnd:
			buf, ok := sess.End()
			if !ok {
				continue
			}
			// The read loop stays responsive while the turn runs; the
			// Processing state guards against a second utterance starting.
			go s.runTurn(sess, wc, buf, log)

		default:
			log.WithField("type", msg.Type).Debug("unknown message type, ignoring")
		}
	}
}

// runTurn executes the pipeline for one finalized utterance and always
// resets the session afterwards, whatever the outcome. The turn runs on
// its own context so a closing connection does not abort provider calls
// mid-flight.
func (s *Server) runTurn(sess *session.Session, wc *conn, buf []byte, log *logrus.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()
	defer sess.Reset()

	sess.Record("turn_started", map[string]any{"bytes": len(buf)})
	if err := s.pipeline.Run(ctx, buf, wc); err != nil {
		if errors.Is(err, turn.ErrAbandoned) {
			// The client is unreachable; there is nobody to notify.
			log.WithError(err).Warn("turn abandoned")
			sess.Record("turn_abandoned", map[string]any{"error": err.Error()})
			return
		}
		log.WithError(err).Error("turn failed")
		sess.Record("turn_failed", map[string]any{"error": err.Error()})
		wc.SendError(ctx, err.Error())
		return
	}
	sess.Record("turn_completed", nil)
}
