// Package turn orchestrates one full conversation turn: transcription,
// reply generation, chunking, and per-segment synthesis, delivered in order
// over the session connection.
package turn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"voiceturn/agent/internal/chunker"
	"voiceturn/agent/internal/provider"
)

// ErrEmptyReply is returned when a turn produces no synthesizable text,
// either because transcription heard nothing or generation returned an
// empty reply. The caller surfaces it like any other stage failure so the
// client is unblocked.
var ErrEmptyReply = errors.New("turn produced no reply text")

// ErrAbandoned marks a turn whose audio could not be delivered, usually
// because the connection closed mid-turn. The remaining segments are
// skipped and no error frame is owed to the client.
var ErrAbandoned = errors.New("turn abandoned, audio delivery failed")

// Sender delivers one synthesized segment to the client. done marks the
// final segment of the turn.
type Sender interface {
	SendAudio(ctx context.Context, audio []byte, done bool) error
}

// Pipeline runs turns against the provider collaborators. One pipeline is
// shared by all connections; it holds no per-turn state.
type Pipeline struct {
	stt provider.Transcriber
	llm provider.Generator
	tts provider.Synthesizer

	instruction     string
	maxSegmentChars int
	log             *logrus.Entry
}

func New(stt provider.Transcriber, llm provider.Generator, tts provider.Synthesizer, instruction string, maxSegmentChars int, log *logrus.Entry) *Pipeline {
	return &Pipeline{
		stt:             stt,
		llm:             llm,
		tts:             tts,
		instruction:     instruction,
		maxSegmentChars: maxSegmentChars,
		log:             log,
	}
}

// Run executes the strictly sequential stages for one finalized utterance.
// Synthesis of segment i completes before segment i+1 is requested, so
// delivery order matches segment order. Any stage failure aborts the rest
// of the turn; the caller owns session cleanup on every return path.
func (p *Pipeline) Run(ctx context.Context, audio []byte, send Sender) error {
	start := time.Now()
	log := p.log

	transcript, err := p.transcribe(ctx, audio)
	if err != nil {
		metricTurns.WithLabelValues("transcribe_error").Inc()
		return fmt.Errorf("transcribe: %w", err)
	}
	log.WithField("transcript", transcript).Info("utterance transcribed")

	reply, err := p.generate(ctx, transcript)
	if err != nil {
		metricTurns.WithLabelValues("generate_error").Inc()
		return fmt.Errorf("generate: %w", err)
	}
	log.WithField("chars", len(reply)).Info("reply generated")

	segments := chunker.Split(reply, p.maxSegmentChars)
	if len(segments) == 0 {
		metricTurns.WithLabelValues("empty_reply").Inc()
		return ErrEmptyReply
	}
	metricSegmentsPerTurn.Observe(float64(len(segments)))

	for i, seg := range segments {
		synthStart := time.Now()
		buf, err := p.tts.Synthesize(ctx, seg.Text)
		if err != nil {
			metricTurns.WithLabelValues("synthesize_error").Inc()
			return fmt.Errorf("synthesize segment %d: %w", i, err)
		}
		metricSynthesisMS.Observe(float64(time.Since(synthStart).Milliseconds()))

		if err := send.SendAudio(ctx, buf, seg.IsLast); err != nil {
			log.WithError(err).WithField("segment", i).Warn("audio delivery failed, abandoning turn")
			metricTurns.WithLabelValues("send_error").Inc()
			return fmt.Errorf("deliver segment %d: %w", i, ErrAbandoned)
		}
		log.WithFields(logrus.Fields{"segment": i, "bytes": len(buf), "done": seg.IsLast}).
			Debug("segment delivered")
	}

	metricTurns.WithLabelValues("ok").Inc()
	metricTurnDurationMS.Observe(float64(time.Since(start).Milliseconds()))
	return nil
}

func (p *Pipeline) transcribe(ctx context.Context, audio []byte) (string, error) {
	text, err := p.stt.Transcribe(ctx, audio)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

// generate accumulates the streamed reply fragments into the full reply
// text. A stream failure discards any partial reply already accumulated;
// the turn fails rather than speaking a truncated answer.
func (p *Pipeline) generate(ctx context.Context, transcript string) (string, error) {
	frags, errs := p.llm.Stream(ctx, p.instruction, transcript)

	var reply strings.Builder
	for frag := range frags {
		reply.WriteString(frag)
	}
	if err := <-errs; err != nil {
		return "", err
	}
	return reply.String(), nil
}
