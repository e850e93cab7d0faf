package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ElevenLabsTTS synthesizes one text segment per call against the
// ElevenLabs REST API, returning the full audio buffer.
type ElevenLabsTTS struct {
	baseURL string
	apiKey  string
	voiceID string
	modelID string
	httpc   *http.Client
}

func NewElevenLabsTTS(baseURL, apiKey, voiceID, modelID string) *ElevenLabsTTS {
	return &ElevenLabsTTS{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		voiceID: voiceID,
		modelID: modelID,
		httpc:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *ElevenLabsTTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	start := time.Now()

	body := map[string]any{"text": text}
	if e.modelID != "" {
		body["model_id"] = e.modelID
	}
	reqBytes, _ := json.Marshal(body)

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", e.baseURL, e.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("accept", "audio/mpeg")
	req.Header.Set("content-type", "application/json")

	resp, err := e.httpc.Do(req)
	if err != nil {
		metricRequests.WithLabelValues("synthesize", "error").Inc()
		return nil, fmt.Errorf("synthesis request: %w", err)
	}
	defer resp.Body.Close()
	metricLatencyMS.WithLabelValues("synthesize").Observe(float64(time.Since(start).Milliseconds()))

	if resp.StatusCode/100 != 2 {
		metricRequests.WithLabelValues("synthesize", "http_error").Inc()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("synthesis status=%d body=%s", resp.StatusCode, string(b))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		metricRequests.WithLabelValues("synthesize", "read_error").Inc()
		return nil, fmt.Errorf("synthesis read: %w", err)
	}
	metricRequests.WithLabelValues("synthesize", "ok").Inc()
	metricSynthesisBytes.Observe(float64(len(audio)))
	return audio, nil
}
