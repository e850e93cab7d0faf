package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// OpenAITranscriber calls an OpenAI-compatible audio/transcriptions endpoint
// with the complete utterance buffer.
type OpenAITranscriber struct {
	baseURL string
	apiKey  string
	model   string
	httpc   *http.Client
}

func NewOpenAITranscriber(baseURL, apiKey, model string) *OpenAITranscriber {
	return &OpenAITranscriber{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpc:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (t *OpenAITranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	start := time.Now()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "utterance.webm")
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(audio); err != nil {
		return "", err
	}
	if err := mw.WriteField("model", t.model); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	url := t.baseURL + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := t.httpc.Do(req)
	if err != nil {
		metricRequests.WithLabelValues("transcribe", "error").Inc()
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()
	metricLatencyMS.WithLabelValues("transcribe").Observe(float64(time.Since(start).Milliseconds()))

	if resp.StatusCode/100 != 2 {
		metricRequests.WithLabelValues("transcribe", "http_error").Inc()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("transcription status=%d body=%s", resp.StatusCode, string(b))
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		metricRequests.WithLabelValues("transcribe", "decode_error").Inc()
		return "", fmt.Errorf("transcription decode: %w", err)
	}
	metricRequests.WithLabelValues("transcribe", "ok").Inc()
	return strings.TrimSpace(out.Text), nil
}
