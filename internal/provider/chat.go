package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAIChat streams replies from an OpenAI-compatible chat/completions
// endpoint using server-sent events.
type OpenAIChat struct {
	baseURL string
	apiKey  string
	model   string
	httpc   *http.Client
}

func NewOpenAIChat(baseURL, apiKey, model string) *OpenAIChat {
	// No client timeout: the SSE stream stays open for the whole reply.
	return &OpenAIChat{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpc:   &http.Client{Timeout: 0},
	}
}

func (c *OpenAIChat) Stream(ctx context.Context, instruction, transcript string) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)
		start := time.Now()

		body := map[string]any{
			"model":  c.model,
			"stream": true,
			"messages": []map[string]any{
				{"role": "system", "content": instruction},
				{"role": "user", "content": transcript},
			},
		}
		reqBytes, _ := json.Marshal(body)

		url := c.baseURL + "/chat/completions"
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBytes))
		if err != nil {
			errs <- err
			return
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "text/event-stream")

		resp, err := c.httpc.Do(req)
		if err != nil {
			metricRequests.WithLabelValues("generate", "error").Inc()
			errs <- fmt.Errorf("generation request: %w", err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode/100 != 2 {
			metricRequests.WithLabelValues("generate", "http_error").Inc()
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			errs <- fmt.Errorf("generation status=%d body=%s", resp.StatusCode, string(b))
			return
		}

		firstToken := false
		decoder := newSSEDecoder(bufio.NewReader(resp.Body))
		for {
			if ctx.Err() != nil {
				errs <- ctx.Err()
				return
			}
			_, data, err := decoder.Next()
			if err != nil {
				if err == io.EOF {
					break
				}
				metricRequests.WithLabelValues("generate", "stream_error").Inc()
				errs <- fmt.Errorf("generation stream: %w", err)
				return
			}
			if string(data) == "[DONE]" {
				break
			}
			var m map[string]any
			if err := json.Unmarshal(data, &m); err != nil {
				continue
			}
			choices, _ := m["choices"].([]any)
			if len(choices) == 0 {
				continue
			}
			choice, _ := choices[0].(map[string]any)
			delta, _ := choice["delta"].(map[string]any)
			content := toString(delta["content"])
			if content == "" {
				continue
			}
			if !firstToken {
				metricLatencyMS.WithLabelValues("generate").Observe(float64(time.Since(start).Milliseconds()))
				firstToken = true
			}
			select {
			case out <- content:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
		metricRequests.WithLabelValues("generate", "ok").Inc()
	}()

	return out, errs
}

type sseDecoder struct {
	r *bufio.Reader
}

func newSSEDecoder(r *bufio.Reader) *sseDecoder { return &sseDecoder{r: r} }

// Next returns (event, data, error). Event is often empty; data lines begin
// with "data: " and an empty line dispatches the pending event.
func (d *sseDecoder) Next() (string, []byte, error) {
	var event string
	var data []byte
	for {
		line, err := d.r.ReadBytes('\n')
		if err != nil {
			return "", nil, err
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 { // dispatch
			if len(data) == 0 {
				continue
			}
			return event, data, nil
		}
		if bytes.HasPrefix(line, []byte("event:")) {
			event = strings.TrimSpace(string(line[len("event:"):]))
		} else if bytes.HasPrefix(line, []byte("data:")) {
			data = append(data, bytes.TrimSpace(line[len("data:"):])...)
		}
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
