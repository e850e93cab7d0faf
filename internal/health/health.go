// Package health probes the external providers behind /readyz. A check
// failing means a turn started now would fail; it does not stop the server.
package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"voiceturn/agent/internal/config"
	"voiceturn/agent/internal/provider"
)

type CheckResult struct {
	Name    string        `json:"name"`
	OK      bool          `json:"ok"`
	Latency time.Duration `json:"latency_ms"`
	Error   string        `json:"error,omitempty"`
}

type HealthStatus struct {
	OK        bool          `json:"ok"`
	Checks    []CheckResult `json:"checks"`
	CheckedAt time.Time     `json:"checked_at"`
}

// CheckAll runs all provider checks and returns combined status.
func CheckAll(ctx context.Context, cfg config.Config) HealthStatus {
	checks := []CheckResult{
		checkOpenAI(ctx, cfg),
		checkSynthesis(ctx, cfg),
	}

	allOK := true
	for _, c := range checks {
		if !c.OK {
			allOK = false
		}
	}

	return HealthStatus{
		OK:        allOK,
		Checks:    checks,
		CheckedAt: time.Now().UTC(),
	}
}

// checkOpenAI lists models, the lightest authenticated call the API offers.
func checkOpenAI(ctx context.Context, cfg config.Config) CheckResult {
	start := time.Now()
	result := CheckResult{Name: "openai"}

	if cfg.OpenAI.APIKey == "" {
		result.Error = "OPENAI_API_KEY not set"
		result.Latency = time.Since(start)
		return result
	}

	url := strings.TrimRight(cfg.OpenAI.BaseURL, "/") + "/models"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		result.Error = fmt.Sprintf("request build failed: %v", err)
		result.Latency = time.Since(start)
		return result
	}
	req.Header.Set("Authorization", "Bearer "+cfg.OpenAI.APIKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		result.Latency = time.Since(start)
		return result
	}
	defer resp.Body.Close()

	result.Latency = time.Since(start)

	if resp.StatusCode == 401 {
		result.Error = "invalid API key (401)"
		return result
	}
	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		result.Error = fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body))
		return result
	}

	result.OK = true
	return result
}

// checkSynthesis exercises the same provider call the pipeline makes, with
// a one-character text. Works with TTS-only API keys.
func checkSynthesis(ctx context.Context, cfg config.Config) CheckResult {
	start := time.Now()
	result := CheckResult{Name: "elevenlabs"}

	if cfg.Eleven.APIKey == "" {
		result.Error = "ELEVENLABS_API_KEY not set"
		result.Latency = time.Since(start)
		return result
	}
	if cfg.Eleven.VoiceID == "" {
		result.Error = "ELEVENLABS_VOICE_ID not set"
		result.Latency = time.Since(start)
		return result
	}

	tts := provider.NewElevenLabsTTS(cfg.Eleven.BaseURL, cfg.Eleven.APIKey, cfg.Eleven.VoiceID, cfg.Eleven.ModelID)
	if _, err := tts.Synthesize(ctx, "."); err != nil {
		result.Error = err.Error()
		result.Latency = time.Since(start)
		return result
	}

	result.Latency = time.Since(start)
	result.OK = true
	return result
}
