package config

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port     string
		LogLevel string
	}
	Audio struct {
		MinUtteranceBytes int
		ChunkIntervalMs   int
		SampleRateHz      int
	}
	VAD struct {
		SilenceWindowMs  int
		VolumeThreshold  float64
		SampleIntervalMs int
	}
	Chunker struct {
		MaxSegmentChars int
	}
	OpenAI struct {
		APIKey       string
		BaseURL      string
		ChatModel    string
		STTModel     string
		SystemPrompt string
	}
	Eleven struct {
		APIKey  string
		VoiceID string
		BaseURL string
		ModelID string
	}
}

func Load() Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("audio.min_utterance_bytes", 1000)
	v.SetDefault("audio.chunk_interval_ms", 100)
	v.SetDefault("audio.sample_rate_hz", 16000)

	v.SetDefault("vad.silence_window_ms", 1500)
	v.SetDefault("vad.volume_threshold", 0.1)
	v.SetDefault("vad.sample_interval_ms", 20)

	v.SetDefault("chunker.max_segment_chars", 50)

	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.chat_model", "gpt-4o-mini")
	v.SetDefault("openai.stt_model", "whisper-1")
	v.SetDefault("openai.system_prompt", "You are a friendly voice assistant. Keep replies short and conversational.")

	v.SetDefault("elevenlabs.base_url", "https://api.elevenlabs.io")
	v.SetDefault("elevenlabs.model_id", "eleven_turbo_v2")

	// Map envs
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.log_level", "LOG_LEVEL")

	v.BindEnv("audio.min_utterance_bytes", "MIN_UTTERANCE_BYTES")
	v.BindEnv("audio.chunk_interval_ms", "CHUNK_INTERVAL_MS")
	v.BindEnv("audio.sample_rate_hz", "AUDIO_SAMPLE_RATE_HZ")

	v.BindEnv("vad.silence_window_ms", "VAD_SILENCE_WINDOW_MS")
	v.BindEnv("vad.volume_threshold", "VAD_VOLUME_THRESHOLD")
	v.BindEnv("vad.sample_interval_ms", "VAD_SAMPLE_INTERVAL_MS")

	v.BindEnv("chunker.max_segment_chars", "TTS_MAX_SEGMENT_CHARS")

	v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("openai.base_url", "OPENAI_BASE_URL")
	v.BindEnv("openai.chat_model", "OPENAI_CHAT_MODEL")
	v.BindEnv("openai.stt_model", "OPENAI_STT_MODEL")
	v.BindEnv("openai.system_prompt", "OPENAI_SYSTEM_PROMPT")

	v.BindEnv("elevenlabs.api_key", "ELEVENLABS_API_KEY")
	v.BindEnv("elevenlabs.voice_id", "ELEVENLABS_VOICE_ID")
	v.BindEnv("elevenlabs.base_url", "ELEVENLABS_BASE_URL")
	v.BindEnv("elevenlabs.model_id", "ELEVENLABS_MODEL_ID")

	var c Config
	c.Server.Port = toString(v.Get("server.port"))
	c.Server.LogLevel = v.GetString("server.log_level")

	c.Audio.MinUtteranceBytes = v.GetInt("audio.min_utterance_bytes")
	c.Audio.ChunkIntervalMs = v.GetInt("audio.chunk_interval_ms")
	c.Audio.SampleRateHz = v.GetInt("audio.sample_rate_hz")

	c.VAD.SilenceWindowMs = v.GetInt("vad.silence_window_ms")
	c.VAD.VolumeThreshold = v.GetFloat64("vad.volume_threshold")
	c.VAD.SampleIntervalMs = v.GetInt("vad.sample_interval_ms")

	c.Chunker.MaxSegmentChars = v.GetInt("chunker.max_segment_chars")

	c.OpenAI.APIKey = v.GetString("openai.api_key")
	c.OpenAI.BaseURL = v.GetString("openai.base_url")
	c.OpenAI.ChatModel = v.GetString("openai.chat_model")
	c.OpenAI.STTModel = v.GetString("openai.stt_model")
	c.OpenAI.SystemPrompt = v.GetString("openai.system_prompt")

	c.Eleven.APIKey = v.GetString("elevenlabs.api_key")
	c.Eleven.VoiceID = v.GetString("elevenlabs.voice_id")
	c.Eleven.BaseURL = v.GetString("elevenlabs.base_url")
	c.Eleven.ModelID = v.GetString("elevenlabs.model_id")

	logrus.WithFields(logrus.Fields{
		"port":              c.Server.Port,
		"min_utterance":     c.Audio.MinUtteranceBytes,
		"max_segment_chars": c.Chunker.MaxSegmentChars,
	}).Info("config loaded")
	return c
}

func toString(v any) string { return fmt.Sprint(v) }
