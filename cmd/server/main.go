package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"voiceturn/agent/internal/api"
	"voiceturn/agent/internal/config"
	"voiceturn/agent/internal/gateway"
	"voiceturn/agent/internal/provider"
	"voiceturn/agent/internal/session"
	"voiceturn/agent/internal/turn"
)

func main() {
	// Load .env file if present (ignored if missing)
	_ = godotenv.Load()

	cfg := config.Load()

	log := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.Server.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	root := log.WithField("service", "voiceturn")

	stt := provider.NewOpenAITranscriber(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.STTModel)
	llm := provider.NewOpenAIChat(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.ChatModel)
	tts := provider.NewElevenLabsTTS(cfg.Eleven.BaseURL, cfg.Eleven.APIKey, cfg.Eleven.VoiceID, cfg.Eleven.ModelID)

	pipeline := turn.New(stt, llm, tts, cfg.OpenAI.SystemPrompt, cfg.Chunker.MaxSegmentChars, root.WithField("component", "turn"))

	reg := session.NewRegistry()
	conns := gateway.NewRegistry()
	gw := gateway.NewServer(cfg, reg, conns, pipeline, root.WithField("component", "gateway"))

	h := api.NewHandlers(cfg, reg)
	mux := api.NewRouter(h, gw.HandleSessionWS)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           logMiddleware(mux, root),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigc
		root.Info("shutdown signal received; stopping server")
		// Close websockets before draining HTTP; their handlers are
		// hijacked and Shutdown would not wait for them.
		conns.CloseAll("server shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	root.WithField("addr", addr).Info("server starting")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		root.WithError(err).Error("server error")
		os.Exit(1)
	}
}

func logMiddleware(next http.Handler, log *logrus.Entry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Debug("request")
	})
}
