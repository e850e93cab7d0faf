// Reference client: streams a raw PCM16 file as the user's voice and
// writes the synthesized replies to a file or stdout.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"voiceturn/agent/internal/client"
	"voiceturn/agent/internal/config"
)

func main() {
	_ = godotenv.Load()

	var (
		serverURL = flag.String("server", "ws://localhost:8080/ws", "session websocket URL")
		inPath    = flag.String("in", "", "raw PCM16 mono input file (required)")
		outPath   = flag.String("out", "", "output file for reply audio (default stdout)")
		turns     = flag.Int("turns", 1, "number of turns to run, 0 for unlimited")
		logLevel  = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	log := logrus.New()
	if lvl, err := logrus.ParseLevel(*logLevel); err == nil {
		log.SetLevel(lvl)
	}
	root := log.WithField("service", "voiceturn-client")

	if *inPath == "" {
		root.Fatal("-in is required")
	}
	in, err := os.Open(*inPath)
	if err != nil {
		root.WithError(err).Fatal("open input")
	}
	defer in.Close()

	out := os.Stdout
	if *outPath != "" {
		out, err = os.Create(*outPath)
		if err != nil {
			root.WithError(err).Fatal("create output")
		}
		defer out.Close()
	}

	cfg := config.Load()

	capture := client.NewPCMCapture(in, cfg.Audio.SampleRateHz, cfg.Audio.ChunkIntervalMs)
	playback := client.NewWriterPlayback(out, 0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(cfg, *serverURL, capture, playback, *turns, root)
	if err := c.Run(ctx); err != nil && ctx.Err() == nil {
		root.WithError(err).Fatal("client run failed")
	}
	root.Info("done")
}
