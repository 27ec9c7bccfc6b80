package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/selio/selio"
)

func main() {
	cfg := defaultConfig()

	configPath := flag.String("config", "", "Path to ini config file")
	flag.StringVar(&cfg.Listen, "listen", cfg.Listen, "Listen address")
	flag.StringVar(&cfg.Mode, "mode", cfg.Mode, "Reply mode (echo, lines)")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.Parse()

	if *configPath != "" {
		loaded, err := loadConfig(*configPath)
		if err != nil {
			// Use plain stderr before the logger exists.
			fmt.Fprintf(os.Stderr, "Fatal: failed to load config file '%s': %v\n", *configPath, err)
			os.Exit(1)
		}
		// Flags given on the command line win over the file.
		flag.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "listen":
				loaded.Listen = cfg.Listen
			case "mode":
				loaded.Mode = cfg.Mode
			case "log-level":
				loaded.LogLevel = cfg.LogLevel
			}
		})
		cfg = loaded
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()

	handler := echoHandler
	switch cfg.Mode {
	case "echo":
	case "lines":
		handler = lineHandler
	default:
		log.Fatal().Str("mode", cfg.Mode).Msg("unknown reply mode")
	}

	sock, err := selio.Listen(cfg.Listen)
	if err != nil {
		log.Fatal().Err(err).Str("listen", cfg.Listen).Msg("cannot open listening socket")
	}

	sched := selio.New(selio.WithLogger(log.With().Str("component", "scheduler").Logger()))
	sched.Submit(context.Background(), acceptLoop(sock, handler, cfg.RecvSize, log))

	log.Info().Str("listen", cfg.Listen).Str("mode", cfg.Mode).Msg("echo server running")
	if err := sched.Run(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("scheduler stopped")
	}
}
