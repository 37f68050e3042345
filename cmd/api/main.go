package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/markdave123-py/pdfdesk/internal/app"
	"github.com/markdave123-py/pdfdesk/internal/config"
	"github.com/markdave123-py/pdfdesk/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	log := observability.NewLogger(observability.LogConfig{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Output:      os.Stdout,
		ServiceName: "pdfdesk",
	})

	application, err := app.NewApp(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer application.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- application.Server.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server error")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := application.Server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}
