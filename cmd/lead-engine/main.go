package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/spexxxzzz/redditleads-sub002/internal/app"
	"github.com/spexxxzzz/redditleads-sub002/internal/platform/config"
	db "github.com/spexxxzzz/redditleads-sub002/internal/storage"
)

func main() {
	mode := flag.String("mode", "", "Service mode (server, worker, discover, sweep)")
	project := flag.String("project", "", "Project ID (for discover mode)")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.New(ctx, cfg.PostgresDSN, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	application := app.New(cfg, database, &logger)

	// Start health server in background
	go func() {
		if err := application.StartHealthServer(ctx); err != nil {
			logger.Error().Err(err).Msg("health check server error")
		}
	}()

	if err := runMode(ctx, application, *mode, *project); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("application stopped")
			return
		}

		logger.Fatal().Err(err).Msg("application error")
	}
}

func newLogger(appEnv string) zerolog.Logger {
	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func runMode(ctx context.Context, application *app.App, mode, project string) error {
	switch mode {
	case "server":
		return application.RunServer(ctx)
	case "worker":
		return application.RunWorker(ctx)
	case "discover":
		return application.RunDiscover(ctx, project)
	case "sweep":
		return application.RunSweep(ctx)
	default:
		log.Fatalf("Usage: %s --mode=[server|worker|discover|sweep]", os.Args[0])

		return nil
	}
}
