// Package app provides the main application bootstrap and runtime orchestration.
//
// The App type wires together all dependencies and exposes methods to run
// different operational modes:
//
//   - Server mode: HTTP API for triggering discovery, polling progress, and
//     reviewing leads, plus the health/metrics server
//   - Worker mode: stuck-run sweeper and (optionally) scheduled auto-discovery
//   - Discover mode: one-shot discovery run for a single project
//   - Sweep mode: one-shot sweep pass
//
// Each mode can be run independently or combined based on deployment needs.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/spexxxzzz/redditleads-sub002/internal/api"
	"github.com/spexxxzzz/redditleads-sub002/internal/core/domain"
	apperrors "github.com/spexxxzzz/redditleads-sub002/internal/core/errors"
	"github.com/spexxxzzz/redditleads-sub002/internal/discovery"
	"github.com/spexxxzzz/redditleads-sub002/internal/ingest"
	"github.com/spexxxzzz/redditleads-sub002/internal/platform/config"
	"github.com/spexxxzzz/redditleads-sub002/internal/platform/observability"
	"github.com/spexxxzzz/redditleads-sub002/internal/process/ranking"
	"github.com/spexxxzzz/redditleads-sub002/internal/process/scoring"
	"github.com/spexxxzzz/redditleads-sub002/internal/process/semantic"
	db "github.com/spexxxzzz/redditleads-sub002/internal/storage"
)

// App holds the application dependencies and provides methods to run
// different modes.
type App struct {
	cfg      *config.Config
	database *db.DB
	logger   *zerolog.Logger
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	return &App{
		cfg:      cfg,
		database: database,
		logger:   logger,
	}
}

// StartHealthServer starts the health check and metrics server.
func (a *App) StartHealthServer(ctx context.Context) error {
	server := observability.NewServer(a.database, a.cfg.HealthPort, a.logger)

	return server.Start(ctx)
}

// newManager assembles the discovery manager with its full pipeline.
func (a *App) newManager(ctx context.Context) *discovery.Manager {
	scorerLogger := a.component("scoring")
	runnerLogger := a.component("discovery")

	var sem discovery.SemanticScorer
	if a.cfg.OpenAIAPIKey != "" {
		provider := semantic.NewOpenAIProvider(semantic.Config{
			APIKey:    a.cfg.OpenAIAPIKey,
			Model:     a.cfg.EmbeddingModel,
			RateLimit: a.cfg.RateLimitRPS,
		})
		sem = semantic.NewScorer(provider)

		a.logger.Info().Str("model", a.cfg.EmbeddingModel).Msg("semantic scoring enabled")
	}

	ingestor := ingest.NewRedditClient(float64(a.cfg.RateLimitRPS), a.component("ingest"))

	runner := discovery.NewRunner(
		a.database,
		ingestor,
		scoring.New(scoring.DefaultConfig(), scorerLogger),
		sem,
		ranking.New(ranking.DefaultConfig()),
		discovery.RunnerConfig{
			MaxLeadsPerSession: a.cfg.MaxLeadsPerSession,
			Diversify:          a.cfg.DiversityEnabled,
			IngestTimeout:      a.cfg.IngestTimeout,
			SemanticTimeout:    a.cfg.SemanticScoreTimeout,
			PersistTimeout:     a.cfg.PersistTimeout,
		},
		runnerLogger,
	)

	return discovery.NewManager(ctx, a.database, runner, discovery.Config{
		StaleThreshold:   a.cfg.StaleThreshold,
		ProgressCacheTTL: a.cfg.ProgressCacheTTL,
	}, runnerLogger)
}

// RunServer runs the HTTP API until ctx is canceled.
func (a *App) RunServer(ctx context.Context) error {
	manager := a.newManager(ctx)
	handler := api.NewHandler(manager, a.database, a.component("api"))
	server := api.NewServer(handler, a.cfg.HTTPPort, a.component("api"))

	return server.Start(ctx)
}

// RunWorker runs the background workers until ctx is canceled.
func (a *App) RunWorker(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	sweeper := discovery.NewSweeper(a.database, a.database,
		a.cfg.StaleThreshold, a.cfg.SweepInterval, a.component("sweeper"))

	group.Go(func() error {
		return sweeper.Run(ctx)
	})

	if a.cfg.AutoDiscoveryEnabled {
		manager := a.newManager(ctx)
		auto := discovery.NewAutoDiscovery(manager, a.database, a.database,
			a.cfg.AutoDiscoveryInterval, a.cfg.WorkerPollInterval, a.component("auto-discovery"))

		group.Go(func() error {
			return auto.Run(ctx)
		})
	}

	return group.Wait()
}

// RunDiscover triggers a single discovery run for one project and waits for
// its terminal state.
func (a *App) RunDiscover(ctx context.Context, projectID string) error {
	if projectID == "" {
		return fmt.Errorf("%w: project id required", apperrors.ErrInvalidInput)
	}

	manager := a.newManager(ctx)

	if err := manager.Start(ctx, projectID); err != nil {
		return fmt.Errorf("start discovery: %w", err)
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		status, err := manager.Progress(ctx, projectID)
		if err != nil {
			return fmt.Errorf("poll progress: %w", err)
		}

		switch status.Status {
		case domain.DiscoveryStatusCompleted:
			a.logger.Info().Int("leads_found", status.LeadsFound).Msg(status.Message)

			return nil
		case domain.DiscoveryStatusFailed:
			return errors.New(status.Message)
		}
	}
}

// RunSweep runs a single sweep pass and exits.
func (a *App) RunSweep(ctx context.Context) error {
	swept, err := a.database.MarkStaleDiscoveries(ctx, a.cfg.StaleThreshold)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	a.logger.Info().Int64("swept", swept).Msg("sweep finished")

	return nil
}

func (a *App) component(name string) *zerolog.Logger {
	logger := a.logger.With().Str("component", name).Logger()

	return &logger
}
