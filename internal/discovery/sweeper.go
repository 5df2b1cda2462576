package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/spexxxzzz/redditleads-sub002/internal/platform/observability"
	"github.com/spexxxzzz/redditleads-sub002/internal/platform/worker"
)

// sweeperLockID serializes sweep passes across instances.
const sweeperLockID = 2001

// Locker is the advisory-lock surface used for cross-instance exclusion.
type Locker interface {
	TryAcquireAdvisoryLock(ctx context.Context, lockID int64) (bool, error)
	ReleaseAdvisoryLock(ctx context.Context, lockID int64) error
}

// Sweeper periodically forces stuck discovery runs to failed. A run is stuck
// when it has been marked running for longer than the staleness threshold,
// which in practice means the owning process crashed before writing a
// terminal state.
type Sweeper struct {
	repo      Repository
	locker    Locker
	threshold time.Duration
	interval  time.Duration
	logger    *zerolog.Logger
}

// NewSweeper creates a sweeper.
func NewSweeper(repo Repository, locker Locker, threshold, interval time.Duration, logger *zerolog.Logger) *Sweeper {
	if threshold <= 0 {
		threshold = 30 * time.Minute
	}

	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &Sweeper{
		repo:      repo,
		locker:    locker,
		threshold: threshold,
		interval:  interval,
		logger:    logger,
	}
}

// Run blocks, sweeping at the configured interval until ctx is canceled.
func (s *Sweeper) Run(ctx context.Context) error {
	return worker.Loop(ctx, worker.Config{
		Name:         "stale-discovery-sweeper",
		PollInterval: s.interval,
		Process:      s.sweep,
		Logger:       s.logger,
	})
}

// sweep runs one pass. The staleness condition is re-checked inside the
// storage UPDATE, so a run finishing between detection and write is left
// alone.
func (s *Sweeper) sweep(ctx context.Context) error {
	acquired, err := s.locker.TryAcquireAdvisoryLock(ctx, sweeperLockID)
	if err != nil {
		return fmt.Errorf("acquire sweep lock: %w", err)
	}

	if !acquired {
		s.logger.Debug().Msg("sweep lock held elsewhere, skipping pass")

		return nil
	}

	defer func() {
		if err := s.locker.ReleaseAdvisoryLock(ctx, sweeperLockID); err != nil {
			s.logger.Warn().Err(err).Msg("failed to release sweep lock")
		}
	}()

	start := time.Now()

	swept, err := s.repo.MarkStaleDiscoveries(ctx, s.threshold)
	if err != nil {
		return fmt.Errorf("mark stale discoveries: %w", err)
	}

	observability.SweepDuration.Observe(time.Since(start).Seconds())

	if swept > 0 {
		observability.StaleRunsSwept.Add(float64(swept))
		s.logger.Warn().Int64("swept", swept).Msg("forced stale discovery runs to failed")
	}

	return nil
}
