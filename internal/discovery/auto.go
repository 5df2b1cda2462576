package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/spexxxzzz/redditleads-sub002/internal/core/errors"
	"github.com/spexxxzzz/redditleads-sub002/internal/platform/worker"
)

// autoDiscoveryLockID serializes scheduled scans across instances.
const autoDiscoveryLockID = 2002

// AutoDiscovery periodically kicks off discovery for projects that have not
// run in a while, so leads keep flowing without a manual trigger.
type AutoDiscovery struct {
	manager  *Manager
	repo     Repository
	locker   Locker
	interval time.Duration
	poll     time.Duration
	logger   *zerolog.Logger
}

// NewAutoDiscovery creates the scheduled-discovery worker. interval is how
// long a project may sit idle before it is due; poll is how often due
// projects are scanned for.
func NewAutoDiscovery(manager *Manager, repo Repository, locker Locker, interval, poll time.Duration, logger *zerolog.Logger) *AutoDiscovery {
	if interval <= 0 {
		interval = 30 * time.Hour
	}

	if poll <= 0 {
		poll = time.Minute
	}

	return &AutoDiscovery{
		manager:  manager,
		repo:     repo,
		locker:   locker,
		interval: interval,
		poll:     poll,
		logger:   logger,
	}
}

// Run blocks, scanning for due projects until ctx is canceled.
func (a *AutoDiscovery) Run(ctx context.Context) error {
	return worker.Loop(ctx, worker.Config{
		Name:         "auto-discovery",
		PollInterval: a.poll,
		Process:      a.scan,
		Logger:       a.logger,
	})
}

func (a *AutoDiscovery) scan(ctx context.Context) error {
	acquired, err := a.locker.TryAcquireAdvisoryLock(ctx, autoDiscoveryLockID)
	if err != nil {
		return fmt.Errorf("acquire auto-discovery lock: %w", err)
	}

	if !acquired {
		return nil
	}

	defer func() {
		if err := a.locker.ReleaseAdvisoryLock(ctx, autoDiscoveryLockID); err != nil {
			a.logger.Warn().Err(err).Msg("failed to release auto-discovery lock")
		}
	}()

	cutoff := time.Now().Add(-a.interval)

	projects, err := a.repo.ListIdleProjects(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list idle projects: %w", err)
	}

	for _, project := range projects {
		err := a.manager.StartScheduled(ctx, project.ID)

		switch {
		case err == nil:
			a.logger.Info().Str("project_id", project.ID).Msg("scheduled discovery started")
		case errors.Is(err, apperrors.ErrAlreadyRunning):
			// Someone beat us to it; fine.
		case errors.Is(err, apperrors.ErrNoKeywords):
			a.logger.Debug().Str("project_id", project.ID).Msg("skipping project without keywords")
		default:
			a.logger.Error().Err(err).Str("project_id", project.ID).Msg("scheduled discovery failed to start")
		}
	}

	return nil
}
