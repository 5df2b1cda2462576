// Package discovery orchestrates lead discovery runs.
//
// The manager owns the per-project job state machine (not started, running,
// completed, failed). The running state doubles as a lock: claiming it is a
// single conditional UPDATE at the storage layer, so two concurrent starts
// can never both succeed, across any number of instances. Everything past
// the claim happens out of band; callers poll Progress.
package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/spexxxzzz/redditleads-sub002/internal/core/domain"
	apperrors "github.com/spexxxzzz/redditleads-sub002/internal/core/errors"
	"github.com/spexxxzzz/redditleads-sub002/internal/platform/cache"
	"github.com/spexxxzzz/redditleads-sub002/internal/platform/observability"
	"github.com/spexxxzzz/redditleads-sub002/internal/platform/worker"
	db "github.com/spexxxzzz/redditleads-sub002/internal/storage"
)

// Repository is the persistence surface the discovery subsystem needs.
type Repository interface {
	GetProject(ctx context.Context, projectID string) (*domain.Project, error)
	TryStartDiscovery(ctx context.Context, projectID string, staleThreshold time.Duration, initial domain.DiscoveryProgress) (bool, error)
	UpdateDiscoveryProgress(ctx context.Context, projectID string, p domain.DiscoveryProgress) error
	CompleteDiscovery(ctx context.Context, projectID string, final domain.DiscoveryProgress) error
	FailDiscovery(ctx context.Context, projectID, message string) error
	ResetDiscovery(ctx context.Context, projectID string) error
	MarkStaleDiscoveries(ctx context.Context, staleThreshold time.Duration) (int64, error)
	TouchLastManualRun(ctx context.Context, projectID string) error
	ListIdleProjects(ctx context.Context, cutoff time.Time) ([]domain.Project, error)
	UpsertLead(ctx context.Context, lead *domain.Lead) (string, bool, error)
	CountLeadsForUserSince(ctx context.Context, userID string, since time.Time) (int, error)
}

var _ Repository = (*db.DB)(nil)

// Status is the poll payload for a project's discovery job.
type Status struct {
	Status            string `json:"status"`
	Stage             string `json:"stage"`
	LeadsFound        int    `json:"leadsFound"`
	Message           string `json:"message"`
	EstimatedTimeLeft int    `json:"estimatedTimeLeft"`
}

// apiStatusNotStarted is how the empty stored state reads on the wire.
const apiStatusNotStarted = "not_started"

// initialMessage is the progress message written by a successful claim.
const initialMessage = "Starting discovery process..."

// Config holds manager tunables.
type Config struct {
	// StaleThreshold is how old a recorded run must be before a new start may
	// take it over and before the sweep forces it to failed.
	StaleThreshold time.Duration

	// RunTimeout bounds a whole discovery run.
	RunTimeout time.Duration

	// ProgressCacheTTL bounds how stale a cached poll response may be.
	ProgressCacheTTL time.Duration
}

// Manager drives discovery runs and serves progress polls.
type Manager struct {
	repo   Repository
	runner *Runner
	cfg    Config
	cache  *cache.TTL[string, Status]
	logger *zerolog.Logger

	// base is the lifecycle context for out-of-band runs, detached from the
	// request context that triggered them.
	base context.Context
}

// NewManager creates a discovery manager. base bounds the lifetime of
// background runs; it should be the process context, not a request context.
func NewManager(base context.Context, repo Repository, runner *Runner, cfg Config, logger *zerolog.Logger) *Manager {
	if cfg.StaleThreshold <= 0 {
		cfg.StaleThreshold = 30 * time.Minute
	}

	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = cfg.StaleThreshold
	}

	if cfg.ProgressCacheTTL <= 0 {
		cfg.ProgressCacheTTL = 2 * time.Second
	}

	return &Manager{
		repo:   repo,
		runner: runner,
		cfg:    cfg,
		cache:  cache.NewTTL[string, Status](cfg.ProgressCacheTTL),
		logger: logger,
		base:   base,
	}
}

// Start begins a discovery run for the project and returns immediately.
// Returns ErrAlreadyRunning when a live run holds the claim, ErrNoKeywords
// when the project has nothing to search with.
func (m *Manager) Start(ctx context.Context, projectID string) error {
	return m.start(ctx, projectID, true)
}

// StartScheduled is Start for the auto-discovery worker: identical except it
// does not stamp the manual-run marker.
func (m *Manager) StartScheduled(ctx context.Context, projectID string) error {
	return m.start(ctx, projectID, false)
}

func (m *Manager) start(ctx context.Context, projectID string, manual bool) error {
	project, err := m.repo.GetProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("load project: %w", err)
	}

	if len(project.Keywords) == 0 {
		return apperrors.ErrNoKeywords
	}

	claimed, err := m.repo.TryStartDiscovery(ctx, projectID, m.cfg.StaleThreshold, domain.DiscoveryProgress{
		Stage:   domain.StageInitializing,
		Message: initialMessage,
	})
	if err != nil {
		return fmt.Errorf("claim discovery run: %w", err)
	}

	if !claimed {
		observability.DiscoveryRejectedStarts.Inc()

		return apperrors.ErrAlreadyRunning
	}

	if manual {
		if err := m.repo.TouchLastManualRun(ctx, projectID); err != nil {
			m.logger.Warn().Err(err).Str("project_id", projectID).Msg("failed to stamp manual run")
		}
	}

	m.cache.Invalidate(projectID)

	m.logger.Info().
		Str("project_id", projectID).
		Bool("manual", manual).
		Msg("discovery run started")

	go m.run(project)

	return nil
}

// run executes the pipeline out of band and records the terminal state.
func (m *Manager) run(project *domain.Project) {
	defer worker.RecoverPanic(m.logger, "discovery run")

	start := time.Now()

	ctx, cancel := context.WithTimeout(m.base, m.cfg.RunTimeout)
	defer cancel()

	result, err := m.runner.Run(ctx, project, m.reportProgress)

	observability.DiscoveryRunDuration.Observe(time.Since(start).Seconds())

	// The terminal write must land even when the run context expired.
	writeCtx, writeCancel := context.WithTimeout(context.WithoutCancel(m.base), 10*time.Second)
	defer writeCancel()

	if err != nil {
		m.logger.Error().Err(err).Str("project_id", project.ID).Msg("discovery run failed")
		observability.DiscoveryRuns.WithLabelValues(domain.DiscoveryStatusFailed).Inc()

		if failErr := m.repo.FailDiscovery(writeCtx, project.ID, err.Error()); failErr != nil {
			m.logger.Error().Err(failErr).Str("project_id", project.ID).Msg("failed to record run failure")
		}
	} else {
		observability.DiscoveryRuns.WithLabelValues(domain.DiscoveryStatusCompleted).Inc()

		final := domain.DiscoveryProgress{
			Stage:      domain.StageFinalizing,
			LeadsFound: result.LeadsFound,
			Message:    result.Message,
		}
		if err := m.repo.CompleteDiscovery(writeCtx, project.ID, final); err != nil {
			m.logger.Error().Err(err).Str("project_id", project.ID).Msg("failed to record run completion")
		}

		m.logger.Info().
			Str("project_id", project.ID).
			Int("leads_found", result.LeadsFound).
			Dur("duration", time.Since(start)).
			Msg("discovery run completed")
	}

	m.cache.Invalidate(project.ID)
}

// reportProgress persists an in-run progress update. Best effort: a lost
// update only delays what pollers see.
func (m *Manager) reportProgress(ctx context.Context, projectID string, p domain.DiscoveryProgress) {
	if err := m.repo.UpdateDiscoveryProgress(ctx, projectID, p); err != nil {
		m.logger.Warn().Err(err).Str("project_id", projectID).Msg("failed to update progress")
	}

	m.cache.Invalidate(projectID)
}

// Progress returns the poll payload for a project. Cheap and side-effect
// free; responses are cached for a short TTL.
func (m *Manager) Progress(ctx context.Context, projectID string) (Status, error) {
	if status, ok := m.cache.Get(projectID); ok {
		observability.ProgressCacheHits.Inc()

		return status, nil
	}

	observability.ProgressCacheMisses.Inc()

	project, err := m.repo.GetProject(ctx, projectID)
	if err != nil {
		return Status{}, fmt.Errorf("load project: %w", err)
	}

	status := buildStatus(project, time.Now())
	m.cache.Set(projectID, status)

	return status, nil
}

// Reset forces the job state back to not started. Administrative override
// for stuck runs the sweep has not yet reaped.
func (m *Manager) Reset(ctx context.Context, projectID string) error {
	if err := m.repo.ResetDiscovery(ctx, projectID); err != nil {
		return fmt.Errorf("reset discovery: %w", err)
	}

	m.cache.Invalidate(projectID)

	m.logger.Info().Str("project_id", projectID).Msg("discovery state reset")

	return nil
}

// Stage time budgets in seconds, used only for the poll's rough remaining
// estimate. The pipeline does not pace itself by these.
var stageBudgets = map[string]int{
	domain.StageInitializing: 75,
	domain.StageSearching:    60,
	domain.StageAnalyzing:    30,
	domain.StageScoring:      15,
	domain.StageFinalizing:   5,
}

func buildStatus(project *domain.Project, now time.Time) Status {
	status := Status{Status: project.DiscoveryStatus}
	if status.Status == domain.DiscoveryStatusNotStarted {
		status.Status = apiStatusNotStarted
	}

	if p := project.DiscoveryProgress; p != nil {
		status.Stage = p.Stage
		status.LeadsFound = p.LeadsFound
		status.Message = p.Message
	}

	if project.IsRunning() {
		status.EstimatedTimeLeft = estimateTimeLeft(status.Stage, project.DiscoveryStartedAt, now)
	}

	return status
}

// estimateTimeLeft maps the current stage to its remaining budget, shrunk by
// run elapsed time and floored at zero.
func estimateTimeLeft(stage string, startedAt *time.Time, now time.Time) int {
	budget, ok := stageBudgets[stage]
	if !ok {
		budget = stageBudgets[domain.StageInitializing]
	}

	if startedAt != nil {
		budget -= int(now.Sub(*startedAt).Seconds())
	}

	if budget < 0 {
		return 0
	}

	return budget
}
