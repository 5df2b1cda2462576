package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/spexxxzzz/redditleads-sub002/internal/core/domain"
	apperrors "github.com/spexxxzzz/redditleads-sub002/internal/core/errors"
	"github.com/spexxxzzz/redditleads-sub002/internal/platform/observability"
	"github.com/spexxxzzz/redditleads-sub002/internal/platform/worker"
	"github.com/spexxxzzz/redditleads-sub002/internal/process/ranking"
	"github.com/spexxxzzz/redditleads-sub002/internal/process/scoring"
	"github.com/spexxxzzz/redditleads-sub002/internal/process/session"
)

// Ingestor fetches candidate posts for a project. External collaborator;
// failures abort the run.
type Ingestor interface {
	Fetch(ctx context.Context, project *domain.Project) ([]domain.CandidatePost, error)
}

// SemanticScorer optionally enriches a candidate with a secondary relevance
// signal. Failures degrade to an unscored lead, never abort the run.
type SemanticScorer interface {
	Available() bool
	Score(ctx context.Context, post domain.CandidatePost, campaignDescription string) (*int, error)
}

// ReportFunc persists an in-run progress update.
type ReportFunc func(ctx context.Context, projectID string, p domain.DiscoveryProgress)

// RunnerConfig holds pipeline tunables.
type RunnerConfig struct {
	MaxLeadsPerSession int
	Diversify          bool

	IngestTimeout   time.Duration
	SemanticTimeout time.Duration
	PersistTimeout  time.Duration
}

// RunResult summarizes a completed run for the terminal progress record.
type RunResult struct {
	LeadsFound int
	Message    string
}

// Runner executes the discovery pipeline for one project: ingest, score,
// enrich, rank, batch, persist.
type Runner struct {
	repo     Repository
	ingestor Ingestor
	scorer   *scoring.Scorer
	semantic SemanticScorer
	ranker   *ranking.Ranker
	cfg      RunnerConfig
	logger   *zerolog.Logger
}

// NewRunner assembles a pipeline runner. semantic may be nil.
func NewRunner(repo Repository, ingestor Ingestor, scorer *scoring.Scorer, semantic SemanticScorer, ranker *ranking.Ranker, cfg RunnerConfig, logger *zerolog.Logger) *Runner {
	if cfg.MaxLeadsPerSession <= 0 {
		cfg.MaxLeadsPerSession = 20
	}

	if cfg.IngestTimeout <= 0 {
		cfg.IngestTimeout = 2 * time.Minute
	}

	if cfg.SemanticTimeout <= 0 {
		cfg.SemanticTimeout = 30 * time.Second
	}

	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 30 * time.Second
	}

	return &Runner{
		repo:     repo,
		ingestor: ingestor,
		scorer:   scorer,
		semantic: semantic,
		ranker:   ranker,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run executes the full pipeline and returns the session summary. Any
// returned error is recorded by the manager as a failed run.
func (r *Runner) Run(ctx context.Context, project *domain.Project, report ReportFunc) (RunResult, error) {
	report(ctx, project.ID, domain.DiscoveryProgress{
		Stage:   domain.StageSearching,
		Message: "Searching communities for relevant posts...",
	})

	posts, err := r.ingest(ctx, project)
	if err != nil {
		return RunResult{}, fmt.Errorf("%w: %s", apperrors.ErrIngestionFailed, err)
	}

	report(ctx, project.ID, domain.DiscoveryProgress{
		Stage:   domain.StageAnalyzing,
		Message: fmt.Sprintf("Analyzing %d posts...", len(posts)),
	})

	leads := r.scoreCandidates(ctx, project, posts)

	report(ctx, project.ID, domain.DiscoveryProgress{
		Stage:      domain.StageScoring,
		LeadsFound: len(leads),
		Message:    "Scoring and ranking leads...",
	})

	ranked := r.ranker.Rank(leads)

	remaining, err := r.remainingQuota(ctx, project)
	if err != nil {
		return RunResult{}, fmt.Errorf("quota check: %w", err)
	}

	batch := session.Batch(ranked, session.Options{
		MaxPerSession:  r.cfg.MaxLeadsPerSession,
		RemainingQuota: remaining,
		Diversify:      r.cfg.Diversify,
	})
	observability.SessionBatchSize.Observe(float64(len(batch.Selected)))

	report(ctx, project.ID, domain.DiscoveryProgress{
		Stage:      domain.StageFinalizing,
		LeadsFound: len(batch.Selected),
		Message:    "Saving leads...",
	})

	if _, err := r.persist(ctx, project, batch.Selected); err != nil {
		return RunResult{}, fmt.Errorf("persist leads: %w", err)
	}

	return RunResult{
		LeadsFound: len(batch.Selected),
		Message:    session.Message(batch, project.Plan),
	}, nil
}

func (r *Runner) ingest(ctx context.Context, project *domain.Project) ([]domain.CandidatePost, error) {
	var posts []domain.CandidatePost

	err := worker.RunWithTimeout(ctx, r.cfg.IngestTimeout, func(ctx context.Context) error {
		var err error
		posts, err = r.ingestor.Fetch(ctx, project)

		return err
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug().
		Str("project_id", project.ID).
		Int("posts", len(posts)).
		Msg("ingestion finished")

	return posts, nil
}

// scoreCandidates turns relevant candidates into unsaved leads. The semantic
// signal is attached when the collaborator is configured and answers in time.
func (r *Runner) scoreCandidates(ctx context.Context, project *domain.Project, posts []domain.CandidatePost) []domain.Lead {
	var leads []domain.Lead

	for _, post := range posts {
		result := r.scorer.Score(post, project.Keywords)
		observability.CandidatesScored.Inc()

		if !result.IsRelevant {
			continue
		}

		observability.CandidatesRelevant.Inc()

		lead := domain.Lead{
			ProjectID:        project.ID,
			UserID:           project.UserID,
			SourceID:         post.SourceID,
			Title:            post.Title,
			Body:             post.Body,
			Author:           post.Author,
			Community:        post.Community,
			URL:              post.URL,
			NumComments:      post.NumComments,
			UpvoteRatio:      post.UpvoteRatio,
			PostedAt:         post.PostedAt,
			OpportunityScore: result.Score,
			Status:           domain.LeadStatusNew,
		}
		lead.SemanticScore = r.semanticScore(ctx, post, project.Description)

		leads = append(leads, lead)
	}

	return leads
}

func (r *Runner) semanticScore(ctx context.Context, post domain.CandidatePost, description string) *int {
	if r.semantic == nil || !r.semantic.Available() {
		return nil
	}

	var score *int

	err := worker.RunWithTimeout(ctx, r.cfg.SemanticTimeout, func(ctx context.Context) error {
		var err error
		score, err = r.semantic.Score(ctx, post, description)

		return err
	})
	if err != nil {
		observability.EmbeddingRequests.WithLabelValues("error").Inc()
		r.logger.Debug().Err(err).Str("post", post.URL).Msg("semantic scoring failed, continuing without")

		return nil
	}

	observability.EmbeddingRequests.WithLabelValues("ok").Inc()

	return score
}

// remainingQuota computes the user's remaining monthly lead allowance.
func (r *Runner) remainingQuota(ctx context.Context, project *domain.Project) (int, error) {
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	used, err := r.repo.CountLeadsForUserSince(ctx, project.UserID, monthStart)
	if err != nil {
		return 0, err
	}

	return domain.PlanLeadLimit(project.Plan) - used, nil
}

func (r *Runner) persist(ctx context.Context, project *domain.Project, leads []domain.Lead) (int, error) {
	saved := 0

	err := worker.RunWithTimeout(ctx, r.cfg.PersistTimeout, func(ctx context.Context) error {
		for i := range leads {
			_, created, err := r.repo.UpsertLead(ctx, &leads[i])
			if err != nil {
				return err
			}

			outcome := "updated"
			if created {
				outcome = "created"
				saved++
			}

			observability.LeadsPersisted.WithLabelValues(outcome).Inc()
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	r.logger.Info().
		Str("project_id", project.ID).
		Int("selected", len(leads)).
		Int("created", saved).
		Msg("leads persisted")

	return saved, nil
}
