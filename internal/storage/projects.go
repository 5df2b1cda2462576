package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/spexxxzzz/redditleads-sub002/internal/core/domain"
	apperrors "github.com/spexxxzzz/redditleads-sub002/internal/core/errors"
)

const projectColumns = `id, user_id, name, description, keywords, target_communities, competitors,
	plan, discovery_status, discovery_started_at, discovery_progress, last_manual_run_at,
	created_at, updated_at`

// CreateProject inserts a new project and returns its generated ID.
func (db *DB) CreateProject(ctx context.Context, p *domain.Project) (string, error) {
	var id pgtype.UUID

	err := db.Pool.QueryRow(ctx, `
		INSERT INTO projects (user_id, name, description, keywords, target_communities, competitors, plan)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		p.UserID, SanitizeUTF8(p.Name), SanitizeUTF8(p.Description),
		p.Keywords, p.TargetCommunities, p.Competitors, p.Plan,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("create project: %w", err)
	}

	return fromUUID(id), nil
}

// GetProject loads a project by ID.
func (db *DB) GetProject(ctx context.Context, projectID string) (*domain.Project, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, toUUID(projectID))

	project, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrProjectNotFound
		}

		return nil, fmt.Errorf("get project: %w", err)
	}

	return project, nil
}

// ListProjectsForUser loads all projects owned by a user, newest first.
func (db *DB) ListProjectsForUser(ctx context.Context, userID string) ([]domain.Project, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	return collectProjects(rows)
}

// ListIdleProjects returns projects whose last run (manual or scheduled)
// started before the cutoff and that are not currently running. Used by the
// auto-discovery worker.
func (db *DB) ListIdleProjects(ctx context.Context, cutoff time.Time) ([]domain.Project, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE discovery_status IS DISTINCT FROM $1
		  AND (discovery_started_at IS NULL OR discovery_started_at < $2)
		  AND (last_manual_run_at IS NULL OR last_manual_run_at < $2)
		  AND cardinality(keywords) > 0
		ORDER BY discovery_started_at NULLS FIRST`,
		domain.DiscoveryStatusRunning, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list idle projects: %w", err)
	}
	defer rows.Close()

	return collectProjects(rows)
}

// TryStartDiscovery atomically claims the project for a new discovery run.
// The claim succeeds when no run is recorded, the previous run reached a
// terminal state, or the recorded run is older than staleThreshold (a crashed
// run whose sweep has not fired yet). Returns false when a live run holds the
// claim. The check and the transition are a single conditional UPDATE, so two
// concurrent starts can never both succeed.
func (db *DB) TryStartDiscovery(ctx context.Context, projectID string, staleThreshold time.Duration, initial domain.DiscoveryProgress) (bool, error) {
	progress, err := json.Marshal(initial)
	if err != nil {
		return false, fmt.Errorf("marshal progress: %w", err)
	}

	tag, err := db.Pool.Exec(ctx, `
		UPDATE projects
		SET discovery_status = $2,
		    discovery_started_at = now(),
		    discovery_progress = $3,
		    updated_at = now()
		WHERE id = $1
		  AND (discovery_status IS DISTINCT FROM $2
		       OR discovery_started_at IS NULL
		       OR discovery_started_at < now() - make_interval(secs => $4))`,
		toUUID(projectID), domain.DiscoveryStatusRunning, progress, staleThreshold.Seconds())
	if err != nil {
		return false, fmt.Errorf("try start discovery: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// UpdateDiscoveryProgress overwrites the progress record of a live run.
// A no-op when the run is no longer marked running (swept or reset under us).
func (db *DB) UpdateDiscoveryProgress(ctx context.Context, projectID string, p domain.DiscoveryProgress) error {
	progress, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		UPDATE projects
		SET discovery_progress = $2, updated_at = now()
		WHERE id = $1 AND discovery_status = $3`,
		toUUID(projectID), progress, domain.DiscoveryStatusRunning)
	if err != nil {
		return fmt.Errorf("update discovery progress: %w", err)
	}

	return nil
}

// CompleteDiscovery transitions a running job to completed with its final
// progress record.
func (db *DB) CompleteDiscovery(ctx context.Context, projectID string, final domain.DiscoveryProgress) error {
	progress, err := json.Marshal(final)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}

	tag, err := db.Pool.Exec(ctx, `
		UPDATE projects
		SET discovery_status = $2, discovery_progress = $3, updated_at = now()
		WHERE id = $1 AND discovery_status = $4`,
		toUUID(projectID), domain.DiscoveryStatusCompleted, progress, domain.DiscoveryStatusRunning)
	if err != nil {
		return fmt.Errorf("complete discovery: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotRunning
	}

	return nil
}

// FailDiscovery transitions a running job to failed, recording the failure
// message in the progress record so polling clients can see it.
func (db *DB) FailDiscovery(ctx context.Context, projectID, message string) error {
	progress, err := json.Marshal(domain.DiscoveryProgress{
		Stage:   domain.StageFinalizing,
		Message: message,
	})
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}

	tag, err := db.Pool.Exec(ctx, `
		UPDATE projects
		SET discovery_status = $2,
		    discovery_started_at = NULL,
		    discovery_progress = $3,
		    updated_at = now()
		WHERE id = $1 AND discovery_status = $4`,
		toUUID(projectID), domain.DiscoveryStatusFailed, progress, domain.DiscoveryStatusRunning)
	if err != nil {
		return fmt.Errorf("fail discovery: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotRunning
	}

	return nil
}

// ResetDiscovery forces the job state back to not-started regardless of the
// current state. Operator override for stuck runs the sweep has not reaped.
func (db *DB) ResetDiscovery(ctx context.Context, projectID string) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE projects
		SET discovery_status = $2,
		    discovery_started_at = NULL,
		    discovery_progress = NULL,
		    updated_at = now()
		WHERE id = $1`,
		toUUID(projectID), domain.DiscoveryStatusNotStarted)
	if err != nil {
		return fmt.Errorf("reset discovery: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperrors.ErrProjectNotFound
	}

	return nil
}

// MarkStaleDiscoveries forces runs older than staleThreshold to failed and
// returns how many were swept. The staleness condition is re-checked inside
// the UPDATE, so a run that completed between detection and write is never
// clobbered.
func (db *DB) MarkStaleDiscoveries(ctx context.Context, staleThreshold time.Duration) (int64, error) {
	progress, err := json.Marshal(domain.DiscoveryProgress{
		Stage:   domain.StageFinalizing,
		Message: "Discovery timed out and was marked failed",
	})
	if err != nil {
		return 0, fmt.Errorf("marshal progress: %w", err)
	}

	tag, err := db.Pool.Exec(ctx, `
		UPDATE projects
		SET discovery_status = $1, discovery_progress = $2, updated_at = now()
		WHERE discovery_status = $3
		  AND discovery_started_at < now() - make_interval(secs => $4)`,
		domain.DiscoveryStatusFailed, progress, domain.DiscoveryStatusRunning, staleThreshold.Seconds())
	if err != nil {
		return 0, fmt.Errorf("mark stale discoveries: %w", err)
	}

	return tag.RowsAffected(), nil
}

// TouchLastManualRun records a user-triggered run for scheduling purposes.
func (db *DB) TouchLastManualRun(ctx context.Context, projectID string) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE projects SET last_manual_run_at = now(), updated_at = now() WHERE id = $1`,
		toUUID(projectID))
	if err != nil {
		return fmt.Errorf("touch last manual run: %w", err)
	}

	return nil
}

func collectProjects(rows pgx.Rows) ([]domain.Project, error) {
	var projects []domain.Project

	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}

		projects = append(projects, *project)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}

	return projects, nil
}

func scanProject(row pgx.Row) (*domain.Project, error) {
	var (
		p           domain.Project
		id          pgtype.UUID
		startedAt   pgtype.Timestamptz
		progressRaw []byte
		lastManual  pgtype.Timestamptz
		createdAt   pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
	)

	err := row.Scan(&id, &p.UserID, &p.Name, &p.Description, &p.Keywords,
		&p.TargetCommunities, &p.Competitors, &p.Plan, &p.DiscoveryStatus,
		&startedAt, &progressRaw, &lastManual, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	p.ID = fromUUID(id)
	p.DiscoveryStartedAt = fromTimestamptzPtr(startedAt)
	p.LastManualRunAt = fromTimestamptzPtr(lastManual)
	p.CreatedAt = fromTimestamptz(createdAt)
	p.UpdatedAt = fromTimestamptz(updatedAt)

	if len(progressRaw) > 0 {
		var progress domain.DiscoveryProgress
		if err := json.Unmarshal(progressRaw, &progress); err != nil {
			return nil, fmt.Errorf("unmarshal progress: %w", err)
		}

		p.DiscoveryProgress = &progress
	}

	return &p, nil
}
