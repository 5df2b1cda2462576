package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/spexxxzzz/redditleads-sub002/internal/core/domain"
	apperrors "github.com/spexxxzzz/redditleads-sub002/internal/core/errors"
)

const leadColumns = `id, project_id, user_id, source_id, title, body, author, community, url,
	num_comments, upvote_ratio, posted_at, opportunity_score, semantic_score, status, discovered_at`

// UpsertLead inserts a lead or, when the project already has a lead for the
// same URL, refreshes its scores and engagement numbers. User-set status is
// never overwritten. Returns the lead ID and whether a new row was created.
func (db *DB) UpsertLead(ctx context.Context, lead *domain.Lead) (string, bool, error) {
	var (
		id      pgtype.UUID
		created bool
	)

	postedAt := pgtype.Timestamptz{Time: lead.PostedAt, Valid: !lead.PostedAt.IsZero()}

	err := db.Pool.QueryRow(ctx, `
		INSERT INTO leads (project_id, user_id, source_id, title, body, author, community, url,
			num_comments, upvote_ratio, posted_at, opportunity_score, semantic_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (project_id, url) DO UPDATE
		SET num_comments = EXCLUDED.num_comments,
		    upvote_ratio = EXCLUDED.upvote_ratio,
		    opportunity_score = EXCLUDED.opportunity_score,
		    semantic_score = COALESCE(EXCLUDED.semantic_score, leads.semantic_score)
		RETURNING id, (xmax = 0)`,
		toUUID(lead.ProjectID), lead.UserID, lead.SourceID,
		SanitizeUTF8(lead.Title), SanitizeUTF8(lead.Body), lead.Author, lead.Community, lead.URL,
		lead.NumComments, lead.UpvoteRatio, postedAt,
		lead.OpportunityScore, toInt4Ptr(lead.SemanticScore),
	).Scan(&id, &created)
	if err != nil {
		return "", false, fmt.Errorf("upsert lead: %w", err)
	}

	return fromUUID(id), created, nil
}

// ListLeads loads leads for a project, optionally filtered by status, newest
// discovery first.
func (db *DB) ListLeads(ctx context.Context, projectID, status string) ([]domain.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE project_id = $1`
	args := []any{toUUID(projectID)}

	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}

	query += ` ORDER BY discovered_at DESC, opportunity_score DESC`

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var leads []domain.Lead

	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}

		leads = append(leads, *lead)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}

	return leads, nil
}

// GetLead loads a single lead by ID.
func (db *DB) GetLead(ctx context.Context, leadID string) (*domain.Lead, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1`, toUUID(leadID))

	lead, err := scanLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrLeadNotFound
		}

		return nil, fmt.Errorf("get lead: %w", err)
	}

	return lead, nil
}

// UpdateLeadStatus sets the user-facing status of a lead.
func (db *DB) UpdateLeadStatus(ctx context.Context, leadID, status string) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE leads SET status = $2 WHERE id = $1`, toUUID(leadID), status)
	if err != nil {
		return fmt.Errorf("update lead status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperrors.ErrLeadNotFound
	}

	return nil
}

// CountLeadsForUserSince counts leads discovered for a user since the given
// time. Drives the monthly plan quota.
func (db *DB) CountLeadsForUserSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int

	err := db.Pool.QueryRow(ctx,
		`SELECT count(*) FROM leads WHERE user_id = $1 AND discovered_at >= $2`,
		userID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count leads: %w", err)
	}

	return count, nil
}

func scanLead(row pgx.Row) (*domain.Lead, error) {
	var (
		lead          domain.Lead
		id            pgtype.UUID
		projectID     pgtype.UUID
		postedAt      pgtype.Timestamptz
		semanticScore pgtype.Int4
		discoveredAt  pgtype.Timestamptz
	)

	err := row.Scan(&id, &projectID, &lead.UserID, &lead.SourceID, &lead.Title, &lead.Body,
		&lead.Author, &lead.Community, &lead.URL, &lead.NumComments, &lead.UpvoteRatio,
		&postedAt, &lead.OpportunityScore, &semanticScore, &lead.Status, &discoveredAt)
	if err != nil {
		return nil, err
	}

	lead.ID = fromUUID(id)
	lead.ProjectID = fromUUID(projectID)
	lead.PostedAt = fromTimestamptz(postedAt)
	lead.SemanticScore = fromInt4Ptr(semanticScore)
	lead.DiscoveredAt = fromTimestamptz(discoveredAt)

	return &lead, nil
}
