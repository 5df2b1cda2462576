// Package ranking orders scored leads for presentation.
//
// The combined score blends the opportunity score with the optional semantic
// score and adds a small flat bonus for recent posts. The sort is stable, so
// ties keep their discovery order and re-runs over identical input produce
// identical output.
package ranking

import (
	"sort"
	"time"

	"github.com/spexxxzzz/redditleads-sub002/internal/core/domain"
)

// Config holds the blend weights. Opportunity carries the majority weight so
// business potential dominates, with the semantic signal as a tiebreaker-scale
// adjustment.
type Config struct {
	OpportunityWeight float64
	SemanticWeight    float64
	RecencyBonus      float64
	RecencyWindow     time.Duration
}

// DefaultConfig returns the production ranking configuration.
func DefaultConfig() Config {
	return Config{
		OpportunityWeight: 0.6,
		SemanticWeight:    0.4,
		RecencyBonus:      0.1,
		RecencyWindow:     7 * 24 * time.Hour,
	}
}

// Ranker sorts leads by combined score. Stateless and safe for concurrent use.
type Ranker struct {
	cfg Config
	now func() time.Time
}

// New creates a ranker with the given configuration.
func New(cfg Config) *Ranker {
	return &Ranker{cfg: cfg, now: time.Now}
}

// NewWithClock creates a ranker with an injected clock for tests.
func NewWithClock(cfg Config, now func() time.Time) *Ranker {
	return &Ranker{cfg: cfg, now: now}
}

// Rank returns the leads sorted descending by combined score. The input slice
// is not modified.
func (r *Ranker) Rank(leads []domain.Lead) []domain.Lead {
	ranked := make([]domain.Lead, len(leads))
	copy(ranked, leads)

	now := r.now()

	sort.SliceStable(ranked, func(i, j int) bool {
		return r.combinedScore(ranked[i], now) > r.combinedScore(ranked[j], now)
	})

	return ranked
}

// CombinedScore exposes the blend for a single lead, evaluated now.
func (r *Ranker) CombinedScore(lead domain.Lead) float64 {
	return r.combinedScore(lead, r.now())
}

func (r *Ranker) combinedScore(lead domain.Lead, now time.Time) float64 {
	semantic := 0
	if lead.SemanticScore != nil {
		semantic = *lead.SemanticScore
	}

	score := float64(lead.OpportunityScore)*r.cfg.OpportunityWeight +
		float64(semantic)*r.cfg.SemanticWeight

	if !lead.PostedAt.IsZero() && now.Sub(lead.PostedAt) <= r.cfg.RecencyWindow {
		score += r.cfg.RecencyBonus
	}

	return score
}
