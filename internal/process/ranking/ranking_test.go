package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spexxxzzz/redditleads-sub002/internal/core/domain"
)

var rankNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestRanker() *Ranker {
	return NewWithClock(DefaultConfig(), func() time.Time { return rankNow })
}

func intPtr(v int) *int { return &v }

func TestRanker_OrdersByCombinedScore(t *testing.T) {
	r := newTestRanker()
	old := rankNow.Add(-30 * 24 * time.Hour)

	leads := []domain.Lead{
		{ID: "low", OpportunityScore: 20, PostedAt: old},
		{ID: "high", OpportunityScore: 90, PostedAt: old},
		{ID: "mid", OpportunityScore: 50, SemanticScore: intPtr(40), PostedAt: old},
	}

	ranked := r.Rank(leads)

	require.Len(t, ranked, 3)
	assert.Equal(t, "high", ranked[0].ID)
	assert.Equal(t, "mid", ranked[1].ID)
	assert.Equal(t, "low", ranked[2].ID)
}

func TestRanker_MissingSemanticScoreDefaultsToZero(t *testing.T) {
	r := newTestRanker()
	old := rankNow.Add(-30 * 24 * time.Hour)

	// 50*0.6 + 0*0.4 = 30 vs 40*0.6 + 40*0.4 = 40.
	leads := []domain.Lead{
		{ID: "unscored", OpportunityScore: 50, PostedAt: old},
		{ID: "scored", OpportunityScore: 40, SemanticScore: intPtr(40), PostedAt: old},
	}

	ranked := r.Rank(leads)
	assert.Equal(t, "scored", ranked[0].ID)
}

func TestRanker_RecencyBonusBreaksTie(t *testing.T) {
	r := newTestRanker()

	leads := []domain.Lead{
		{ID: "stale", OpportunityScore: 60, PostedAt: rankNow.Add(-8 * 24 * time.Hour)},
		{ID: "fresh", OpportunityScore: 60, PostedAt: rankNow.Add(-2 * 24 * time.Hour)},
	}

	ranked := r.Rank(leads)
	assert.Equal(t, "fresh", ranked[0].ID)
	assert.Equal(t, "stale", ranked[1].ID)
}

func TestRanker_StableOnEqualScores(t *testing.T) {
	r := newTestRanker()
	old := rankNow.Add(-30 * 24 * time.Hour)

	leads := []domain.Lead{
		{ID: "a", OpportunityScore: 50, PostedAt: old},
		{ID: "b", OpportunityScore: 50, PostedAt: old},
		{ID: "c", OpportunityScore: 50, PostedAt: old},
	}

	for i := 0; i < 5; i++ {
		ranked := r.Rank(leads)
		assert.Equal(t, "a", ranked[0].ID)
		assert.Equal(t, "b", ranked[1].ID)
		assert.Equal(t, "c", ranked[2].ID)
	}
}

func TestRanker_DoesNotMutateInput(t *testing.T) {
	r := newTestRanker()

	leads := []domain.Lead{
		{ID: "first", OpportunityScore: 10},
		{ID: "second", OpportunityScore: 90},
	}

	_ = r.Rank(leads)

	assert.Equal(t, "first", leads[0].ID)
	assert.Equal(t, "second", leads[1].ID)
}

func TestRanker_CombinedScore(t *testing.T) {
	r := newTestRanker()

	lead := domain.Lead{
		OpportunityScore: 80,
		SemanticScore:    intPtr(50),
		PostedAt:         rankNow.Add(-24 * time.Hour),
	}

	assert.InDelta(t, 80*0.6+50*0.4+0.1, r.CombinedScore(lead), 1e-9)
}
