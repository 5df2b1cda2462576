package scoring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spexxxzzz/redditleads-sub002/internal/core/domain"
)

func TestScorer_Score(t *testing.T) {
	scorer := New(DefaultConfig(), nil)

	tests := []struct {
		name         string
		post         domain.CandidatePost
		keywords     []string
		wantScore    int
		wantRelevant bool
	}{
		{
			name: "solution seeking post with campaign keyword",
			post: domain.CandidatePost{
				Title:       "Looking for expense tracking recommendations",
				Body:        strings.Repeat("neutral filler text ", 50),
				NumComments: 8,
			},
			keywords: []string{"invoicing", "expense tracking"},
			// +30 title keyword, +20 each for "recommend", "recommendation",
			// "looking for", +5 engagement
			wantScore:    95,
			wantRelevant: true,
		},
		{
			name: "hiring post penalized",
			post: domain.CandidatePost{
				Title: "Hiring freelance bookkeeper - job posting",
			},
			keywords:     []string{"invoicing"},
			wantScore:    0,
			wantRelevant: false,
		},
		{
			name: "body keyword only",
			post: domain.CandidatePost{
				Title: "Monthly close is a nightmare",
				Body:  "we do all our invoicing by hand",
			},
			keywords: []string{"invoicing"},
			// +15 body keyword
			wantScore:    15,
			wantRelevant: false,
		},
		{
			name: "pain point and keyword over threshold",
			post: domain.CandidatePost{
				Title: "Invoicing bug keeps eating my data",
			},
			keywords: []string{"invoicing"},
			// +30 title keyword, +15 pain point ("bug")
			wantScore:    45,
			wantRelevant: true,
		},
		{
			name:         "empty keywords and neutral text",
			post:         domain.CandidatePost{Title: "Weekly community thread"},
			keywords:     nil,
			wantScore:    0,
			wantRelevant: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := scorer.Score(tt.post, tt.keywords)
			assert.Equal(t, tt.wantScore, result.Score)
			assert.Equal(t, tt.wantRelevant, result.IsRelevant)
		})
	}
}

func TestScorer_Deterministic(t *testing.T) {
	scorer := New(DefaultConfig(), nil)
	post := domain.CandidatePost{
		Title: "Which is better for expense tracking?",
		Body:  "struggling with spreadsheets",
	}

	first := scorer.Score(post, []string{"expense tracking"})
	for i := 0; i < 10; i++ {
		again := scorer.Score(post, []string{"expense tracking"})
		require.Equal(t, first.Score, again.Score)
		require.Equal(t, first.Reasons, again.Reasons)
	}
}

func TestScorer_PainPointAppliedOnce(t *testing.T) {
	scorer := New(DefaultConfig(), nil)

	single := scorer.Score(domain.CandidatePost{
		Title: "Budgeting tools",
		Body:  "there is a bug in every one I tried",
	}, nil)
	many := scorer.Score(domain.CandidatePost{
		Title: "Budgeting tools",
		Body:  "there is a problem, a bug, and I am frustrated",
	}, nil)

	assert.Equal(t, single.Score, many.Score)
}

func TestScorer_NegativePenaltyAppliedOnce(t *testing.T) {
	scorer := New(DefaultConfig(), nil)
	keywords := []string{"bookkeeping"}

	one := scorer.Score(domain.CandidatePost{Title: "bookkeeping tutorial"}, keywords)
	three := scorer.Score(domain.CandidatePost{Title: "bookkeeping tutorial guide course"}, keywords)

	assert.Equal(t, one.Score, three.Score)
}

func TestScorer_ClampsToRange(t *testing.T) {
	cfg := DefaultConfig()
	scorer := New(cfg, nil)

	// Many keyword hits push the raw total far above 100.
	post := domain.CandidatePost{
		Title: "best top advice: recommend a tool to compare invoicing vs billing, looking for help choosing",
		Body:  "invoicing billing payments",
	}
	high := scorer.Score(post, []string{"invoicing", "billing", "payments", "tool", "compare"})
	assert.Equal(t, 100, high.Score)

	// Pure negative title bottoms out at zero.
	low := scorer.Score(domain.CandidatePost{Title: "hiring for a job, free course giveaway"}, nil)
	assert.Equal(t, 0, low.Score)
}

func TestScorer_ReasonsRecordApplicationOrder(t *testing.T) {
	scorer := New(DefaultConfig(), nil)

	result := scorer.Score(domain.CandidatePost{
		Title:       "Looking for invoicing advice",
		Body:        "the current tool is slow",
		NumComments: 12,
	}, []string{"invoicing"})

	require.Len(t, result.Reasons, 5)
	assert.Contains(t, result.Reasons[0], "campaign keyword")
	assert.Contains(t, result.Reasons[len(result.Reasons)-1], "engagement")
}
