package semantic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spexxxzzz/redditleads-sub002/internal/core/domain"
)

type stubProvider struct {
	vectors   map[string][]float32
	err       error
	available bool
}

func (p *stubProvider) Embed(_ context.Context, text string) ([]float32, error) {
	if p.err != nil {
		return nil, p.err
	}

	return p.vectors[text], nil
}

func (p *stubProvider) IsAvailable() bool { return p.available }

func TestScorer_UnavailableProviderReturnsNil(t *testing.T) {
	scorer := NewScorer(&stubProvider{available: false})

	score, err := scorer.Score(context.Background(), domain.CandidatePost{Title: "t"}, "desc")
	require.NoError(t, err)
	assert.Nil(t, score)
}

func TestScorer_EmptyDescriptionReturnsNil(t *testing.T) {
	scorer := NewScorer(&stubProvider{available: true})

	score, err := scorer.Score(context.Background(), domain.CandidatePost{Title: "t"}, "   ")
	require.NoError(t, err)
	assert.Nil(t, score)
}

func TestScorer_IdenticalVectorsScoreFull(t *testing.T) {
	vec := []float32{0.5, 0.5, 0.1}
	provider := &stubProvider{
		available: true,
		vectors: map[string][]float32{
			"bookkeeping for freelancers": vec,
			"invoice help\n":              vec,
		},
	}
	scorer := NewScorer(provider)

	score, err := scorer.Score(context.Background(),
		domain.CandidatePost{Title: "invoice help"}, "bookkeeping for freelancers")
	require.NoError(t, err)
	require.NotNil(t, score)
	assert.Equal(t, 100, *score)
}

func TestScorer_OrthogonalVectorsScoreZero(t *testing.T) {
	provider := &stubProvider{
		available: true,
		vectors: map[string][]float32{
			"desc":    {1, 0},
			"title\n": {0, 1},
		},
	}
	scorer := NewScorer(provider)

	score, err := scorer.Score(context.Background(), domain.CandidatePost{Title: "title"}, "desc")
	require.NoError(t, err)
	require.NotNil(t, score)
	assert.Equal(t, 0, *score)
}

func TestScorer_ProviderErrorPropagates(t *testing.T) {
	provider := &stubProvider{available: true, err: errors.New("boom")}
	scorer := NewScorer(provider)

	_, err := scorer.Score(context.Background(), domain.CandidatePost{Title: "t"}, "desc")
	assert.Error(t, err)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, cosineSimilarity(nil, []float32{1}))
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}

func TestNewOpenAIProvider_NoKeyUnavailable(t *testing.T) {
	provider := NewOpenAIProvider(Config{})
	assert.False(t, provider.IsAvailable())
}
