// Package semantic scores candidate posts against a campaign description
// using text embeddings.
//
// The score is the cosine similarity between the campaign embedding and the
// post embedding, mapped to the same 0-100 scale as the opportunity score so
// the ranker can blend the two. Scoring is optional enrichment: callers treat
// an unavailable provider or a failed call as "not scored", never as a
// pipeline failure.
package semantic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/spexxxzzz/redditleads-sub002/internal/core/domain"
)

// OpenAI model constants.
const (
	ModelTextEmbedding3Small = "text-embedding-3-small"
	ModelTextEmbedding3Large = "text-embedding-3-large"

	// Default rate limiter burst.
	rateLimiterBurst = 5

	// Posts are truncated before embedding to bound token cost.
	maxEmbeddingInputLen = 4000
)

// ErrEmptyResponse indicates the embeddings API returned no vectors.
var ErrEmptyResponse = errors.New("empty embedding response")

// Provider generates embedding vectors for text.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	IsAvailable() bool
}

// Config holds configuration for the OpenAI embedding provider.
type Config struct {
	APIKey    string
	Model     string // "text-embedding-3-small" or "text-embedding-3-large"
	RateLimit int    // Requests per second
}

// OpenAIProvider implements Provider on the OpenAI embeddings API.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	rateLimiter *rate.Limiter
	available   bool
}

// NewOpenAIProvider creates a new OpenAI embedding provider. With no API key
// the provider reports unavailable and the scorer degrades to nil scores.
func NewOpenAIProvider(cfg Config) *OpenAIProvider {
	if cfg.Model == "" {
		cfg.Model = ModelTextEmbedding3Small
	}

	if cfg.RateLimit == 0 {
		cfg.RateLimit = 1
	}

	return &OpenAIProvider{
		client:      openai.NewClient(cfg.APIKey),
		model:       cfg.Model,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), rateLimiterBurst),
		available:   cfg.APIKey != "",
	}
}

// IsAvailable returns true if the provider is configured.
func (p *OpenAIProvider) IsAvailable() bool {
	return p.available
}

// Embed generates an embedding for the given text.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(p.model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, ErrEmptyResponse
	}

	return resp.Data[0].Embedding, nil
}

// Scorer computes semantic scores for candidate posts against a campaign
// description.
type Scorer struct {
	provider Provider
}

// NewScorer creates a semantic scorer backed by the given provider.
func NewScorer(provider Provider) *Scorer {
	return &Scorer{provider: provider}
}

// Available reports whether scoring can be attempted at all.
func (s *Scorer) Available() bool {
	return s.provider != nil && s.provider.IsAvailable()
}

// Score computes a 0-100 semantic similarity between the post and the
// campaign description. Returns nil (not scored) when the provider is
// unavailable or the description is empty.
func (s *Scorer) Score(ctx context.Context, post domain.CandidatePost, campaignDescription string) (*int, error) {
	if !s.Available() || strings.TrimSpace(campaignDescription) == "" {
		return nil, nil
	}

	campaignVec, err := s.provider.Embed(ctx, truncate(campaignDescription))
	if err != nil {
		return nil, fmt.Errorf("embed campaign: %w", err)
	}

	postVec, err := s.provider.Embed(ctx, truncate(post.Title+"\n"+post.Body))
	if err != nil {
		return nil, fmt.Errorf("embed post: %w", err)
	}

	similarity := cosineSimilarity(campaignVec, postVec)

	// Map [-1,1] similarity onto the 0-100 scale. Negative similarity means
	// actively off-topic, so it bottoms out at 0.
	score := int(math.Round(math.Max(0, similarity) * 100))

	return &score, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func truncate(s string) string {
	if len(s) <= maxEmbeddingInputLen {
		return s
	}

	return s[:maxEmbeddingInputLen]
}
