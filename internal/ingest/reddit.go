// Package ingest implements the candidate-post ingestion collaborator
// against Reddit's public JSON search endpoint.
//
// Each target community is searched independently; a community that fails
// (private, banned, nonexistent) is skipped with a warning rather than
// failing the whole fetch. The fetch as a whole fails only when every
// community errors or the request context expires.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/spexxxzzz/redditleads-sub002/internal/core/domain"
)

const (
	defaultBaseURL = "https://www.reddit.com"
	userAgent      = "lead-engine/1.0 (lead discovery)"

	searchLimit   = 25
	maxBodyBytes  = 5 * 1024 * 1024
	requestBurst  = 2
	clientTimeout = 30 * time.Second
)

// RedditClient fetches candidate posts from Reddit's public search.
type RedditClient struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
	logger  *zerolog.Logger
}

// NewRedditClient creates a client limited to rps requests per second.
func NewRedditClient(rps float64, logger *zerolog.Logger) *RedditClient {
	if rps <= 0 {
		rps = 1
	}

	return &RedditClient{
		client:  &http.Client{Timeout: clientTimeout},
		baseURL: defaultBaseURL,
		limiter: rate.NewLimiter(rate.Limit(rps), requestBurst),
		logger:  logger,
	}
}

// listing mirrors the slice of Reddit's search response we consume.
type listing struct {
	Data struct {
		Children []struct {
			Data struct {
				ID          string  `json:"id"`
				Title       string  `json:"title"`
				Selftext    string  `json:"selftext"`
				Author      string  `json:"author"`
				Subreddit   string  `json:"subreddit"`
				Permalink   string  `json:"permalink"`
				NumComments int     `json:"num_comments"`
				UpvoteRatio float64 `json:"upvote_ratio"`
				CreatedUTC  float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Fetch searches each of the project's target communities for its campaign
// keywords and returns the combined candidate posts.
func (c *RedditClient) Fetch(ctx context.Context, project *domain.Project) ([]domain.CandidatePost, error) {
	communities := project.TargetCommunities
	if len(communities) == 0 {
		communities = []string{"all"}
	}

	query := strings.Join(project.Keywords, " OR ")

	var (
		posts   []domain.CandidatePost
		lastErr error
		failed  int
	)

	for _, community := range communities {
		found, err := c.searchCommunity(ctx, community, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			failed++
			lastErr = err

			c.logger.Warn().Err(err).Str("community", community).Msg("community search failed, skipping")

			continue
		}

		posts = append(posts, found...)
	}

	if failed == len(communities) {
		return nil, fmt.Errorf("all %d community searches failed: %w", failed, lastErr)
	}

	return posts, nil
}

func (c *RedditClient) searchCommunity(ctx context.Context, community, query string) ([]domain.CandidatePost, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	endpoint := fmt.Sprintf("%s/r/%s/search.json?%s", c.baseURL, url.PathEscape(community),
		url.Values{
			"q":           {query},
			"restrict_sr": {"1"},
			"sort":        {"new"},
			"limit":       {fmt.Sprint(searchLimit)},
		}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", community, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search %s: HTTP %d", community, resp.StatusCode)
	}

	var result listing
	if err := json.NewDecoder(http.MaxBytesReader(nil, resp.Body, maxBodyBytes)).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	posts := make([]domain.CandidatePost, 0, len(result.Data.Children))

	for _, child := range result.Data.Children {
		d := child.Data
		posts = append(posts, domain.CandidatePost{
			SourceID:    d.ID,
			Title:       d.Title,
			Body:        d.Selftext,
			Author:      d.Author,
			Community:   d.Subreddit,
			URL:         c.baseURL + d.Permalink,
			NumComments: d.NumComments,
			UpvoteRatio: d.UpvoteRatio,
			PostedAt:    time.Unix(int64(d.CreatedUTC), 0).UTC(),
		})
	}

	return posts, nil
}
