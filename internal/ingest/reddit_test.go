package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spexxxzzz/redditleads-sub002/internal/core/domain"
)

const sampleListing = `{
	"data": {
		"children": [
			{"data": {
				"id": "abc",
				"title": "Looking for invoicing software",
				"selftext": "spreadsheets are killing me",
				"author": "u1",
				"subreddit": "smallbusiness",
				"permalink": "/r/smallbusiness/comments/abc/looking_for/",
				"num_comments": 7,
				"upvote_ratio": 0.93,
				"created_utc": 1750000000
			}}
		]
	}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *RedditClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	nop := zerolog.Nop()
	client := NewRedditClient(100, &nop)
	client.baseURL = server.URL

	return client
}

func TestRedditClient_Fetch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/r/smallbusiness/search.json")
		assert.Equal(t, "invoicing OR billing", r.URL.Query().Get("q"))
		assert.Equal(t, "1", r.URL.Query().Get("restrict_sr"))

		fmt.Fprint(w, sampleListing)
	})

	posts, err := client.Fetch(context.Background(), &domain.Project{
		Keywords:          []string{"invoicing", "billing"},
		TargetCommunities: []string{"smallbusiness"},
	})
	require.NoError(t, err)
	require.Len(t, posts, 1)

	post := posts[0]
	assert.Equal(t, "abc", post.SourceID)
	assert.Equal(t, "Looking for invoicing software", post.Title)
	assert.Equal(t, "smallbusiness", post.Community)
	assert.Equal(t, 7, post.NumComments)
	assert.Contains(t, post.URL, "/r/smallbusiness/comments/abc/")
	assert.False(t, post.PostedAt.IsZero())
}

func TestRedditClient_SkipsFailingCommunity(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/r/banned/search.json" {
			w.WriteHeader(http.StatusForbidden)

			return
		}

		fmt.Fprint(w, sampleListing)
	})

	posts, err := client.Fetch(context.Background(), &domain.Project{
		Keywords:          []string{"invoicing"},
		TargetCommunities: []string{"banned", "smallbusiness"},
	})
	require.NoError(t, err)
	assert.Len(t, posts, 1)
}

func TestRedditClient_AllCommunitiesFailing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Fetch(context.Background(), &domain.Project{
		Keywords:          []string{"invoicing"},
		TargetCommunities: []string{"a", "b"},
	})
	assert.Error(t, err)
}
