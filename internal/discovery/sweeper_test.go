package discovery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spexxxzzz/redditleads-sub002/internal/core/domain"
)

type fakeLocker struct {
	mu       sync.Mutex
	held     bool
	denyAll  bool
	acquired int
}

func (l *fakeLocker) TryAcquireAdvisoryLock(_ context.Context, _ int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.denyAll || l.held {
		return false, nil
	}

	l.held = true
	l.acquired++

	return true, nil
}

func (l *fakeLocker) ReleaseAdvisoryLock(_ context.Context, _ int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.held = false

	return nil
}

func TestSweeper_MarksStaleRuns(t *testing.T) {
	stale := testProject("stale")
	staleStart := time.Now().Add(-45 * time.Minute)
	stale.DiscoveryStatus = domain.DiscoveryStatusRunning
	stale.DiscoveryStartedAt = &staleStart

	fresh := testProject("fresh")
	freshStart := time.Now().Add(-time.Minute)
	fresh.DiscoveryStatus = domain.DiscoveryStatusRunning
	fresh.DiscoveryStartedAt = &freshStart

	repo := newFakeRepo(stale, fresh)
	nop := zerolog.Nop()
	sweeper := NewSweeper(repo, &fakeLocker{}, 30*time.Minute, time.Minute, &nop)

	require.NoError(t, sweeper.sweep(context.Background()))

	assert.Equal(t, domain.DiscoveryStatusFailed, repo.status("stale"))
	assert.Equal(t, domain.DiscoveryStatusRunning, repo.status("fresh"))

	// The swept project carries the timeout message for pollers.
	p, err := repo.GetProject(context.Background(), "stale")
	require.NoError(t, err)
	require.NotNil(t, p.DiscoveryProgress)
	assert.Contains(t, p.DiscoveryProgress.Message, "timed out")
}

func TestSweeper_SkipsWhenLockHeldElsewhere(t *testing.T) {
	stale := testProject("stale")
	staleStart := time.Now().Add(-45 * time.Minute)
	stale.DiscoveryStatus = domain.DiscoveryStatusRunning
	stale.DiscoveryStartedAt = &staleStart

	repo := newFakeRepo(stale)
	nop := zerolog.Nop()
	sweeper := NewSweeper(repo, &fakeLocker{denyAll: true}, 30*time.Minute, time.Minute, &nop)

	require.NoError(t, sweeper.sweep(context.Background()))
	assert.Equal(t, domain.DiscoveryStatusRunning, repo.status("stale"))
}

func TestSweeper_ReleasesLock(t *testing.T) {
	locker := &fakeLocker{}
	nop := zerolog.Nop()
	sweeper := NewSweeper(newFakeRepo(), locker, 30*time.Minute, time.Minute, &nop)

	require.NoError(t, sweeper.sweep(context.Background()))
	require.NoError(t, sweeper.sweep(context.Background()))

	assert.Equal(t, 2, locker.acquired, "lock must be released between passes")
}

func TestSweptProjectCanRestart(t *testing.T) {
	stale := testProject("p1")
	staleStart := time.Now().Add(-45 * time.Minute)
	stale.DiscoveryStatus = domain.DiscoveryStatusRunning
	stale.DiscoveryStartedAt = &staleStart

	repo := newFakeRepo(stale)
	nop := zerolog.Nop()
	sweeper := NewSweeper(repo, &fakeLocker{}, 30*time.Minute, time.Minute, &nop)

	require.NoError(t, sweeper.sweep(context.Background()))
	require.Equal(t, domain.DiscoveryStatusFailed, repo.status("p1"))

	m := newTestManager(t, repo, &stubIngestor{posts: relevantPosts(1)})
	assert.NoError(t, m.Start(context.Background(), "p1"))
}

func TestAutoDiscovery_StartsIdleProjects(t *testing.T) {
	idle := testProject("idle")

	running := testProject("running")
	now := time.Now()
	running.DiscoveryStatus = domain.DiscoveryStatusRunning
	running.DiscoveryStartedAt = &now

	recent := testProject("recent")
	recent.LastManualRunAt = &now

	repo := newFakeRepo(idle, running, recent)
	nop := zerolog.Nop()
	m := newTestManager(t, repo, &stubIngestor{posts: relevantPosts(2)})

	auto := NewAutoDiscovery(m, repo, &fakeLocker{}, 30*time.Hour, time.Minute, &nop)

	require.NoError(t, auto.scan(context.Background()))

	assert.Eventually(t, func() bool {
		return repo.status("idle") == domain.DiscoveryStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	// Untouched: one already running, one ran recently.
	assert.Equal(t, domain.DiscoveryStatusRunning, repo.status("running"))
	assert.Equal(t, domain.DiscoveryStatusNotStarted, repo.status("recent"))
}
