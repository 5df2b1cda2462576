package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTL_GetSet(t *testing.T) {
	c := NewTTL[string, int](time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("a", 42)

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 42, got)
}

func TestTTL_Expiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLWithClock[string, string](2*time.Second, func() time.Time { return now })

	c.Set("k", "v")

	_, ok := c.Get("k")
	assert.True(t, ok)

	now = now.Add(3 * time.Second)

	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Len(), "expired entry should be reaped on read")
}

func TestTTL_SetRestartsTTL(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLWithClock[string, string](2*time.Second, func() time.Time { return now })

	c.Set("k", "v1")

	now = now.Add(time.Second)
	c.Set("k", "v2")

	now = now.Add(1500 * time.Millisecond)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v2", got)
}

func TestTTL_Invalidate(t *testing.T) {
	c := NewTTL[string, int](time.Minute)

	c.Set("k", 1)
	c.Invalidate("k")

	_, ok := c.Get("k")
	assert.False(t, ok)
}
