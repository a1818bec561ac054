package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestLimiter(max int, window time.Duration, now *time.Time) *RateLimiter {
	limiter := NewRateLimiter(max, window)
	limiter.Clock = func() time.Time { return *now }
	return limiter
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(3, time.Second, &now)

	for i := 0; i < 3; i++ {
		decision := limiter.CheckLimit("x")
		require.True(t, decision.Allowed, "call %d", i+1)
		require.Zero(t, decision.RetryAfterSeconds)
	}

	decision := limiter.CheckLimit("x")
	require.False(t, decision.Allowed)
	require.Equal(t, 1, decision.RetryAfterSeconds)
	require.Equal(t, time.Second, decision.RetryAfter())

	now = now.Add(1100 * time.Millisecond)
	require.True(t, limiter.CheckLimit("x").Allowed)
}

func TestRateLimiterDeniedCallsAreNotRecorded(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(2, time.Minute, &now)

	require.True(t, limiter.CheckLimit("k").Allowed)
	now = now.Add(30 * time.Second)
	require.True(t, limiter.CheckLimit("k").Allowed)

	for i := 0; i < 5; i++ {
		require.False(t, limiter.CheckLimit("k").Allowed)
	}
	require.Equal(t, Usage{Used: 2, Remaining: 0, Total: 2}, limiter.Usage("k"))

	// The first call leaves the window; one slot frees up.
	now = now.Add(31 * time.Second)
	decision := limiter.CheckLimit("k")
	require.True(t, decision.Allowed)

	decision = limiter.CheckLimit("k")
	require.False(t, decision.Allowed)
	require.Equal(t, 29, decision.RetryAfterSeconds)
}

func TestRateLimiterMaxPlusOneDenied(t *testing.T) {
	for _, max := range []int{1, 2, 5, 10, 25} {
		t.Run(fmt.Sprintf("max=%d", max), func(t *testing.T) {
			now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
			limiter := newTestLimiter(max, 10*time.Second, &now)

			for i := 0; i < max; i++ {
				require.True(t, limiter.CheckLimit("key").Allowed)
				now = now.Add(10 * time.Millisecond)
			}

			decision := limiter.CheckLimit("key")
			require.False(t, decision.Allowed)
			require.Greater(t, decision.RetryAfterSeconds, 0)

			now = now.Add(10*time.Second + time.Millisecond)
			require.True(t, limiter.CheckLimit("key").Allowed)
		})
	}
}

func TestRateLimiterUsage(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(5, time.Minute, &now)

	require.Equal(t, Usage{Used: 0, Remaining: 5, Total: 5}, limiter.Usage("fresh"))

	for n := 1; n <= 5; n++ {
		require.True(t, limiter.CheckLimit("k").Allowed)
		require.Equal(t, Usage{Used: n, Remaining: 5 - n, Total: 5}, limiter.Usage("k"))
	}

	// Usage never mutates state.
	for i := 0; i < 3; i++ {
		_ = limiter.Usage("k")
	}
	require.Equal(t, 5, limiter.Usage("k").Used)
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(1, time.Minute, &now)

	require.True(t, limiter.CheckLimit("a").Allowed)
	require.False(t, limiter.CheckLimit("a").Allowed)
	require.True(t, limiter.CheckLimit("b").Allowed)
}

func TestRateLimiterReset(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(1, time.Hour, &now)

	require.True(t, limiter.CheckLimit("a").Allowed)
	require.True(t, limiter.CheckLimit("b").Allowed)

	limiter.Reset("a")
	require.True(t, limiter.CheckLimit("a").Allowed)
	require.False(t, limiter.CheckLimit("b").Allowed)

	limiter.ResetAll()
	require.True(t, limiter.CheckLimit("a").Allowed)
	require.True(t, limiter.CheckLimit("b").Allowed)
}

func TestRateLimiterZeroWindow(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(1, 0, &now)

	require.True(t, limiter.CheckLimit("k").Allowed)
	decision := limiter.CheckLimit("k")
	require.False(t, decision.Allowed)
	require.Zero(t, decision.RetryAfterSeconds)

	now = now.Add(time.Millisecond)
	require.True(t, limiter.CheckLimit("k").Allowed)
}

func TestRateLimiterOverridesAndMargin(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(10, time.Second, &now)

	limiter.ApplyOverrides(map[string]int{"store.list": 20, " ": 5, "bad": 0})
	require.Equal(t, RateLimit{RequestsPerWindow: 20, WindowDuration: time.Minute}, limiter.getLimit("store.list"))
	require.NotContains(t, limiter.Limits, "bad")

	limiter.ApplySafetyMargin(0.9)
	require.Equal(t, 18, limiter.getLimit("store.list").RequestsPerWindow)
	require.Equal(t, 9, limiter.getLimit("other").RequestsPerWindow)

	limiter.ApplySafetyMargin(1.5)
	require.Equal(t, 0.9, limiter.Margin)
}

func TestRateLimiterSnapshot(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(3, time.Minute, &now)

	limiter.CheckLimit("b")
	limiter.CheckLimit("a")
	limiter.CheckLimit("a")

	snapshot := limiter.Snapshot()
	require.Len(t, snapshot, 2)
	require.Equal(t, "a", snapshot[0].Key)
	require.Equal(t, 2, snapshot[0].Used)
	require.Equal(t, "b", snapshot[1].Key)

	now = now.Add(2 * time.Minute)
	require.Empty(t, limiter.Snapshot())
}

func TestNilRateLimiterAllows(t *testing.T) {
	var limiter *RateLimiter
	require.True(t, limiter.CheckLimit("k").Allowed)
	require.Equal(t, Usage{}, limiter.Usage("k"))
}
