package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiter_PerTargetMinimumDelay(t *testing.T) {
	l := New(0, 50*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx, "example.com"))
	start := time.Now()
	require.NoError(t, l.Acquire(ctx, "example.com"))
	require.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestLimiter_DifferentHostsNotSerialized(t *testing.T) {
	l := New(0, 50*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx, "a.example.com"))
	start := time.Now()
	require.NoError(t, l.Acquire(ctx, "b.example.com"))
	require.Less(t, time.Since(start), 20*time.Millisecond)
}

func TestLimiter_RespectsCancellation(t *testing.T) {
	l := New(0, time.Second)
	ctx := context.Background()
	require.NoError(t, l.Acquire(ctx, "host"))

	cctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := l.Acquire(cctx, "host")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAdaptiveThrottle_GrowsOnRateLimitStatus(t *testing.T) {
	th := NewAdaptiveThrottle(true)
	require.Equal(t, time.Duration(0), th.Delay())

	th.RecordStatus(429)
	first := th.Delay()
	require.Greater(t, first, time.Duration(0))

	th.RecordStatus(429)
	require.Greater(t, th.Delay(), first)
}

func TestAdaptiveThrottle_DecaysOnHealthyStatus(t *testing.T) {
	th := NewAdaptiveThrottle(true)
	th.RecordStatus(429)
	th.RecordStatus(429)
	grown := th.Delay()

	th.RecordStatus(200)
	require.Less(t, th.Delay(), grown)
}

func TestAdaptiveThrottle_DisabledNeverDelays(t *testing.T) {
	th := NewAdaptiveThrottle(false)
	th.RecordStatus(429)
	th.RecordError()
	require.Equal(t, time.Duration(0), th.Delay())
}

func TestBackoff_NeverExceedsCap(t *testing.T) {
	alwaysMax := func() float64 { return 1.0 }
	for attempt := 0; attempt < 10; attempt++ {
		d := Backoff(attempt, alwaysMax)
		require.LessOrEqual(t, d, 4*time.Second)
	}
}

func TestBackoff_ZeroRandomGivesZeroDelay(t *testing.T) {
	alwaysZero := func() float64 { return 0.0 }
	require.Equal(t, time.Duration(0), Backoff(0, alwaysZero))
}
