// Package ratelimit implements the Rate Limiter & Dispatcher's token
// accounting: a hard global cap via golang.org/x/time/rate, a per-target
// minimum inter-request delay, and an adaptive throttle overlay that
// backs off on 429/503 responses, recovering gradually when the origin
// looks healthy again. The adaptive throttle layers on top of the hard
// cap rather than replacing it.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces the global max_rate cap and, independently, a
// minimum gap between consecutive requests to the same target.
type Limiter struct {
	global    *rate.Limiter
	perTarget time.Duration
	lastMu    sync.Mutex
	last      map[string]time.Time
}

// New creates a Limiter. maxRate <= 0 means unlimited (global limiter
// is nil). delay is the minimum gap enforced per target host.
func New(maxRate float64, delay time.Duration) *Limiter {
	l := &Limiter{
		perTarget: delay,
		last:      make(map[string]time.Time),
	}
	if maxRate > 0 {
		// Burst of 1 keeps the limiter a strict rate cap rather than
		// letting a backlog of tokens spike the dispatch rate.
		l.global = rate.NewLimiter(rate.Limit(maxRate), 1)
	}
	return l
}

// Acquire blocks until the global budget allows one more request and
// the per-target minimum gap for host has elapsed.
func (l *Limiter) Acquire(ctx context.Context, host string) error {
	if l.global != nil {
		if err := l.global.Wait(ctx); err != nil {
			return err
		}
	}
	if l.perTarget <= 0 {
		return nil
	}

	l.lastMu.Lock()
	wait := time.Duration(0)
	if prev, ok := l.last[host]; ok {
		elapsed := time.Since(prev)
		if elapsed < l.perTarget {
			wait = l.perTarget - elapsed
		}
	}
	l.last[host] = time.Now().Add(wait)
	l.lastMu.Unlock()

	if wait <= 0 {
		return nil
	}
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AdaptiveThrottle adds an on-top, self-adjusting delay that grows on
// 429/503/error signals and decays back to zero when responses look
// healthy again. It never reduces the Limiter's hard cap — it only
// adds extra spacing.
type AdaptiveThrottle struct {
	mu          sync.Mutex
	current     time.Duration
	max         time.Duration
	consecutive int
	enabled     bool
}

// NewAdaptiveThrottle creates a throttle starting at zero extra delay.
func NewAdaptiveThrottle(enabled bool) *AdaptiveThrottle {
	return &AdaptiveThrottle{max: 30 * time.Second, enabled: enabled}
}

// Delay returns the current extra per-request delay.
func (t *AdaptiveThrottle) Delay() time.Duration {
	if !t.enabled {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// RecordStatus adjusts the throttle based on a response status code.
func (t *AdaptiveThrottle) RecordStatus(status int) {
	if !t.enabled {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if status == 429 || status == 503 {
		t.consecutive++
		t.grow()
		return
	}
	t.consecutive = 0
	if t.current > 0 {
		t.decay()
	}
}

// RecordError flags a transport error as a possible rate-limit signal.
func (t *AdaptiveThrottle) RecordError() {
	if !t.enabled {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consecutive++
	if t.consecutive >= 3 {
		t.grow()
	}
}

func (t *AdaptiveThrottle) grow() {
	next := t.current * 2
	if next < 500*time.Millisecond {
		next = 500 * time.Millisecond
	}
	if next > t.max {
		next = t.max
	}
	t.current = next
}

func (t *AdaptiveThrottle) decay() {
	next := t.current / 2
	if next < 0 {
		next = 0
	}
	t.current = next
}

// Backoff computes the delay before retry attempt n (0-indexed),
// exponential with base 250ms, capped at 4s, with full jitter.
func Backoff(attempt int, rnd func() float64) time.Duration {
	base := 250 * time.Millisecond
	cap := 4 * time.Second

	exp := base << attempt
	if exp > cap || exp <= 0 {
		exp = cap
	}
	return time.Duration(rnd() * float64(exp))
}
