package ratelimit

import (
	"context"
	"sync"
	"time"
)

// pollInterval bounds how long WaitContext stays blind to cancellation.
const pollInterval = 100 * time.Millisecond

// Limiter paces requests against a shared budget.
type Limiter interface {
	// Allow reports whether a request may proceed right now, consuming
	// budget when it does.
	Allow() bool
	// Wait blocks until a request may proceed.
	Wait()
	// Reset restores the limiter to a full budget.
	Reset()
}

// WaitContext blocks until l admits a request or ctx is cancelled. It
// polls Allow so it works with any Limiter implementation.
func WaitContext(ctx context.Context, l Limiter) error {
	for !l.Allow() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	return nil
}

// TokenBucket admits up to capacity requests per refill period. The whole
// bucket refills at once, so traffic is bursty: a quiet stretch earns a
// full burst, then requests stall until the next refill.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   int
	tokens     int
	period     time.Duration
	lastRefill time.Time
}

// NewTokenBucket returns a full bucket admitting capacity requests per period.
func NewTokenBucket(capacity int, period time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		period:     period,
		lastRefill: time.Now(),
	}
}

func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if time.Since(tb.lastRefill) >= tb.period {
		tb.tokens = tb.capacity
		tb.lastRefill = time.Now()
	}
	if tb.tokens == 0 {
		return false
	}
	tb.tokens--
	return true
}

func (tb *TokenBucket) Wait() {
	for !tb.Allow() {
		tb.mu.Lock()
		remaining := tb.period - time.Since(tb.lastRefill)
		tb.mu.Unlock()
		if remaining < pollInterval {
			remaining = pollInterval
		}
		time.Sleep(remaining)
	}
}

func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.tokens = tb.capacity
	tb.lastRefill = time.Now()
}

// SlidingWindow admits at most maxRequests within any window-sized span.
// Unlike TokenBucket it never grants a burst larger than the cap, which
// makes it the safer choice for write endpoints.
type SlidingWindow struct {
	mu          sync.Mutex
	window      time.Duration
	maxRequests int
	stamps      []time.Time
}

// NewSlidingWindow returns a limiter admitting maxRequests per window.
func NewSlidingWindow(maxRequests int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		window:      window,
		maxRequests: maxRequests,
		stamps:      make([]time.Time, 0, maxRequests),
	}
}

func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	sw.expire(now)
	if len(sw.stamps) >= sw.maxRequests {
		return false
	}
	sw.stamps = append(sw.stamps, now)
	return true
}

func (sw *SlidingWindow) Wait() {
	for !sw.Allow() {
		sw.mu.Lock()
		sleep := pollInterval
		if len(sw.stamps) > 0 {
			if until := sw.window - time.Since(sw.stamps[0]); until > sleep {
				sleep = until
			}
		}
		sw.mu.Unlock()
		time.Sleep(sleep)
	}
}

func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.stamps = sw.stamps[:0]
}

// expire drops timestamps that have left the window. Stamps are appended
// in order, so everything after the first survivor is kept.
func (sw *SlidingWindow) expire(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for i < len(sw.stamps) && sw.stamps[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		sw.stamps = append(sw.stamps[:0], sw.stamps[i:]...)
	}
}
