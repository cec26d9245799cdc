// Package ratelimit implements fixed-window request limits keyed by client.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Decision is the outcome of one Allow call
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration // Time until the current window closes, set when not allowed
}

// Limiter counts requests per key within a fixed window
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

type window struct {
	start time.Time
	count int
}

// InMemoryLimiter is a process-local Limiter
type InMemoryLimiter struct {
	mu      sync.Mutex
	limit   int
	period  time.Duration
	windows map[string]*window
	now     func() time.Time
}

// NewInMemoryLimiter allows limit requests per key in each period
func NewInMemoryLimiter(limit int, period time.Duration) *InMemoryLimiter {
	return &InMemoryLimiter{
		limit:   limit,
		period:  period,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// WithNowTime overrides the clock, for tests
func (l *InMemoryLimiter) WithNowTime(now func() time.Time) *InMemoryLimiter {
	l.now = now
	return l
}

func (l *InMemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := l.now()
	start := now.Truncate(l.period)

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !w.start.Equal(start) {
		l.evict(start)
		w = &window{start: start}
		l.windows[key] = w
	}
	w.count++

	return decide(w.count, l.limit, start.Add(l.period).Sub(now)), nil
}

// evict drops windows older than start, keeping the map bounded by active clients
func (l *InMemoryLimiter) evict(start time.Time) {
	for key, w := range l.windows {
		if w.start.Before(start) {
			delete(l.windows, key)
		}
	}
}

func decide(count, limit int, untilReset time.Duration) Decision {
	if count > limit {
		return Decision{Allowed: false, RetryAfter: untilReset}
	}
	return Decision{Allowed: true, Remaining: limit - count}
}
