// Package backoff retries an operation according to the class of its failure: rate-limit
// responses back off exponentially (or as long as the server asks), server errors are retried
// once, everything else fails immediately.
package backoff

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
)

// Reason is the failure class that triggered a retry
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonRateLimited Reason = "rate_limited"
	ReasonServerError Reason = "server_error"
)

// Decision is a Classifier's verdict on one failure
type Decision struct {
	Reason Reason
	After  time.Duration // Server requested delay, zero to follow the schedule
}

// Retryable reports whether the failure may be retried
func (d Decision) Retryable() bool {
	return d.Reason != ReasonNone
}

// Classifier maps an operation error to a Decision
type Classifier func(err error) Decision

// Wait describes a pending retry. It is published once when the wait starts and then every
// tick until Remaining reaches zero.
type Wait struct {
	Attempt     int // 1-based retry number within Reason's budget
	MaxAttempts int
	Reason      Reason
	Remaining   time.Duration
}

// Waiter sleeps for d, calling onTick with the remaining time, and returns early with the
// context error when ctx is done.
type Waiter func(ctx context.Context, d time.Duration, onTick func(remaining time.Duration)) error

// Controller runs an operation with class-aware retries
type Controller struct {
	classify           Classifier
	rateLimitBase      time.Duration
	rateLimitRetries   int
	serverErrorDelay   time.Duration
	serverErrorRetries int
	wait               Waiter
}

// Option configures a Controller
type Option func(*Controller)

// WithRateLimit sets the first rate-limit delay and the number of rate-limit retries
func WithRateLimit(base time.Duration, retries int) Option {
	return func(c *Controller) {
		c.rateLimitBase = base
		c.rateLimitRetries = retries
	}
}

// WithServerError sets the server-error delay and the number of server-error retries
func WithServerError(delay time.Duration, retries int) Option {
	return func(c *Controller) {
		c.serverErrorDelay = delay
		c.serverErrorRetries = retries
	}
}

// WithWaiter replaces the countdown sleep
func WithWaiter(w Waiter) Option {
	return func(c *Controller) {
		c.wait = w
	}
}

// WithTick sets the countdown granularity of the default waiter
func WithTick(tick time.Duration) Option {
	return func(c *Controller) {
		c.wait = Countdown(tick)
	}
}

// New creates a Controller. Defaults: rate limits retried 3 times after 2s, 4s and 8s,
// server errors retried once after 2s, countdown every second.
func New(classify Classifier, opts ...Option) *Controller {
	c := &Controller{
		classify:           classify,
		rateLimitBase:      2 * time.Second,
		rateLimitRetries:   3,
		serverErrorDelay:   2 * time.Second,
		serverErrorRetries: 1,
		wait:               Countdown(time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do runs op until it succeeds, fails with a non-retryable error, exhausts the retry budget
// of its failure class or ctx is done. notify may be nil.
func (c *Controller) Do(ctx context.Context, op func(ctx context.Context) error, notify func(Wait)) error {
	schedules := map[Reason]*schedule{
		ReasonRateLimited: newSchedule(retry.NewExponential(c.rateLimitBase), c.rateLimitRetries),
		ReasonServerError: newSchedule(retry.NewConstant(c.serverErrorDelay), c.serverErrorRetries),
	}

	for {
		err := op(ctx)
		if err == nil {
			return nil
		}

		decision := c.classify(err)
		s, ok := schedules[decision.Reason]
		if !decision.Retryable() || !ok {
			return err
		}

		delay, stop := s.next()
		if stop {
			return fmt.Errorf("[Controller Do] giving up after %d retries: %w", s.max, err)
		}
		if decision.After > 0 {
			delay = decision.After
		}

		wait := Wait{Attempt: s.used, MaxAttempts: s.max, Reason: decision.Reason}
		log.Debug().Str("reason", string(decision.Reason)).Int("attempt", wait.Attempt).Dur("delay", delay).Msg("Retrying")

		onTick := func(remaining time.Duration) {
			if notify != nil {
				wait.Remaining = remaining
				notify(wait)
			}
		}
		if err := c.wait(ctx, delay, onTick); err != nil {
			return err
		}
	}
}

type schedule struct {
	backoff retry.Backoff
	max     int
	used    int
}

func newSchedule(b retry.Backoff, max int) *schedule {
	if max < 0 {
		max = 0
	}
	return &schedule{backoff: retry.WithMaxRetries(uint64(max), b), max: max}
}

func (s *schedule) next() (time.Duration, bool) {
	delay, stop := s.backoff.Next()
	if !stop {
		s.used++
	}
	return delay, stop
}

// Countdown returns a Waiter that reports the remaining time every tick
func Countdown(tick time.Duration) Waiter {
	return func(ctx context.Context, d time.Duration, onTick func(time.Duration)) error {
		timer := time.NewTimer(d)
		defer timer.Stop()
		ticker := time.NewTicker(tick)
		defer ticker.Stop()

		deadline := time.Now().Add(d)
		onTick(d)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				onTick(0)
				return nil
			case now := <-ticker.C:
				if remaining := deadline.Sub(now); remaining > 0 {
					onTick(remaining.Round(tick))
				}
			}
		}
	}
}
