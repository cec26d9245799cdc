package backoff_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-bot-login/backoff"
)

var (
	errRateLimited = errors.New("429")
	errServer      = errors.New("500")
	errBadRequest  = errors.New("400")
)

type retryAfterError struct{ after time.Duration }

func (e retryAfterError) Error() string { return "429 with Retry-After" }

func classify(err error) backoff.Decision {
	var ra retryAfterError
	switch {
	case errors.As(err, &ra):
		return backoff.Decision{Reason: backoff.ReasonRateLimited, After: ra.after}
	case errors.Is(err, errRateLimited):
		return backoff.Decision{Reason: backoff.ReasonRateLimited}
	case errors.Is(err, errServer):
		return backoff.Decision{Reason: backoff.ReasonServerError}
	}
	return backoff.Decision{}
}

// recordingWaiter returns immediately, remembering each requested delay
type recordingWaiter struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (w *recordingWaiter) wait(_ context.Context, d time.Duration, onTick func(time.Duration)) error {
	w.mu.Lock()
	w.delays = append(w.delays, d)
	w.mu.Unlock()
	onTick(d)
	return nil
}

func failing(errs ...error) (func(context.Context) error, *int) {
	calls := 0
	return func(context.Context) error {
		calls++
		if calls <= len(errs) {
			return errs[calls-1]
		}
		return nil
	}, &calls
}

func TestRateLimitExponentialSchedule(t *testing.T) {
	w := &recordingWaiter{}
	c := backoff.New(classify, backoff.WithWaiter(w.wait))

	op, calls := failing(errRateLimited, errRateLimited, errRateLimited, errRateLimited)
	var waits []backoff.Wait
	err := c.Do(context.Background(), op, func(wt backoff.Wait) { waits = append(waits, wt) })

	require.ErrorIs(t, err, errRateLimited)
	require.Equal(t, 4, *calls)
	require.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, w.delays)
	require.Len(t, waits, 3)
	for i, wt := range waits {
		require.Equal(t, i+1, wt.Attempt)
		require.Equal(t, 3, wt.MaxAttempts)
		require.Equal(t, backoff.ReasonRateLimited, wt.Reason)
	}
}

func TestRateLimitRecovers(t *testing.T) {
	w := &recordingWaiter{}
	c := backoff.New(classify, backoff.WithWaiter(w.wait))

	op, calls := failing(errRateLimited, errRateLimited)
	require.NoError(t, c.Do(context.Background(), op, nil))
	require.Equal(t, 3, *calls)
	require.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, w.delays)
}

func TestRetryAfterOverridesSchedule(t *testing.T) {
	w := &recordingWaiter{}
	c := backoff.New(classify, backoff.WithWaiter(w.wait))

	op, _ := failing(retryAfterError{after: 7 * time.Second}, errRateLimited)
	require.NoError(t, c.Do(context.Background(), op, nil))
	require.Equal(t, []time.Duration{7 * time.Second, 4 * time.Second}, w.delays)
}

func TestServerErrorRetriedOnce(t *testing.T) {
	w := &recordingWaiter{}
	c := backoff.New(classify, backoff.WithWaiter(w.wait))

	op, calls := failing(errServer)
	require.NoError(t, c.Do(context.Background(), op, nil))
	require.Equal(t, 2, *calls)
	require.Equal(t, []time.Duration{2 * time.Second}, w.delays)

	op, calls = failing(errServer, errServer)
	err := c.Do(context.Background(), op, nil)
	require.ErrorIs(t, err, errServer)
	require.Equal(t, 2, *calls)
}

func TestNonRetryableFailsImmediately(t *testing.T) {
	w := &recordingWaiter{}
	c := backoff.New(classify, backoff.WithWaiter(w.wait))

	op, calls := failing(errBadRequest)
	require.ErrorIs(t, c.Do(context.Background(), op, nil), errBadRequest)
	require.Equal(t, 1, *calls)
	require.Empty(t, w.delays)
}

func TestCancelDuringWaitStopsRetry(t *testing.T) {
	c := backoff.New(classify, backoff.WithRateLimit(time.Hour, 3), backoff.WithTick(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	op, calls := failing(errRateLimited)

	done := make(chan error, 1)
	go func() {
		done <- c.Do(ctx, op, nil)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after cancel")
	}
	require.Equal(t, 1, *calls)
}

func TestCountdownPublishesRemaining(t *testing.T) {
	var mu sync.Mutex
	var ticks []time.Duration

	err := backoff.Countdown(20*time.Millisecond)(context.Background(), 100*time.Millisecond, func(d time.Duration) {
		mu.Lock()
		ticks = append(ticks, d)
		mu.Unlock()
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(ticks), 2)
	require.Equal(t, 100*time.Millisecond, ticks[0])
	require.Equal(t, time.Duration(0), ticks[len(ticks)-1])
	for i := 1; i < len(ticks); i++ {
		require.LessOrEqual(t, ticks[i], ticks[i-1])
	}
}
