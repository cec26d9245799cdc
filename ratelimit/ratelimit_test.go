package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-bot-login/ratelimit"
)

func TestLimiters(t *testing.T) {
	start := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	now := start
	clock := func() time.Time { return now }

	limiters := map[string]func(t *testing.T) ratelimit.Limiter{
		"inmemory": func(t *testing.T) ratelimit.Limiter {
			return ratelimit.NewInMemoryLimiter(2, time.Minute).WithNowTime(clock)
		},
		"redis": func(t *testing.T) ratelimit.Limiter {
			mr := miniredis.RunT(t)
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = rdb.Close() })
			return ratelimit.NewRedisLimiter(rdb, 2, time.Minute).WithNowTime(clock)
		},
	}

	for name, newLimiter := range limiters {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now = start.Add(15 * time.Second)
			limiter := newLimiter(t)

			d, err := limiter.Allow(ctx, "1.2.3.4")
			require.NoError(t, err)
			require.True(t, d.Allowed)
			require.Equal(t, 1, d.Remaining)

			d, err = limiter.Allow(ctx, "1.2.3.4")
			require.NoError(t, err)
			require.True(t, d.Allowed)
			require.Equal(t, 0, d.Remaining)

			d, err = limiter.Allow(ctx, "1.2.3.4")
			require.NoError(t, err)
			require.False(t, d.Allowed)
			require.Equal(t, 45*time.Second, d.RetryAfter)

			// Keys are independent
			d, err = limiter.Allow(ctx, "5.6.7.8")
			require.NoError(t, err)
			require.True(t, d.Allowed)

			// A new window resets the count
			now = start.Add(time.Minute)
			d, err = limiter.Allow(ctx, "1.2.3.4")
			require.NoError(t, err)
			require.True(t, d.Allowed)
		})
	}
}

func TestRedisLimiterFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	d, err := ratelimit.NewRedisLimiter(rdb, 1, time.Minute).Allow(context.Background(), "1.2.3.4")
	require.Error(t, err)
	require.True(t, d.Allowed)
}
