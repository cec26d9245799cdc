package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "botlogin:rate_limit:"

// RedisLimiter shares counters between server instances. Each window is one INCR counter
// that expires shortly after the window closes.
type RedisLimiter struct {
	rdb    redis.UniversalClient
	limit  int
	period time.Duration
	prefix string
	now    func() time.Time
}

// NewRedisLimiter allows limit requests per key in each period
func NewRedisLimiter(rdb redis.UniversalClient, limit int, period time.Duration) *RedisLimiter {
	return &RedisLimiter{
		rdb:    rdb,
		limit:  limit,
		period: period,
		prefix: defaultKeyPrefix,
		now:    time.Now,
	}
}

// WithNowTime overrides the clock, for tests
func (l *RedisLimiter) WithNowTime(now func() time.Time) *RedisLimiter {
	l.now = now
	return l
}

// Allow fails open: a Redis error allows the request and is returned for logging
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	start := now.Truncate(l.period)
	windowKey := fmt.Sprintf("%s%s:%d", l.prefix, key, start.UnixMilli())

	count, err := l.rdb.Incr(ctx, windowKey).Result()
	if err != nil {
		return Decision{Allowed: true}, fmt.Errorf("[RedisLimiter Allow] incr: %w", err)
	}
	if count == 1 {
		l.rdb.PExpire(ctx, windowKey, l.period+time.Second)
	}

	return decide(int(count), l.limit, start.Add(l.period).Sub(now)), nil
}
