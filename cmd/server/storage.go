package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-bot-login/internal/config"
	"github.com/jrsteele09/go-bot-login/loginsession"
	"github.com/jrsteele09/go-bot-login/ratelimit"
	"github.com/jrsteele09/go-bot-login/server"
	"github.com/jrsteele09/go-bot-login/users"
	fakeuserrepo "github.com/jrsteele09/go-bot-login/users/repofake"
)

type storage struct {
	sessions loginsession.Repo
	users    users.UserRepo
	limiter  ratelimit.Limiter
	checks   map[string]server.HealthCheck
	close    func()
}

func newStorage(ctx context.Context, c config.Config) (*storage, error) {
	limit, window := c.GetCreateTokenRateLimit(), c.GetCreateTokenRateWindow()

	switch c.GetStorage() {
	case config.StorageRedis:
		opts, err := redis.ParseURL(c.GetRedisURL())
		if err != nil {
			return nil, fmt.Errorf("[newStorage] parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("[newStorage] redis ping: %w", err)
		}
		log.Info().Str("addr", opts.Addr).Msg("Using redis storage")
		return &storage{
			sessions: loginsession.NewRedisRepo(rdb, c.GetLoginTokenRetention()),
			users:    users.NewRedisUserRepo(rdb),
			limiter:  ratelimit.NewRedisLimiter(rdb, limit, window),
			checks: map[string]server.HealthCheck{
				"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			},
			close: func() { _ = rdb.Close() },
		}, nil
	default:
		// Single instance only: state is lost on restart
		log.Info().Msg("Using in-memory storage")
		return &storage{
			sessions: loginsession.NewInMemoryRepo(),
			users:    fakeuserrepo.NewFakeUserRepo(),
			limiter:  ratelimit.NewInMemoryLimiter(limit, window),
			checks:   map[string]server.HealthCheck{},
			close:    func() {},
		}, nil
	}
}
