package loginsession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/jrsteele09/go-bot-login/internal/errors"
)

const (
	defaultKeyPrefix = "botlogin:session:"
	maxUpdateRetries = 5
)

// RedisRepo stores sessions as JSON values whose TTL covers the session lifetime plus the
// retention window. Expired keys are removed by Redis itself.
type RedisRepo struct {
	rdb       redis.UniversalClient
	retention time.Duration
	prefix    string
	now       func() time.Time
}

// RedisOption configures a RedisRepo
type RedisOption func(*RedisRepo)

// WithKeyPrefix overrides the key namespace
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *RedisRepo) {
		r.prefix = prefix
	}
}

// WithRedisNowTime sets the clock used to compute key TTLs
func WithRedisNowTime(now func() time.Time) RedisOption {
	return func(r *RedisRepo) {
		r.now = now
	}
}

// NewRedisRepo creates a Redis backed login session repository
func NewRedisRepo(rdb redis.UniversalClient, retention time.Duration, opts ...RedisOption) *RedisRepo {
	r := &RedisRepo{
		rdb:       rdb,
		retention: retention,
		prefix:    defaultKeyPrefix,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisRepo) key(token string) string {
	return r.prefix + token
}

// ttl keeps the record until retention has passed after expiry
func (r *RedisRepo) ttl(session Session) time.Duration {
	ttl := session.ExpiresAt.Add(r.retention).Sub(r.now())
	if ttl < time.Second {
		return time.Second
	}
	return ttl
}

// Create stores a new session with SETNX semantics
func (r *RedisRepo) Create(ctx context.Context, session Session) error {
	if session.Token == "" {
		return apperrors.ErrInvalidToken
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("[RedisRepo Create] marshal: %w", err)
	}

	ok, err := r.rdb.SetNX(ctx, r.key(session.Token), data, r.ttl(session)).Result()
	if err != nil {
		return fmt.Errorf("[RedisRepo Create] setnx: %w", err)
	}
	if !ok {
		return apperrors.ErrTokenCollision
	}
	return nil
}

// Get retrieves a session by token
func (r *RedisRepo) Get(ctx context.Context, token string) (Session, error) {
	return r.read(ctx, r.rdb, token)
}

func (r *RedisRepo) read(ctx context.Context, cmd redis.Cmdable, token string) (Session, error) {
	data, err := cmd.Get(ctx, r.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, apperrors.ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("[RedisRepo Get] get: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return Session{}, fmt.Errorf("[RedisRepo Get] unmarshal: %w", err)
	}
	return session, nil
}

// Update applies fn inside an optimistic WATCH/MULTI transaction, retrying when the key is
// modified concurrently.
func (r *RedisRepo) Update(ctx context.Context, token string, fn func(*Session) error) (Session, error) {
	key := r.key(token)
	var result Session
	var fnErr error

	txf := func(tx *redis.Tx) error {
		stored, err := r.read(ctx, tx, token)
		if err != nil {
			return err
		}

		working := stored.Clone()
		if err := fn(&working); err != nil {
			result = stored
			if !errors.Is(err, ErrSkipWrite) {
				fnErr = err
			}
			return nil
		}

		data, err := json.Marshal(working)
		if err != nil {
			return fmt.Errorf("[RedisRepo Update] marshal: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl(working))
			return nil
		})
		if err != nil {
			return err
		}
		result = working
		return nil
	}

	for i := 0; i < maxUpdateRetries; i++ {
		fnErr = nil
		err := r.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return Session{}, err
		}
		return result, fnErr
	}
	return Session{}, fmt.Errorf("[RedisRepo Update] too many concurrent updates for %s", token)
}

// DeleteExpired is a no-op for Redis since every key carries its own TTL
func (r *RedisRepo) DeleteExpired(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}
