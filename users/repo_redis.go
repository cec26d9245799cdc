package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/jrsteele09/go-bot-login/internal/errors"
)

const (
	userKeyPrefix     = "botlogin:user:"
	telegramKeyPrefix = "botlogin:user:tg:"
)

var _ UserRepo = (*RedisUserRepo)(nil)

// RedisUserRepo stores users as JSON with a secondary Telegram id index
type RedisUserRepo struct {
	rdb redis.UniversalClient
	now func() time.Time
}

// NewRedisUserRepo creates a Redis backed user repository
func NewRedisUserRepo(rdb redis.UniversalClient) *RedisUserRepo {
	return &RedisUserRepo{rdb: rdb, now: time.Now}
}

// WithNowTime sets the clock used for DateJoined and LastLogin
func (r *RedisUserRepo) WithNowTime(now func() time.Time) *RedisUserRepo {
	r.now = now
	return r
}

// UpsertLogin creates or refreshes the user bound to profile.TelegramID. The Telegram index
// key is watched so two first logins of the same account create one user.
func (r *RedisUserRepo) UpsertLogin(ctx context.Context, profile Profile) (*User, error) {
	if profile.TelegramID == "" {
		return nil, apperrors.ErrMissingTelegramID
	}
	indexKey := telegramKeyPrefix + profile.TelegramID

	var result *User
	txf := func(tx *redis.Tx) error {
		user := &User{ID: uuid.New().String()}

		id, err := tx.Get(ctx, indexKey).Result()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			existing, err := r.getByID(ctx, tx, id)
			if err != nil && !errors.Is(err, apperrors.ErrUserNotFound) {
				return err
			}
			if existing != nil {
				user = existing
			}
		}

		user.ApplyLogin(profile, r.now())
		data, err := json.Marshal(user)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, userKeyPrefix+user.ID, data, 0)
			pipe.Set(ctx, indexKey, user.ID, 0)
			return nil
		})
		if err != nil {
			return err
		}
		result = user
		return nil
	}

	for i := 0; i < 3; i++ {
		err := r.rdb.Watch(ctx, txf, indexKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("[RedisUserRepo UpsertLogin] %w", err)
		}
		return result, nil
	}
	return nil, fmt.Errorf("[RedisUserRepo UpsertLogin] too many concurrent logins for %s", profile.TelegramID)
}

// GetByID returns the user with the given id
func (r *RedisUserRepo) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getByID(ctx, r.rdb, id)
}

func (r *RedisUserRepo) getByID(ctx context.Context, cmd redis.Cmdable, id string) (*User, error) {
	data, err := cmd.Get(ctx, userKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[RedisUserRepo GetByID] %w", err)
	}

	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("[RedisUserRepo GetByID] unmarshal: %w", err)
	}
	return &user, nil
}

// GetByTelegramID resolves the Telegram index and loads the user
func (r *RedisUserRepo) GetByTelegramID(ctx context.Context, telegramID string) (*User, error) {
	id, err := r.rdb.Get(ctx, telegramKeyPrefix+telegramID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[RedisUserRepo GetByTelegramID] %w", err)
	}
	return r.GetByID(ctx, id)
}
