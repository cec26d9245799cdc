package fakeuserrepo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/jrsteele09/go-bot-login/internal/errors"
	"github.com/jrsteele09/go-bot-login/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users       map[string]*users.User
	telegramIDs map[string]string // telegram id to user id
	lock        sync.RWMutex
	now         func() time.Time
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:       make(map[string]*users.User),
		telegramIDs: make(map[string]string),
		now:         time.Now,
	}
}

// WithNowTime sets the clock used for DateJoined and LastLogin
func (ur *FakeUserRepo) WithNowTime(now func() time.Time) *FakeUserRepo {
	ur.now = now
	return ur
}

func (ur *FakeUserRepo) UpsertLogin(_ context.Context, profile users.Profile) (*users.User, error) {
	if profile.TelegramID == "" {
		return nil, apperrors.ErrMissingTelegramID
	}

	ur.lock.Lock()
	defer ur.lock.Unlock()

	user := &users.User{ID: uuid.New().String()}
	if id, ok := ur.telegramIDs[profile.TelegramID]; ok {
		user = ur.users[id]
	}
	user.ApplyLogin(profile, ur.now())

	ur.users[user.ID] = user
	ur.telegramIDs[user.TelegramID] = user.ID
	copied := *user
	return &copied, nil
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (ur *FakeUserRepo) GetByTelegramID(ctx context.Context, telegramID string) (*users.User, error) {
	ur.lock.RLock()
	id, ok := ur.telegramIDs[telegramID]
	ur.lock.RUnlock()

	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return ur.GetByID(ctx, id)
}

// Count returns the number of stored users
func (ur *FakeUserRepo) Count() int {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	return len(ur.users)
}
