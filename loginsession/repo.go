package loginsession

import (
	"context"
	"errors"
	"time"
)

// ErrSkipWrite may be returned by an Update function to leave the stored session untouched.
// Update then returns the current session and a nil error.
var ErrSkipWrite = errors.New("skip write")

// Repo stores login sessions. Update is the only way to mutate a stored session and must be
// atomic per token: a concurrent Get never observes a partially applied change.
type Repo interface {
	// Create stores a new session, failing with ErrTokenCollision if the token exists
	Create(ctx context.Context, session Session) error

	// Get returns the session for token or ErrSessionNotFound
	Get(ctx context.Context, token string) (Session, error)

	// Update applies fn to the stored session as a single read-modify-write
	Update(ctx context.Context, token string, fn func(*Session) error) (Session, error)

	// DeleteExpired removes sessions whose expiry is before the given time
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
}
