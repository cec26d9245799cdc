package loginsession

import (
	"context"
	"errors"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-bot-login/internal/errors"
)

// InMemoryRepo is an in-memory implementation of Repo
type InMemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]Session // token -> session
}

// NewInMemoryRepo creates a new in-memory login session repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		sessions: make(map[string]Session),
	}
}

// Create stores a new session
func (r *InMemoryRepo) Create(_ context.Context, session Session) error {
	if session.Token == "" {
		return apperrors.ErrInvalidToken
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[session.Token]; ok {
		return apperrors.ErrTokenCollision
	}
	r.sessions[session.Token] = session.Clone()
	return nil
}

// Get retrieves a session by token
func (r *InMemoryRepo) Get(_ context.Context, token string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[token]
	if !ok {
		return Session{}, apperrors.ErrSessionNotFound
	}
	return session.Clone(), nil
}

// Update applies fn under the write lock
func (r *InMemoryRepo) Update(_ context.Context, token string, fn func(*Session) error) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.sessions[token]
	if !ok {
		return Session{}, apperrors.ErrSessionNotFound
	}

	working := stored.Clone()
	if err := fn(&working); err != nil {
		if errors.Is(err, ErrSkipWrite) {
			return stored.Clone(), nil
		}
		return stored.Clone(), err
	}

	r.sessions[token] = working.Clone()
	return working, nil
}

// DeleteExpired removes sessions that expired before the given time
func (r *InMemoryRepo) DeleteExpired(_ context.Context, before time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for token, session := range r.sessions {
		if session.ExpiresAt.Before(before) {
			delete(r.sessions, token)
			removed++
		}
	}
	return removed, nil
}
