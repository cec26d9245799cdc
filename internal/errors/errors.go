package errors

import (
	"errors"
	"fmt"
)

// Common error types for the bot login service
var (
	// Login session errors
	ErrSessionNotFound    = errors.New("login session not found")
	ErrSessionExpired     = errors.New("login session expired")
	ErrSessionCancelled   = errors.New("login session cancelled")
	ErrSessionAlreadyUsed = errors.New("login session already used")
	ErrInvalidToken       = errors.New("invalid login token")
	ErrTokenCollision     = errors.New("login token already exists")

	// Telegram identity errors
	ErrMissingTelegramID = errors.New("telegram id is required")
	ErrUserNotFound      = errors.New("user not found")

	// Transport errors
	ErrUnauthorized  = errors.New("unauthorized")
	ErrRateLimited   = errors.New("rate limited")
	ErrServerFailure = errors.New("server failure")
	ErrTransport     = errors.New("transport failure")

	// Client side errors
	ErrLoginTimeout   = fmt.Errorf("login timed out: %w", ErrSessionExpired)
	ErrLoginCancelled = errors.New("login cancelled")

	// General errors
	ErrInvalidRequest = errors.New("invalid request")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrInternal       = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers need a single errors import
func New(text string) error {
	return errors.New(text)
}
