package loginclient

import (
	"fmt"
	"math"

	"github.com/jrsteele09/go-bot-login/backoff"
	apperrors "github.com/jrsteele09/go-bot-login/internal/errors"
)

// UserMessage turns a terminal login error into text for the user
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case apperrors.Is(err, apperrors.ErrLoginCancelled):
		return "Login cancelled."
	case apperrors.Is(err, apperrors.ErrLoginTimeout):
		return "Login timed out. Start over to get a new link."
	case apperrors.Is(err, apperrors.ErrSessionExpired):
		return "The login link expired. Start over to get a new link."
	case apperrors.Is(err, apperrors.ErrSessionNotFound), apperrors.Is(err, apperrors.ErrSessionCancelled):
		return "The login link is no longer valid. Start over to get a new link."
	case apperrors.Is(err, apperrors.ErrRateLimited):
		return "Too many login attempts. Wait a minute and start over."
	case apperrors.Is(err, apperrors.ErrServerFailure):
		return "The login server is having trouble. Try again later or contact support."
	case apperrors.Is(err, apperrors.ErrTransport):
		return "Could not reach the login server. Check your connection and start over."
	}
	return "Login failed. Contact support if this keeps happening."
}

// WaitMessage describes a pending automatic retry
func WaitMessage(w backoff.Wait) string {
	seconds := int(math.Ceil(w.Remaining.Seconds()))
	switch w.Reason {
	case backoff.ReasonRateLimited:
		return fmt.Sprintf("Too many requests, retrying in %ds (%d/%d)", seconds, w.Attempt, w.MaxAttempts)
	case backoff.ReasonServerError:
		return fmt.Sprintf("Server error, retrying in %ds", seconds)
	}
	return fmt.Sprintf("Retrying in %ds", seconds)
}
