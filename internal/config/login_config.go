package config

import (
	"time"

	apperrors "github.com/jrsteele09/go-bot-login/internal/errors"
)

type LoginConfig interface {
	GetLoginTokenTTL() time.Duration
	GetLoginTokenRetention() time.Duration
	GetLoginTokenBytes() int
	GetPollInterval() time.Duration
	GetMaxPollAttempts() int
	GetConfirmTimeout() time.Duration
	GetSweepInterval() time.Duration
	GetBackendURL() string
	ValidatePolling() error
}

type Login struct {
	file *File
}

var _ LoginConfig = Login{}

// GetLoginTokenTTL is the absolute lifetime of a login token, fixed at creation
func (l Login) GetLoginTokenTTL() time.Duration {
	return GetEnvDuration("LOGIN_TOKEN_TTL", durationOr(l.file.Login.TokenTTL, 5*time.Minute))
}

// GetLoginTokenRetention is how long a closed session is kept so late polls still see its status
func (l Login) GetLoginTokenRetention() time.Duration {
	return GetEnvDuration("LOGIN_TOKEN_RETENTION", durationOr(l.file.Login.TokenRetention, 10*time.Minute))
}

func (Login) GetLoginTokenBytes() int {
	return 16 // 32 hex chars, "login_" + token fits Telegram's 64 char start parameter
}

func (l Login) GetPollInterval() time.Duration {
	return GetEnvDuration("LOGIN_POLL_INTERVAL", durationOr(l.file.Login.PollInterval, 2*time.Second))
}

func (l Login) GetMaxPollAttempts() int {
	return GetEnvInt("LOGIN_MAX_POLL_ATTEMPTS", orDefault(l.file.Login.MaxPollAttempts, 150))
}

func (l Login) GetConfirmTimeout() time.Duration {
	return GetEnvDuration("LOGIN_CONFIRM_TIMEOUT", durationOr(l.file.Login.ConfirmTimeout, 10*time.Second))
}

func (l Login) GetSweepInterval() time.Duration {
	return GetEnvDuration("LOGIN_SWEEP_INTERVAL", durationOr(l.file.Login.SweepInterval, time.Minute))
}

// GetBackendURL points at a remote token broker. Empty means the broker runs in-process.
func (l Login) GetBackendURL() string {
	return GetEnv("BACKEND_URL", l.file.Login.BackendURL)
}

// ValidatePolling checks the settings a LoginClient needs
func (l Login) ValidatePolling() error {
	if l.GetPollInterval() <= 0 || l.GetMaxPollAttempts() <= 0 {
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "poll interval and poll attempts must be positive")
	}
	return nil
}
