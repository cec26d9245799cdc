package loginsession

import (
	"time"

	apperrors "github.com/jrsteele09/go-bot-login/internal/errors"
)

// Status is the lifecycle state of a login session.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
	StatusNotFound  Status = "not_found" // Reported for unknown tokens, never stored
)

// IsTerminal reports whether no further transition is possible from s
func (s Status) IsTerminal() bool {
	return s != StatusPending
}

// TelegramUser identifies the Telegram account that approved a session.
type TelegramUser struct {
	TelegramID string `json:"telegramId"`
	Username   string `json:"username,omitempty"`
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	PhotoURL   string `json:"photoUrl,omitempty"`
}

// Credentials are minted once on approval and returned to every poll afterwards.
type Credentials struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	TokenType    string    `json:"tokenType"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Session is one login attempt, keyed by its token.
type Session struct {
	Token      string    `json:"token"`
	Status     Status    `json:"status"`
	DeviceInfo string    `json:"deviceInfo,omitempty"` // Audit only
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"` // Absolute, fixed at creation
	ClosedAt   time.Time `json:"closedAt,omitempty"`

	// Set together, and only, when Status is approved
	TelegramUser *TelegramUser `json:"telegramUser,omitempty"`
	UserID       string        `json:"userId,omitempty"`
	Credentials  *Credentials  `json:"credentials,omitempty"`
}

// New creates a pending session that expires ttl after now.
func New(token, deviceInfo string, now time.Time, ttl time.Duration) Session {
	return Session{
		Token:      token,
		Status:     StatusPending,
		DeviceInfo: deviceInfo,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
}

// IsPastExpiry reports whether the session's absolute lifetime has ended
func (s *Session) IsPastExpiry(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Approve moves a pending session to approved, binding the Telegram account and credentials
// in the same step so they can never be observed apart.
func (s *Session) Approve(now time.Time, tgUser TelegramUser, userID string, creds Credentials) error {
	if s.Status != StatusPending {
		return terminalError(s.Status)
	}
	if tgUser.TelegramID == "" {
		return apperrors.ErrMissingTelegramID
	}
	if s.IsPastExpiry(now) {
		s.expire(now)
		return apperrors.ErrSessionExpired
	}

	s.Status = StatusApproved
	s.TelegramUser = &tgUser
	s.UserID = userID
	s.Credentials = &creds
	s.ClosedAt = now
	return nil
}

// ExpireIfDue moves a pending session past its expiry to expired. It returns true when the
// status changed.
func (s *Session) ExpireIfDue(now time.Time) bool {
	if s.Status != StatusPending || !s.IsPastExpiry(now) {
		return false
	}
	s.expire(now)
	return true
}

// Cancel moves a pending session to cancelled
func (s *Session) Cancel(now time.Time) error {
	if s.Status != StatusPending {
		return terminalError(s.Status)
	}
	s.Status = StatusCancelled
	s.ClosedAt = now
	return nil
}

func (s *Session) expire(now time.Time) {
	s.Status = StatusExpired
	s.ClosedAt = now
}

// Clone returns a deep copy so stored sessions are never shared with callers
func (s Session) Clone() Session {
	if s.TelegramUser != nil {
		u := *s.TelegramUser
		s.TelegramUser = &u
	}
	if s.Credentials != nil {
		c := *s.Credentials
		s.Credentials = &c
	}
	return s
}

// terminalError maps a terminal status to its sentinel error. Approved maps to
// ErrSessionAlreadyUsed since it can only be reached once.
func terminalError(status Status) error {
	switch status {
	case StatusExpired:
		return apperrors.ErrSessionExpired
	case StatusCancelled:
		return apperrors.ErrSessionCancelled
	case StatusApproved:
		return apperrors.ErrSessionAlreadyUsed
	}
	return apperrors.ErrSessionNotFound
}
