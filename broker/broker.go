// Package broker issues login tokens, answers polls and binds a confirming Telegram account to
// an application user.
package broker

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-bot-login/deeplink"
	apperrors "github.com/jrsteele09/go-bot-login/internal/errors"
	"github.com/jrsteele09/go-bot-login/internal/utils"
	"github.com/jrsteele09/go-bot-login/loginsession"
	"github.com/jrsteele09/go-bot-login/token"
	"github.com/jrsteele09/go-bot-login/users"
)

const maxCreateAttempts = 3

// Config is the part of the service configuration the broker reads
type Config interface {
	GetBotName() string
	GetLoginTokenTTL() time.Duration
	GetLoginTokenRetention() time.Duration
	GetLoginTokenBytes() int
}

// CredentialIssuer mints credentials for an approved login
type CredentialIssuer interface {
	Issue(user *users.User, sessionToken string) (token.Pair, error)
}

// TokenGenerator produces a fresh login token
type TokenGenerator func() (string, error)

// TokenBroker owns the login session lifecycle
type TokenBroker struct {
	config        Config
	sessions      loginsession.Repo
	users         users.UserRepo
	issuer        CredentialIssuer
	now           func() time.Time
	generateToken TokenGenerator
}

// Option configures a TokenBroker
type Option func(*TokenBroker)

// WithNowTime overrides the broker clock
func WithNowTime(now func() time.Time) Option {
	return func(b *TokenBroker) {
		b.now = now
	}
}

// WithTokenGenerator overrides random token generation
func WithTokenGenerator(gen TokenGenerator) Option {
	return func(b *TokenBroker) {
		b.generateToken = gen
	}
}

// New creates a TokenBroker
func New(cfg Config, sessions loginsession.Repo, userRepo users.UserRepo, issuer CredentialIssuer, opts ...Option) *TokenBroker {
	b := &TokenBroker{
		config:   cfg,
		sessions: sessions,
		users:    userRepo,
		issuer:   issuer,
		now:      time.Now,
	}
	b.generateToken = RandomTokenGenerator(cfg.GetLoginTokenBytes())
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// RandomTokenGenerator returns n random bytes as lower-case hex
func RandomTokenGenerator(n int) TokenGenerator {
	return func() (string, error) {
		tokenBytes := make([]byte, n)
		if _, err := rand.Read(tokenBytes); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		return hex.EncodeToString(tokenBytes), nil
	}
}

// CreateResult is returned to the initiator of a login
type CreateResult struct {
	Token     string    `json:"token"`
	BotURL    string    `json:"botUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Create starts a new pending login session
func (b *TokenBroker) Create(ctx context.Context, deviceInfo string) (CreateResult, error) {
	now := b.now()

	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		tok, err := b.generateToken()
		if err != nil {
			return CreateResult{}, fmt.Errorf("[TokenBroker Create] %w", err)
		}
		botURL, err := deeplink.BotURL(b.config.GetBotName(), tok)
		if err != nil {
			return CreateResult{}, fmt.Errorf("[TokenBroker Create] %w", err)
		}

		session := loginsession.New(tok, deviceInfo, now, b.config.GetLoginTokenTTL())
		err = b.sessions.Create(ctx, session)
		if apperrors.Is(err, apperrors.ErrTokenCollision) {
			log.Warn().Int("attempt", attempt).Msg("Login token collision, regenerating")
			continue
		}
		if err != nil {
			return CreateResult{}, fmt.Errorf("[TokenBroker Create] store session: %w", err)
		}

		log.Info().Str("token", utils.Redact(tok)).Str("device", deviceInfo).Msg("Login token created")
		return CreateResult{Token: tok, BotURL: botURL, ExpiresAt: session.ExpiresAt}, nil
	}
	return CreateResult{}, fmt.Errorf("[TokenBroker Create] %w", apperrors.ErrTokenCollision)
}

// CheckResult is the answer to a poll
type CheckResult struct {
	Status      loginsession.Status
	Credentials *loginsession.Credentials
	User        *users.User
	Message     string
}

// Check reports the status of token. The only mutation it performs is persisting the
// pending to expired transition.
func (b *TokenBroker) Check(ctx context.Context, tok string) (CheckResult, error) {
	tok = strings.ToLower(strings.TrimSpace(tok))

	session, err := b.sessions.Get(ctx, tok)
	if apperrors.Is(err, apperrors.ErrSessionNotFound) {
		return CheckResult{Status: loginsession.StatusNotFound, Message: "Login token not found"}, nil
	}
	if err != nil {
		return CheckResult{}, fmt.Errorf("[TokenBroker Check] %w", err)
	}

	if session.Status == loginsession.StatusPending && session.IsPastExpiry(b.now()) {
		session, err = b.expire(ctx, tok)
		if err != nil {
			return CheckResult{}, fmt.Errorf("[TokenBroker Check] %w", err)
		}
	}

	return checkResultFor(session), nil
}

func checkResultFor(session loginsession.Session) CheckResult {
	result := CheckResult{Status: session.Status}
	switch session.Status {
	case loginsession.StatusApproved:
		result.Credentials = session.Credentials
		result.User = userFromSession(session)
		result.Message = "Login confirmed"
	case loginsession.StatusPending:
		result.Message = "Waiting for confirmation in Telegram"
	case loginsession.StatusExpired:
		result.Message = "Login token expired"
	case loginsession.StatusCancelled:
		result.Message = "Login cancelled"
	}
	return result
}

func (b *TokenBroker) expire(ctx context.Context, tok string) (loginsession.Session, error) {
	return b.sessions.Update(ctx, tok, func(s *loginsession.Session) error {
		if !s.ExpireIfDue(b.now()) {
			return loginsession.ErrSkipWrite
		}
		return nil
	})
}

// ConfirmRequest is sent by the webhook when a Telegram user opens the deep link
type ConfirmRequest struct {
	Token      string `json:"token"`
	TelegramID string `json:"telegramId"`
	Username   string `json:"username,omitempty"`
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	PhotoURL   string `json:"photoUrl,omitempty"`
}

func (r ConfirmRequest) profile() users.Profile {
	return users.Profile{
		TelegramID: r.TelegramID,
		Username:   r.Username,
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		PhotoURL:   r.PhotoURL,
	}
}

// ConfirmResult describes a successful confirmation
type ConfirmResult struct {
	Status           loginsession.Status `json:"status"`
	User             *users.User         `json:"user,omitempty"`
	AlreadyConfirmed bool                `json:"alreadyConfirmed,omitempty"`
}

// Confirm approves a pending session for the Telegram account in req. Confirming an already
// approved session from the same account is a successful no-op; from another account it
// fails with ErrSessionAlreadyUsed.
func (b *TokenBroker) Confirm(ctx context.Context, req ConfirmRequest) (ConfirmResult, error) {
	tok := strings.ToLower(strings.TrimSpace(req.Token))
	if !deeplink.IsValidToken(tok) {
		return ConfirmResult{}, apperrors.ErrInvalidToken
	}
	if strings.TrimSpace(req.TelegramID) == "" {
		return ConfirmResult{}, apperrors.ErrMissingTelegramID
	}

	// Reject dead tokens before touching the user store
	session, err := b.sessions.Get(ctx, tok)
	if err != nil {
		return ConfirmResult{}, err
	}
	if session.Status == loginsession.StatusPending && session.IsPastExpiry(b.now()) {
		if _, err := b.expire(ctx, tok); err != nil {
			return ConfirmResult{}, fmt.Errorf("[TokenBroker Confirm] %w", err)
		}
		return ConfirmResult{}, apperrors.ErrSessionExpired
	}
	if session.Status != loginsession.StatusPending {
		return alreadyClosed(session, req.TelegramID)
	}

	user, err := b.users.UpsertLogin(ctx, req.profile())
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("[TokenBroker Confirm] upsert user: %w", err)
	}
	pair, err := b.issuer.Issue(user, tok)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("[TokenBroker Confirm] %w", err)
	}

	tgUser := loginsession.TelegramUser{
		TelegramID: req.TelegramID,
		Username:   req.Username,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		PhotoURL:   req.PhotoURL,
	}
	creds := loginsession.Credentials{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresAt:    pair.ExpiresAt,
	}

	session, err = b.sessions.Update(ctx, tok, func(s *loginsession.Session) error {
		return s.Approve(b.now(), tgUser, user.ID, creds)
	})
	if err != nil {
		// Lost a race with another confirmation or with expiry
		if apperrors.Is(err, apperrors.ErrSessionAlreadyUsed) {
			return alreadyClosed(session, req.TelegramID)
		}
		return ConfirmResult{}, err
	}

	log.Info().Str("token", utils.Redact(tok)).Str("telegram_id", req.TelegramID).Str("user_id", user.ID).Msg("Login confirmed")
	return ConfirmResult{Status: session.Status, User: user}, nil
}

func alreadyClosed(session loginsession.Session, telegramID string) (ConfirmResult, error) {
	switch session.Status {
	case loginsession.StatusApproved:
		if session.TelegramUser != nil && session.TelegramUser.TelegramID == telegramID {
			return ConfirmResult{Status: session.Status, User: userFromSession(session), AlreadyConfirmed: true}, nil
		}
		return ConfirmResult{}, apperrors.ErrSessionAlreadyUsed
	case loginsession.StatusExpired:
		return ConfirmResult{}, apperrors.ErrSessionExpired
	case loginsession.StatusCancelled:
		return ConfirmResult{}, apperrors.ErrSessionCancelled
	}
	return ConfirmResult{}, apperrors.ErrSessionNotFound
}

// Cancel closes a pending session without approving it
func (b *TokenBroker) Cancel(ctx context.Context, tok string) (loginsession.Status, error) {
	tok = strings.ToLower(strings.TrimSpace(tok))
	session, err := b.sessions.Update(ctx, tok, func(s *loginsession.Session) error {
		if s.ExpireIfDue(b.now()) {
			return nil
		}
		return s.Cancel(b.now())
	})
	if apperrors.Is(err, apperrors.ErrSessionNotFound) {
		return loginsession.StatusNotFound, err
	}
	if err != nil {
		return session.Status, err
	}
	if session.Status == loginsession.StatusExpired {
		return session.Status, apperrors.ErrSessionExpired
	}

	log.Info().Str("token", utils.Redact(tok)).Msg("Login cancelled")
	return session.Status, nil
}

// Sweep removes sessions whose retention window has passed
func (b *TokenBroker) Sweep(ctx context.Context) (int, error) {
	removed, err := b.sessions.DeleteExpired(ctx, b.now().Add(-b.config.GetLoginTokenRetention()))
	if err != nil {
		return 0, fmt.Errorf("[TokenBroker Sweep] %w", err)
	}
	if removed > 0 {
		log.Debug().Int("removed", removed).Msg("Swept login sessions")
	}
	return removed, nil
}

// RunSweeper calls Sweep every interval until ctx is done
func (b *TokenBroker) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := b.Sweep(ctx); err != nil {
				log.Err(err).Msg("Login session sweep failed")
			}
		}
	}
}

func userFromSession(session loginsession.Session) *users.User {
	if session.TelegramUser == nil {
		return nil
	}
	return &users.User{
		ID:         session.UserID,
		TelegramID: session.TelegramUser.TelegramID,
		Username:   session.TelegramUser.Username,
		FirstName:  session.TelegramUser.FirstName,
		LastName:   session.TelegramUser.LastName,
		PhotoURL:   session.TelegramUser.PhotoURL,
	}
}
