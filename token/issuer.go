package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jrsteele09/go-bot-login/users"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"

	// BearerType is reported as the token_type of issued credentials
	BearerType = "Bearer"
)

// IssuerConfig holds the claims and lifetimes of issued tokens
type IssuerConfig interface {
	GetJWTIssuer() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
}

// Pair is the credential set handed to a client after a successful login
type Pair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    time.Time // Access token expiry
}

// Issuer mints the access and refresh tokens for an approved login
type Issuer struct {
	config IssuerConfig
	signer Signer
	now    func() time.Time
}

// NewIssuer creates a new token issuer
func NewIssuer(cfg IssuerConfig, signer Signer) *Issuer {
	return &Issuer{
		config: cfg,
		signer: signer,
		now:    time.Now,
	}
}

// WithNowTime overrides the clock, for tests
func (i *Issuer) WithNowTime(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Issue creates both tokens for user. The login session token is carried as "sid" so a
// credential can be traced back to the handshake that produced it.
func (i *Issuer) Issue(user *users.User, sessionToken string) (Pair, error) {
	now := i.now()
	accessExpiry := now.Add(i.config.GetAccessTokenExpiry())

	access, err := i.sign(i.claims(user, sessionToken, TypeAccess, now, accessExpiry))
	if err != nil {
		return Pair{}, fmt.Errorf("[Issuer Issue] access token: %w", err)
	}

	refresh, err := i.sign(i.claims(user, sessionToken, TypeRefresh, now, now.Add(i.config.GetRefreshTokenExpiry())))
	if err != nil {
		return Pair{}, fmt.Errorf("[Issuer Issue] refresh token: %w", err)
	}

	return Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    BearerType,
		ExpiresAt:    accessExpiry,
	}, nil
}

func (i *Issuer) claims(user *users.User, sessionToken, typ string, iat, exp time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"iss":         i.config.GetJWTIssuer(), // The issuer of the token
		"sub":         user.ID,                 // Application user id
		"telegram_id": user.TelegramID,         // Bound Telegram account
		"sid":         sessionToken,            // Login session that produced the token
		"typ":         typ,                     // access or refresh
		"iat":         iat.Unix(),              // Issued At
		"exp":         exp.Unix(),              // Expiry
		"jti":         uuid.New().String(),     // Unique token ID
	}
}

func (i *Issuer) sign(claims jwt.MapClaims) (string, error) {
	signed, err := i.signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT token: %w", err)
	}
	return signed, nil
}
