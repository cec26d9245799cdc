package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jrsteele09/go-bot-login/internal/utils"
)

// TokenIntrospection describes a token. If Active is false, other fields may not be populated.
type TokenIntrospection struct {
	Active     bool    `json:"active"`               // Is the token valid and unexpired
	Type       string  `json:"typ,omitempty"`        // access or refresh
	Sub        *string `json:"sub,omitempty"`        // Users unique ID
	TelegramID *string `json:"telegramId,omitempty"` // Bound Telegram account
	SessionID  *string `json:"sid,omitempty"`        // Login session token
	Iss        *string `json:"iss,omitempty"`        // Issuer of the token
	Exp        *int64  `json:"exp,omitempty"`        // Expiration
	Iat        *int64  `json:"iat,omitempty"`        // Issued at time
	Jti        string  `json:"jti,omitempty"`        // Token id
}

// Inspector validates tokens produced by an Issuer
type Inspector struct {
	signer Signer
	now    func() time.Time
}

// NewInspector creates a new JWT inspector
func NewInspector(signer Signer) *Inspector {
	return &Inspector{signer: signer, now: time.Now}
}

// WithNowTime overrides the clock, for tests
func (i *Inspector) WithNowTime(now func() time.Time) *Inspector {
	i.now = now
	return i
}

// Introspect validates the signature and extracts the claims. Expiry is evaluated against the
// inspector's clock, so an expired token yields Active=false without an error.
func (i *Inspector) Introspect(rawToken string) (*TokenIntrospection, error) {
	if strings.TrimSpace(rawToken) == "" {
		return &TokenIntrospection{Active: false}, nil
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{i.signer.GetSigningMethod().Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	token, err := parser.ParseWithClaims(rawToken, jwt.MapClaims{}, i.signer.GetVerificationKey)
	if err != nil || !token.Valid {
		return &TokenIntrospection{Active: false}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return &TokenIntrospection{Active: false}, errors.New("error extracting claims from token")
	}

	typ, _ := claims["typ"].(string)
	jti, _ := claims["jti"].(string)
	iat, _ := claims["iat"].(float64)
	exp, _ := claims["exp"].(float64)

	return &TokenIntrospection{
		Active:     i.now().Unix() <= int64(exp),
		Type:       typ,
		Sub:        utils.OptionalClaim[string](claims, "sub"),
		TelegramID: utils.OptionalClaim[string](claims, "telegram_id"),
		SessionID:  utils.OptionalClaim[string](claims, "sid"),
		Iss:        utils.OptionalClaim[string](claims, "iss"),
		Exp:        utils.Ptr(int64(exp)),
		Iat:        utils.Ptr(int64(iat)),
		Jti:        jti,
	}, nil
}

// AccessSubject returns the user id of an active access token
func (i *Inspector) AccessSubject(rawToken string) (string, error) {
	info, err := i.Introspect(rawToken)
	if err != nil {
		return "", err
	}
	if !info.Active || info.Type != TypeAccess {
		return "", errors.New("token is not an active access token")
	}
	return utils.Value(info.Sub), nil
}
