package token_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-bot-login/internal/utils"
	"github.com/jrsteele09/go-bot-login/token"
	"github.com/jrsteele09/go-bot-login/users"
)

type issuerConfig struct{}

func (issuerConfig) GetJWTIssuer() string                 { return "http://localhost:8080" }
func (issuerConfig) GetAccessTokenExpiry() time.Duration  { return time.Hour }
func (issuerConfig) GetRefreshTokenExpiry() time.Duration { return 7 * 24 * time.Hour }

func TestIssueAndIntrospect(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	signer := token.NewHMACSigner("test-secret")
	issuer := token.NewIssuer(issuerConfig{}, signer).WithNowTime(func() time.Time { return now })
	inspector := token.NewInspector(signer).WithNowTime(func() time.Time { return now })

	user := &users.User{ID: "user-1", TelegramID: "555"}
	pair, err := issuer.Issue(user, "abc123")
	require.NoError(t, err)
	require.Equal(t, token.BearerType, pair.TokenType)
	require.True(t, pair.ExpiresAt.Equal(now.Add(time.Hour)))
	require.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	access, err := inspector.Introspect(pair.AccessToken)
	require.NoError(t, err)
	require.True(t, access.Active)
	require.Equal(t, token.TypeAccess, access.Type)
	require.Equal(t, "user-1", utils.Value(access.Sub))
	require.Equal(t, "555", utils.Value(access.TelegramID))
	require.Equal(t, "abc123", utils.Value(access.SessionID))
	require.Equal(t, "http://localhost:8080", utils.Value(access.Iss))
	require.Equal(t, now.Add(time.Hour).Unix(), utils.Value(access.Exp))
	require.NotEmpty(t, access.Jti)

	refresh, err := inspector.Introspect(pair.RefreshToken)
	require.NoError(t, err)
	require.True(t, refresh.Active)
	require.Equal(t, token.TypeRefresh, refresh.Type)
	require.Equal(t, now.Add(7*24*time.Hour).Unix(), utils.Value(refresh.Exp))

	sub, err := inspector.AccessSubject(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", sub)

	_, err = inspector.AccessSubject(pair.RefreshToken)
	require.Error(t, err)
}

func TestIntrospectExpiredToken(t *testing.T) {
	issued := time.Now().Add(-2 * time.Hour)
	signer := token.NewHMACSigner("test-secret")
	issuer := token.NewIssuer(issuerConfig{}, signer).WithNowTime(func() time.Time { return issued })

	pair, err := issuer.Issue(&users.User{ID: "user-1", TelegramID: "555"}, "abc123")
	require.NoError(t, err)

	info, err := token.NewInspector(signer).Introspect(pair.AccessToken)
	require.NoError(t, err)
	require.False(t, info.Active)
}

func TestIntrospectRejectsForeignSignature(t *testing.T) {
	issuer := token.NewIssuer(issuerConfig{}, token.NewHMACSigner("other-secret"))
	pair, err := issuer.Issue(&users.User{ID: "user-1", TelegramID: "555"}, "abc123")
	require.NoError(t, err)

	info, err := token.NewInspector(token.NewHMACSigner("test-secret")).Introspect(pair.AccessToken)
	require.Error(t, err)
	require.False(t, info.Active)
}

func TestIntrospectRejectsNoneAlgorithm(t *testing.T) {
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "user-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	info, err := token.NewInspector(token.NewHMACSigner("test-secret")).Introspect(unsigned)
	require.Error(t, err)
	require.False(t, info.Active)
}

func TestIntrospectEmpty(t *testing.T) {
	info, err := token.NewInspector(token.NewHMACSigner("test-secret")).Introspect("  ")
	require.NoError(t, err)
	require.False(t, info.Active)
}

func TestSignerStampsKeyID(t *testing.T) {
	signer := token.NewHMACSigner("test-secret")
	require.Len(t, signer.KeyID(), 8)
	require.NotEqual(t, signer.KeyID(), token.NewHMACSigner("rotated-secret").KeyID())

	signed, err := signer.Sign(jwt.MapClaims{"sub": "user-1"})
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(signed, jwt.MapClaims{})
	require.NoError(t, err)
	require.Equal(t, signer.KeyID(), parsed.Header["kid"])
}
