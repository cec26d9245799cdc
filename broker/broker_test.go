package broker_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-bot-login/broker"
	apperrors "github.com/jrsteele09/go-bot-login/internal/errors"
	"github.com/jrsteele09/go-bot-login/loginsession"
	"github.com/jrsteele09/go-bot-login/token"
	fakeuserrepo "github.com/jrsteele09/go-bot-login/users/repofake"
)

type testConfig struct{}

func (testConfig) GetBotName() string                    { return "botlogin_bot" }
func (testConfig) GetLoginTokenTTL() time.Duration       { return 5 * time.Minute }
func (testConfig) GetLoginTokenRetention() time.Duration { return 10 * time.Minute }
func (testConfig) GetLoginTokenBytes() int               { return 16 }
func (testConfig) GetJWTIssuer() string                  { return "http://localhost:8080" }
func (testConfig) GetAccessTokenExpiry() time.Duration   { return time.Hour }
func (testConfig) GetRefreshTokenExpiry() time.Duration  { return 7 * 24 * time.Hour }

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	broker   *broker.TokenBroker
	sessions *loginsession.InMemoryRepo
	users    *fakeuserrepo.FakeUserRepo
	clock    *clock
}

func newFixture(t *testing.T, tokens ...string) *fixture {
	t.Helper()

	c := &clock{now: time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)}
	sessions := loginsession.NewInMemoryRepo()
	userRepo := fakeuserrepo.NewFakeUserRepo().WithNowTime(c.Now)
	issuer := token.NewIssuer(testConfig{}, token.NewHMACSigner("test-secret")).WithNowTime(c.Now)

	opts := []broker.Option{broker.WithNowTime(c.Now)}
	if len(tokens) > 0 {
		var mu sync.Mutex
		next := 0
		opts = append(opts, broker.WithTokenGenerator(func() (string, error) {
			mu.Lock()
			defer mu.Unlock()
			if next >= len(tokens) {
				return "", fmt.Errorf("no more tokens")
			}
			tok := tokens[next]
			next++
			return tok, nil
		}))
	}

	return &fixture{
		broker:   broker.New(testConfig{}, sessions, userRepo, issuer, opts...),
		sessions: sessions,
		users:    userRepo,
		clock:    c,
	}
}

func alice(tok string) broker.ConfirmRequest {
	return broker.ConfirmRequest{Token: tok, TelegramID: "555", Username: "alice", FirstName: "Alice"}
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.broker.Create(ctx, "cli")
	require.NoError(t, err)
	require.Len(t, res.Token, 32)
	require.Regexp(t, `^[a-f0-9]{32}$`, res.Token)
	require.Equal(t, "https://t.me/botlogin_bot?start=login_"+res.Token, res.BotURL)
	require.Equal(t, f.clock.Now().Add(5*time.Minute), res.ExpiresAt)

	check, err := f.broker.Check(ctx, res.Token)
	require.NoError(t, err)
	require.Equal(t, loginsession.StatusPending, check.Status)
	require.Nil(t, check.Credentials)
}

func TestCreateRetriesOnCollision(t *testing.T) {
	f := newFixture(t, "abc123", "abc123", "def456")
	ctx := context.Background()

	_, err := f.broker.Create(ctx, "")
	require.NoError(t, err)

	res, err := f.broker.Create(ctx, "")
	require.NoError(t, err)
	require.Equal(t, "def456", res.Token)
}

func TestCreateGivesUpAfterRepeatedCollisions(t *testing.T) {
	f := newFixture(t, "abc123", "abc123", "abc123", "abc123")
	ctx := context.Background()

	_, err := f.broker.Create(ctx, "")
	require.NoError(t, err)

	_, err = f.broker.Create(ctx, "")
	require.ErrorIs(t, err, apperrors.ErrTokenCollision)
}

func TestCheckUnknownToken(t *testing.T) {
	f := newFixture(t)

	res, err := f.broker.Check(context.Background(), "ffff")
	require.NoError(t, err)
	require.Equal(t, loginsession.StatusNotFound, res.Status)
}

func TestConfirmThenCheck(t *testing.T) {
	f := newFixture(t, "abc123")
	ctx := context.Background()
	_, err := f.broker.Create(ctx, "cli")
	require.NoError(t, err)

	res, err := f.broker.Confirm(ctx, alice("abc123"))
	require.NoError(t, err)
	require.Equal(t, loginsession.StatusApproved, res.Status)
	require.Equal(t, "555", res.User.TelegramID)
	require.False(t, res.AlreadyConfirmed)

	check, err := f.broker.Check(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, loginsession.StatusApproved, check.Status)
	require.NotNil(t, check.Credentials)
	require.NotEmpty(t, check.Credentials.AccessToken)
	require.NotEmpty(t, check.Credentials.RefreshToken)
	require.Equal(t, res.User.ID, check.User.ID)
	require.Equal(t, "alice", check.User.Username)

	// Credentials are returned on every poll
	again, err := f.broker.Check(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, check.Credentials.AccessToken, again.Credentials.AccessToken)

	require.Equal(t, 1, f.users.Count())
}

func TestConfirmIsIdempotentForSameAccount(t *testing.T) {
	f := newFixture(t, "abc123")
	ctx := context.Background()
	_, err := f.broker.Create(ctx, "")
	require.NoError(t, err)

	first, err := f.broker.Confirm(ctx, alice("abc123"))
	require.NoError(t, err)
	before, err := f.broker.Check(ctx, "abc123")
	require.NoError(t, err)

	second, err := f.broker.Confirm(ctx, alice("ABC123"))
	require.NoError(t, err)
	require.True(t, second.AlreadyConfirmed)
	require.Equal(t, first.User.ID, second.User.ID)

	after, err := f.broker.Check(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, before.Credentials.AccessToken, after.Credentials.AccessToken)
}

func TestConfirmByDifferentAccount(t *testing.T) {
	f := newFixture(t, "abc123")
	ctx := context.Background()
	_, err := f.broker.Create(ctx, "")
	require.NoError(t, err)
	_, err = f.broker.Confirm(ctx, alice("abc123"))
	require.NoError(t, err)

	_, err = f.broker.Confirm(ctx, broker.ConfirmRequest{Token: "abc123", TelegramID: "777"})
	require.ErrorIs(t, err, apperrors.ErrSessionAlreadyUsed)

	check, err := f.broker.Check(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, "555", check.User.TelegramID)
}

func TestExpiry(t *testing.T) {
	f := newFixture(t, "abc123", "def456")
	ctx := context.Background()
	_, err := f.broker.Create(ctx, "")
	require.NoError(t, err)
	_, err = f.broker.Create(ctx, "")
	require.NoError(t, err)

	f.clock.Advance(5*time.Minute + time.Second)

	// Check persists the transition
	check, err := f.broker.Check(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, loginsession.StatusExpired, check.Status)
	stored, err := f.sessions.Get(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, loginsession.StatusExpired, stored.Status)

	// Confirm on a never polled token also reports expiry
	_, err = f.broker.Confirm(ctx, alice("def456"))
	require.ErrorIs(t, err, apperrors.ErrSessionExpired)
	check, err = f.broker.Check(ctx, "def456")
	require.NoError(t, err)
	require.Equal(t, loginsession.StatusExpired, check.Status)
	require.Equal(t, 0, f.users.Count())
}

func TestConfirmValidation(t *testing.T) {
	f := newFixture(t, "abc123")
	ctx := context.Background()
	_, err := f.broker.Create(ctx, "")
	require.NoError(t, err)

	_, err = f.broker.Confirm(ctx, broker.ConfirmRequest{Token: "not-hex", TelegramID: "555"})
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)

	_, err = f.broker.Confirm(ctx, broker.ConfirmRequest{Token: "abc123"})
	require.ErrorIs(t, err, apperrors.ErrMissingTelegramID)

	_, err = f.broker.Confirm(ctx, alice("ffff"))
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestCancel(t *testing.T) {
	f := newFixture(t, "abc123")
	ctx := context.Background()
	_, err := f.broker.Create(ctx, "")
	require.NoError(t, err)

	status, err := f.broker.Cancel(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, loginsession.StatusCancelled, status)

	_, err = f.broker.Confirm(ctx, alice("abc123"))
	require.ErrorIs(t, err, apperrors.ErrSessionCancelled)

	check, err := f.broker.Check(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, loginsession.StatusCancelled, check.Status)

	status, err = f.broker.Cancel(ctx, "ffff")
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	require.Equal(t, loginsession.StatusNotFound, status)
}

func TestSweep(t *testing.T) {
	f := newFixture(t, "abc123")
	ctx := context.Background()
	_, err := f.broker.Create(ctx, "")
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	removed, err := f.broker.Sweep(ctx)
	require.NoError(t, err)
	require.Zero(t, removed)

	// Late polls inside the retention window still see expired
	check, err := f.broker.Check(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, loginsession.StatusExpired, check.Status)

	f.clock.Advance(5*time.Minute + time.Second)
	removed, err = f.broker.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	check, err = f.broker.Check(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, loginsession.StatusNotFound, check.Status)
}

func TestConcurrentConfirmAndCheck(t *testing.T) {
	f := newFixture(t, "abc123")
	ctx := context.Background()
	_, err := f.broker.Create(ctx, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan broker.CheckResult, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.broker.Check(ctx, "abc123")
			if err == nil {
				results <- res
			}
		}()
	}
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.broker.Confirm(ctx, alice("abc123"))
		}()
	}
	wg.Wait()
	close(results)

	for res := range results {
		if res.Status == loginsession.StatusApproved {
			require.NotNil(t, res.Credentials)
			require.NotNil(t, res.User)
		} else {
			require.Equal(t, loginsession.StatusPending, res.Status)
			require.Nil(t, res.Credentials)
		}
	}

	final, err := f.broker.Check(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, loginsession.StatusApproved, final.Status)
}
