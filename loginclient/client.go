// Package loginclient drives the initiator side of the bot login: it creates a token, opens
// the Telegram deep link and polls until the login is approved, fails or times out.
package loginclient

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-bot-login/backoff"
	"github.com/jrsteele09/go-bot-login/broker"
	apperrors "github.com/jrsteele09/go-bot-login/internal/errors"
	"github.com/jrsteele09/go-bot-login/internal/utils"
	"github.com/jrsteele09/go-bot-login/loginsession"
	"github.com/jrsteele09/go-bot-login/users"
)

// State of the login attempt
type State string

const (
	StateIdle          State = "idle"
	StateCreatingToken State = "creating_token"
	StatePolling       State = "polling"
	StateApproved      State = "approved"
	StateError         State = "error"
	StateTimeout       State = "timeout"
	StateCancelled     State = "cancelled"
)

// IsTerminal reports whether the attempt has finished
func (s State) IsTerminal() bool {
	switch s {
	case StateApproved, StateError, StateTimeout, StateCancelled:
		return true
	}
	return false
}

// Broker is the token broker API used by the client. *brokerclient.Client satisfies it.
type Broker interface {
	CreateLoginToken(ctx context.Context, deviceInfo string) (broker.CreateResult, error)
	CheckLogin(ctx context.Context, token string) (broker.CheckResult, error)
}

// Opener shows the deep link to the user
type Opener interface {
	Open(url string) error
}

// OpenerFunc adapts a function to Opener
type OpenerFunc func(url string) error

func (f OpenerFunc) Open(url string) error {
	return f(url)
}

// Result of an approved login
type Result struct {
	Token *oauth2.Token
	User  *users.User
}

// Event reports a state change or progress of the current attempt
type Event struct {
	State       State
	LoginToken  string        // Set from polling onwards
	BotURL      string        // Set from polling onwards
	Attempt     int           // Poll attempt, set while polling
	MaxAttempts int           // Poll budget, set while polling
	Wait        *backoff.Wait // Retry countdown while creating the token
	Result      *Result       // Set on approved
	Err         error         // Set on error and timeout
}

type intentKind int

const (
	intentStart intentKind = iota
	intentCancel
)

type intent struct {
	kind       intentKind
	deviceInfo string
}

// Client runs one login attempt at a time. Start and Cancel are delivered as intents to the
// goroutine running Run, which owns all attempt state.
type Client struct {
	broker       Broker
	retry        *backoff.Controller
	opener       Opener
	pollInterval time.Duration
	maxAttempts  int

	intents chan intent
	events  chan Event
}

// Option configures a Client
type Option func(*Client)

// WithPollInterval sets the delay between status checks
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		c.pollInterval = d
	}
}

// WithMaxPollAttempts sets the number of status checks before timing out
func WithMaxPollAttempts(n int) Option {
	return func(c *Client) {
		c.maxAttempts = n
	}
}

// WithOpener sets how the deep link is shown
func WithOpener(o Opener) Option {
	return func(c *Client) {
		c.opener = o
	}
}

const (
	defaultPollInterval = 2 * time.Second
	defaultMaxAttempts  = 150
)

// New creates a Client. Defaults: poll every 2s, at most 150 times. Non-positive settings
// fall back to the defaults.
func New(b Broker, retry *backoff.Controller, opts ...Option) *Client {
	c := &Client{
		broker:       b,
		retry:        retry,
		opener:       OpenerFunc(func(string) error { return nil }),
		pollInterval: defaultPollInterval,
		maxAttempts:  defaultMaxAttempts,
		intents:      make(chan intent, 8),
		events:       make(chan Event, 32),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pollInterval <= 0 {
		c.pollInterval = defaultPollInterval
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = defaultMaxAttempts
	}
	return c
}

// Start requests a new login attempt, cancelling any attempt in progress
func (c *Client) Start(deviceInfo string) {
	c.intents <- intent{kind: intentStart, deviceInfo: deviceInfo}
}

// Cancel stops the current attempt. The token is forgotten locally; the server is not told.
func (c *Client) Cancel() {
	c.intents <- intent{kind: intentCancel}
}

// Events streams the progress of attempts started through Run
func (c *Client) Events() <-chan Event {
	return c.events
}

// Run processes intents until ctx is done
func (c *Client) Run(ctx context.Context) error {
	emit := func(ev Event) {
		select {
		case c.events <- ev:
		case <-ctx.Done():
		}
	}

	for {
		var next *intent
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in := <-c.intents:
			next = &in
		}

		for next != nil {
			switch next.kind {
			case intentStart:
				_, next = c.login(ctx, next.deviceInfo, emit)
			default:
				// Nothing in progress
				next = nil
			}
		}
	}
}

// Login runs attempts to completion in the calling goroutine. onEvent may be nil. A Cancel
// call made while Login runs ends it with ErrLoginCancelled; a Start call restarts it with
// the new device info, as Run does.
func (c *Client) Login(ctx context.Context, deviceInfo string, onEvent func(Event)) (Result, error) {
	if onEvent == nil {
		onEvent = func(Event) {}
	}
	final, next := c.login(ctx, deviceInfo, onEvent)
	for next != nil {
		final, next = c.login(ctx, next.deviceInfo, onEvent)
	}
	switch {
	case final.State == StateApproved:
		return *final.Result, nil
	case final.Err != nil:
		return Result{}, final.Err
	case ctx.Err() != nil:
		return Result{}, ctx.Err()
	}
	return Result{}, apperrors.ErrLoginCancelled
}

// login executes one attempt. It returns the terminal event and, when the attempt was
// interrupted by a new Start, that intent.
func (c *Client) login(ctx context.Context, deviceInfo string, emit func(Event)) (Event, *intent) {
	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	finish := func(ev Event) Event {
		emit(ev)
		return ev
	}
	interrupted := func(in *intent) (Event, *intent) {
		ev := finish(Event{State: StateCancelled, Err: apperrors.ErrLoginCancelled})
		if in != nil && in.kind == intentStart {
			return ev, in
		}
		return ev, nil
	}

	emit(Event{State: StateCreatingToken})

	var created broker.CreateResult
	var createErr error
	in, done := c.await(attemptCtx, func(ctx context.Context) {
		createErr = c.retry.Do(ctx, func(ctx context.Context) error {
			var err error
			created, err = c.broker.CreateLoginToken(ctx, deviceInfo)
			return err
		}, func(w backoff.Wait) {
			emit(Event{State: StateCreatingToken, Wait: &w})
		})
	})
	if !done {
		return interrupted(in)
	}
	if createErr != nil {
		log.Err(createErr).Msg("Failed to create login token")
		return finish(Event{State: StateError, Err: createErr}), nil
	}

	if err := c.opener.Open(created.BotURL); err != nil {
		log.Warn().Err(err).Msg("Could not open the login link")
	}
	polling := Event{State: StatePolling, LoginToken: created.Token, BotURL: created.BotURL, MaxAttempts: c.maxAttempts}
	emit(polling)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return interrupted(nil)
		case in := <-c.intents:
			return interrupted(&in)
		case <-ticker.C:
		}

		var res broker.CheckResult
		var checkErr error
		in, done := c.await(attemptCtx, func(ctx context.Context) {
			res, checkErr = c.broker.CheckLogin(ctx, created.Token)
		})
		if !done {
			return interrupted(in)
		}
		if checkErr != nil {
			// Transient: only the attempt budget ends polling
			log.Warn().Err(checkErr).Str("token", utils.Redact(created.Token)).Int("attempt", attempt).Msg("Login status check failed")
			continue
		}

		switch res.Status {
		case loginsession.StatusApproved:
			result := resultFrom(res)
			return finish(Event{State: StateApproved, LoginToken: created.Token, BotURL: created.BotURL, Result: &result}), nil
		case loginsession.StatusExpired:
			return finish(Event{State: StateError, LoginToken: created.Token, Err: apperrors.ErrSessionExpired}), nil
		case loginsession.StatusNotFound:
			return finish(Event{State: StateError, LoginToken: created.Token, Err: apperrors.ErrSessionNotFound}), nil
		case loginsession.StatusCancelled:
			return finish(Event{State: StateError, LoginToken: created.Token, Err: apperrors.ErrSessionCancelled}), nil
		}

		progress := polling
		progress.Attempt = attempt
		emit(progress)
	}

	return finish(Event{State: StateTimeout, LoginToken: created.Token, Err: apperrors.ErrLoginTimeout}), nil
}

// await runs fn in a goroutine and waits for it, an intent or ctx. When interrupted, fn's
// context is cancelled and await waits for fn to return before handing back the intent.
func (c *Client) await(ctx context.Context, fn func(ctx context.Context)) (*intent, bool) {
	fnCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(fnCtx)
	}()

	select {
	case <-done:
		return nil, true
	case in := <-c.intents:
		cancel()
		<-done
		return &in, false
	case <-ctx.Done():
		<-done
		return nil, false
	}
}

func resultFrom(res broker.CheckResult) Result {
	result := Result{User: res.User}
	if res.Credentials != nil {
		result.Token = &oauth2.Token{
			AccessToken:  res.Credentials.AccessToken,
			RefreshToken: res.Credentials.RefreshToken,
			TokenType:    res.Credentials.TokenType,
			Expiry:       res.Credentials.ExpiresAt,
		}
	}
	return result
}
