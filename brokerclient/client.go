// Package brokerclient talks to the token broker's /auth/bot HTTP API.
package brokerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/go-bot-login/broker"
	apperrors "github.com/jrsteele09/go-bot-login/internal/errors"
)

const (
	CreateTokenPath  = "/auth/bot/create-login-token"
	CheckLoginPath   = "/auth/bot/check-login"
	ConfirmLoginPath = "/auth/bot/confirm-login"
	CancelLoginPath  = "/auth/bot/cancel-login"

	// APIKeyHeader authenticates internal callers of confirm-login
	APIKeyHeader = "X-Bot-Api-Key"

	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

// StatusError is a non-2xx answer from the broker. It unwraps to the matching sentinel from
// internal/errors so callers can use errors.Is.
type StatusError struct {
	StatusCode int
	RetryAfter time.Duration // Parsed Retry-After header, zero when absent
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("broker responded %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("broker responded %d", e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	if err := broker.CodeError(e.Code); err != nil {
		return err
	}
	switch {
	case e.StatusCode == http.StatusBadRequest:
		return apperrors.ErrInvalidRequest
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return apperrors.ErrUnauthorized
	case e.StatusCode == http.StatusNotFound:
		return apperrors.ErrSessionNotFound
	case e.StatusCode == http.StatusConflict:
		return apperrors.ErrSessionAlreadyUsed
	case e.StatusCode == http.StatusGone:
		return apperrors.ErrSessionExpired
	case e.StatusCode == http.StatusTooManyRequests:
		return apperrors.ErrRateLimited
	case e.StatusCode >= 500:
		return apperrors.ErrServerFailure
	}
	return nil
}

// Client calls the broker over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithAPIKey sets the key sent with confirm-login
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// New creates a client for the broker at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateLoginToken starts a login and returns the token and deep link
func (c *Client) CreateLoginToken(ctx context.Context, deviceInfo string) (broker.CreateResult, error) {
	var res broker.CreateResult
	err := c.do(ctx, http.MethodPost, CreateTokenPath, broker.CreateTokenRequest{DeviceInfo: deviceInfo}, &res)
	return res, err
}

// CheckLogin polls the status of token
func (c *Client) CheckLogin(ctx context.Context, token string) (broker.CheckResult, error) {
	var resp broker.CheckLoginResponse
	path := CheckLoginPath + "?" + url.Values{"token": []string{token}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return broker.CheckResult{}, err
	}
	return resp.Result(), nil
}

// Confirm approves a login through the broker. It satisfies the webhook Confirmer.
func (c *Client) Confirm(ctx context.Context, req broker.ConfirmRequest) (broker.ConfirmResult, error) {
	var resp broker.ConfirmLoginResponse
	if err := c.do(ctx, http.MethodPost, ConfirmLoginPath, req, &resp); err != nil {
		return broker.ConfirmResult{}, err
	}
	return broker.ConfirmResult{Status: resp.Status, User: resp.User, AlreadyConfirmed: resp.AlreadyConfirmed}, nil
}

// CancelLogin closes a pending login on the server
func (c *Client) CancelLogin(ctx context.Context, token string) (broker.CancelLoginResponse, error) {
	var resp broker.CancelLoginResponse
	err := c.do(ctx, http.MethodPost, CancelLoginPath, broker.CancelLoginRequest{Token: token}, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("[brokerclient %s] marshal: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("[brokerclient %s] %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("[brokerclient %s] %w: %w", path, apperrors.ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("[brokerclient %s] %w: read body: %w", path, apperrors.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
		var errBody broker.ErrorResponse
		if json.Unmarshal(data, &errBody) == nil {
			statusErr.Code = errBody.Code
			statusErr.Message = errBody.Error
		}
		return statusErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("[brokerclient %s] decode: %w", path, err)
	}
	return nil
}

// parseRetryAfter accepts delay-seconds or an HTTP date
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
