package brokerclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-bot-login/backoff"
	"github.com/jrsteele09/go-bot-login/broker"
	"github.com/jrsteele09/go-bot-login/brokerclient"
	apperrors "github.com/jrsteele09/go-bot-login/internal/errors"
	"github.com/jrsteele09/go-bot-login/loginsession"
)

func newServer(t *testing.T, handler http.HandlerFunc) *brokerclient.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return brokerclient.New(srv.URL+"/", brokerclient.WithAPIKey("key-1"))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestCreateLoginToken(t *testing.T) {
	expires := time.Date(2025, 1, 15, 10, 5, 0, 0, time.UTC)
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, brokerclient.CreateTokenPath, r.URL.Path)

		var req broker.CreateTokenRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "cli", req.DeviceInfo)

		writeJSON(w, http.StatusOK, broker.CreateResult{Token: "abc123", BotURL: "https://t.me/bot?start=login_abc123", ExpiresAt: expires})
	})

	res, err := client.CreateLoginToken(context.Background(), "cli")
	require.NoError(t, err)
	require.Equal(t, "abc123", res.Token)
	require.True(t, res.ExpiresAt.Equal(expires))
}

func TestCheckLogin(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "abc123", r.URL.Query().Get("token"))
		writeJSON(w, http.StatusOK, map[string]any{
			"status":       "approved",
			"accessToken":  "access",
			"refreshToken": "refresh",
			"user":         map[string]any{"id": "user-1", "telegramId": "555"},
		})
	})

	res, err := client.CheckLogin(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, loginsession.StatusApproved, res.Status)
	require.Equal(t, "access", res.Credentials.AccessToken)
	require.Equal(t, "refresh", res.Credentials.RefreshToken)
	require.Equal(t, "555", res.User.TelegramID)
}

func TestCheckLoginPending(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "pending"})
	})

	res, err := client.CheckLogin(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, loginsession.StatusPending, res.Status)
	require.Nil(t, res.Credentials)
}

func TestConfirmSendsAPIKeyAndMapsErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   string
		want   error
	}{
		{name: "expired by code", status: http.StatusGone, code: broker.CodeSessionExpired, want: apperrors.ErrSessionExpired},
		{name: "cancelled by code", status: http.StatusConflict, code: broker.CodeSessionCancelled, want: apperrors.ErrSessionCancelled},
		{name: "conflict without code", status: http.StatusConflict, want: apperrors.ErrSessionAlreadyUsed},
		{name: "not found", status: http.StatusNotFound, want: apperrors.ErrSessionNotFound},
		{name: "gone", status: http.StatusGone, want: apperrors.ErrSessionExpired},
		{name: "unauthorized", status: http.StatusUnauthorized, want: apperrors.ErrUnauthorized},
		{name: "server", status: http.StatusBadGateway, want: apperrors.ErrServerFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "key-1", r.Header.Get(brokerclient.APIKeyHeader))
				writeJSON(w, tt.status, broker.ErrorResponse{Error: "failed", Code: tt.code})
			})

			_, err := client.Confirm(context.Background(), broker.ConfirmRequest{Token: "abc123", TelegramID: "555"})
			require.ErrorIs(t, err, tt.want)

			var statusErr *brokerclient.StatusError
			require.ErrorAs(t, err, &statusErr)
			require.Equal(t, tt.status, statusErr.StatusCode)
			require.Equal(t, "failed", statusErr.Message)
		})
	}
}

func TestConfirmSuccess(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req broker.ConfirmRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "555", req.TelegramID)
		writeJSON(w, http.StatusOK, broker.ConfirmLoginResponse{OK: true, Status: loginsession.StatusApproved, AlreadyConfirmed: true})
	})

	res, err := client.Confirm(context.Background(), broker.ConfirmRequest{Token: "abc123", TelegramID: "555"})
	require.NoError(t, err)
	require.Equal(t, loginsession.StatusApproved, res.Status)
	require.True(t, res.AlreadyConfirmed)
}

func TestRateLimitedCarriesRetryAfter(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		writeJSON(w, http.StatusTooManyRequests, broker.ErrorResponse{Error: "slow down", Code: broker.CodeRateLimited})
	})

	_, err := client.CreateLoginToken(context.Background(), "")
	require.ErrorIs(t, err, apperrors.ErrRateLimited)

	decision := brokerclient.Classify(err)
	require.Equal(t, backoff.ReasonRateLimited, decision.Reason)
	require.Equal(t, 7*time.Second, decision.After)
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := brokerclient.New(srv.URL).CheckLogin(context.Background(), "abc123")
	require.ErrorIs(t, err, apperrors.ErrTransport)
	require.False(t, brokerclient.Classify(err).Retryable())
}

func TestClassify(t *testing.T) {
	require.Equal(t, backoff.ReasonServerError, brokerclient.Classify(&brokerclient.StatusError{StatusCode: 500}).Reason)
	require.Equal(t, backoff.ReasonServerError, brokerclient.Classify(&brokerclient.StatusError{StatusCode: 503}).Reason)
	require.Equal(t, backoff.ReasonRateLimited, brokerclient.Classify(&brokerclient.StatusError{StatusCode: 429}).Reason)
	require.False(t, brokerclient.Classify(&brokerclient.StatusError{StatusCode: 404}).Retryable())
	require.False(t, brokerclient.Classify(&brokerclient.StatusError{StatusCode: 400}).Retryable())
}
