package broker

import (
	"time"

	apperrors "github.com/jrsteele09/go-bot-login/internal/errors"
	"github.com/jrsteele09/go-bot-login/loginsession"
	"github.com/jrsteele09/go-bot-login/users"
)

// JSON bodies of the /auth/bot endpoints, shared by the server handlers and brokerclient.

type CreateTokenRequest struct {
	DeviceInfo string `json:"deviceInfo,omitempty"`
}

type CheckLoginResponse struct {
	Status       loginsession.Status `json:"status"`
	AccessToken  string              `json:"accessToken,omitempty"`
	RefreshToken string              `json:"refreshToken,omitempty"`
	TokenType    string              `json:"tokenType,omitempty"`
	ExpiresAt    *time.Time          `json:"expiresAt,omitempty"`
	User         *users.User         `json:"user,omitempty"`
	Message      string              `json:"message,omitempty"`
}

// NewCheckLoginResponse flattens a CheckResult into its wire form
func NewCheckLoginResponse(res CheckResult) CheckLoginResponse {
	resp := CheckLoginResponse{Status: res.Status, User: res.User, Message: res.Message}
	if res.Credentials != nil {
		expiresAt := res.Credentials.ExpiresAt
		resp.AccessToken = res.Credentials.AccessToken
		resp.RefreshToken = res.Credentials.RefreshToken
		resp.TokenType = res.Credentials.TokenType
		resp.ExpiresAt = &expiresAt
	}
	return resp
}

// Result converts the wire form back to a CheckResult
func (r CheckLoginResponse) Result() CheckResult {
	res := CheckResult{Status: r.Status, User: r.User, Message: r.Message}
	if r.AccessToken != "" {
		res.Credentials = &loginsession.Credentials{
			AccessToken:  r.AccessToken,
			RefreshToken: r.RefreshToken,
			TokenType:    r.TokenType,
		}
		if r.ExpiresAt != nil {
			res.Credentials.ExpiresAt = *r.ExpiresAt
		}
	}
	return res
}

type ConfirmLoginResponse struct {
	OK               bool                `json:"ok"`
	Status           loginsession.Status `json:"status,omitempty"`
	AlreadyConfirmed bool                `json:"alreadyConfirmed,omitempty"`
	User             *users.User         `json:"user,omitempty"`
	Message          string              `json:"message,omitempty"`
	Error            string              `json:"error,omitempty"`
}

type CancelLoginRequest struct {
	Token string `json:"token"`
}

type CancelLoginResponse struct {
	OK     bool                `json:"ok"`
	Status loginsession.Status `json:"status"`
	Error  string              `json:"error,omitempty"`
}

// ErrorResponse is the body of every non-2xx answer
type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"` // Machine readable failure, see ErrorCode
	Message string `json:"message,omitempty"`
}

const (
	CodeInvalidRequest     = "invalid_request"
	CodeInvalidToken       = "invalid_token"
	CodeSessionNotFound    = "session_not_found"
	CodeSessionExpired     = "session_expired"
	CodeSessionCancelled   = "session_cancelled"
	CodeSessionAlreadyUsed = "session_already_used"
	CodeUnauthorized       = "unauthorized"
	CodeRateLimited        = "rate_limited"
	CodeInternal           = "internal_error"
)

var codeErrors = map[string]error{
	CodeInvalidRequest:     apperrors.ErrInvalidRequest,
	CodeInvalidToken:       apperrors.ErrInvalidToken,
	CodeSessionNotFound:    apperrors.ErrSessionNotFound,
	CodeSessionExpired:     apperrors.ErrSessionExpired,
	CodeSessionCancelled:   apperrors.ErrSessionCancelled,
	CodeSessionAlreadyUsed: apperrors.ErrSessionAlreadyUsed,
	CodeUnauthorized:       apperrors.ErrUnauthorized,
	CodeRateLimited:        apperrors.ErrRateLimited,
	CodeInternal:           apperrors.ErrInternal,
}

// ErrorCode returns the wire code for err, falling back to internal_error
func ErrorCode(err error) string {
	for code, sentinel := range codeErrors {
		if apperrors.Is(err, sentinel) {
			return code
		}
	}
	if apperrors.Is(err, apperrors.ErrMissingTelegramID) {
		return CodeInvalidRequest
	}
	return CodeInternal
}

// CodeError returns the sentinel for a wire code, or nil when the code is unknown
func CodeError(code string) error {
	return codeErrors[code]
}
