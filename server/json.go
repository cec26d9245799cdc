package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-bot-login/broker"
	apperrors "github.com/jrsteele09/go-bot-login/internal/errors"
)

const (
	contentTypeJSON = "application/json"
	maxBodyBytes    = 64 << 10
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("Failed to write response")
	}
}

// writeError writes the ErrorResponse for err with a user facing message
func writeError(w http.ResponseWriter, status int, err error, message string) {
	writeJSON(w, status, broker.ErrorResponse{Error: message, Code: broker.ErrorCode(err)})
}

// decodeJSON reads a bounded JSON body. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "decode body: %v", err)
	}
	return nil
}

// statusFor maps broker errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case apperrors.Is(err, apperrors.ErrInvalidToken),
		apperrors.Is(err, apperrors.ErrMissingTelegramID),
		apperrors.Is(err, apperrors.ErrInvalidRequest):
		return http.StatusBadRequest
	case apperrors.Is(err, apperrors.ErrSessionNotFound):
		return http.StatusNotFound
	case apperrors.Is(err, apperrors.ErrSessionAlreadyUsed), apperrors.Is(err, apperrors.ErrSessionCancelled):
		return http.StatusConflict
	case apperrors.Is(err, apperrors.ErrSessionExpired):
		return http.StatusGone
	case apperrors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized
	case apperrors.Is(err, apperrors.ErrRateLimited):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// userMessage is the public text for err; internal failures are not described
func userMessage(err error) string {
	switch {
	case apperrors.Is(err, apperrors.ErrMissingTelegramID):
		return "Telegram ID is required"
	case apperrors.Is(err, apperrors.ErrInvalidToken):
		return "Invalid login token"
	case apperrors.Is(err, apperrors.ErrInvalidRequest):
		return "Invalid request body"
	case apperrors.Is(err, apperrors.ErrSessionNotFound):
		return "Login token not found"
	case apperrors.Is(err, apperrors.ErrSessionAlreadyUsed):
		return "Login token already used"
	case apperrors.Is(err, apperrors.ErrSessionCancelled):
		return "Login was cancelled"
	case apperrors.Is(err, apperrors.ErrSessionExpired):
		return "Login token expired"
	}
	return "Internal server error"
}
