package server

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-bot-login/broker"
	apperrors "github.com/jrsteele09/go-bot-login/internal/errors"
)

// CreateLoginTokenHandler starts a login for a client that will poll check-login
func (s *Server) CreateLoginTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req broker.CreateTokenRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err, userMessage(err))
			return
		}
		deviceInfo := req.DeviceInfo
		if deviceInfo == "" {
			deviceInfo = r.UserAgent()
		}

		res, err := s.deps.Broker.Create(r.Context(), deviceInfo)
		if err != nil {
			log.Err(err).Msg("Failed to create login token")
			writeError(w, http.StatusInternalServerError, err, "Failed to create login token")
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// CheckLoginHandler reports the status of a login token
func (s *Server) CheckLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok := strings.TrimSpace(r.URL.Query().Get("token"))
		if tok == "" {
			writeError(w, http.StatusBadRequest, apperrors.ErrInvalidRequest, "Token is required")
			return
		}

		res, err := s.deps.Broker.Check(r.Context(), tok)
		if err != nil {
			log.Err(err).Msg("Failed to check login")
			writeError(w, http.StatusInternalServerError, err, "Failed to check login status")
			return
		}
		writeJSON(w, http.StatusOK, broker.NewCheckLoginResponse(res))
	}
}

// ConfirmLoginHandler approves a login on behalf of the bot
func (s *Server) ConfirmLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req broker.ConfirmRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err, userMessage(err))
			return
		}
		if strings.TrimSpace(req.Token) == "" {
			writeError(w, http.StatusBadRequest, apperrors.ErrInvalidRequest, "Token is required")
			return
		}

		res, err := s.deps.Broker.Confirm(r.Context(), req)
		if err != nil {
			status := statusFor(err)
			if status == http.StatusInternalServerError {
				log.Err(err).Msg("Failed to confirm login")
			}
			writeError(w, status, err, userMessage(err))
			return
		}

		message := "Login confirmed"
		if res.AlreadyConfirmed {
			message = "Login already confirmed"
		}
		writeJSON(w, http.StatusOK, broker.ConfirmLoginResponse{
			OK:               true,
			Status:           res.Status,
			AlreadyConfirmed: res.AlreadyConfirmed,
			User:             res.User,
			Message:          message,
		})
	}
}

// CancelLoginHandler closes a pending login
func (s *Server) CancelLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req broker.CancelLoginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err, userMessage(err))
			return
		}
		if strings.TrimSpace(req.Token) == "" {
			writeError(w, http.StatusBadRequest, apperrors.ErrInvalidRequest, "Token is required")
			return
		}

		status, err := s.deps.Broker.Cancel(r.Context(), req.Token)
		if err != nil {
			code := statusFor(err)
			if code == http.StatusInternalServerError {
				log.Err(err).Str("status", string(status)).Msg("Failed to cancel login")
			}
			writeError(w, code, err, userMessage(err))
			return
		}
		writeJSON(w, http.StatusOK, broker.CancelLoginResponse{OK: true, Status: status})
	}
}
