package server

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-bot-login/broker"
	apperrors "github.com/jrsteele09/go-bot-login/internal/errors"
)

// UserHandler returns the user owning the bearer access token
func (s *Server) UserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserIDFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, apperrors.ErrUnauthorized, "Unauthorized")
			return
		}

		user, err := s.deps.Users.GetByID(r.Context(), userID)
		if apperrors.Is(err, apperrors.ErrUserNotFound) {
			writeJSON(w, http.StatusNotFound, broker.ErrorResponse{Error: "User not found"})
			return
		}
		if err != nil {
			log.Err(err).Str("user_id", userID).Msg("Failed to load user")
			writeError(w, http.StatusInternalServerError, err, "Internal server error")
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}
