package server

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/go-bot-login/internal/errors"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyUserID stores the authenticated user ID
	ContextKeyUserID ContextKey = "user_id"
)

// RequireAuth validates a Bearer access token issued at login approval
func (s *Server) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Extract Bearer token from Authorization header
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, apperrors.ErrUnauthorized, "Missing Authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
			writeError(w, http.StatusUnauthorized, apperrors.ErrUnauthorized, "Invalid Authorization header format")
			return
		}

		userID, err := s.deps.Inspector.AccessSubject(parts[1])
		if err != nil {
			writeError(w, http.StatusUnauthorized, apperrors.ErrUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeyUserID, userID)
		next(w, r.WithContext(ctx))
	}
}

// UserIDFromContext returns the user authenticated by RequireAuth
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ContextKeyUserID).(string)
	return id, ok && id != ""
}
