package server

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/jrsteele09/go-bot-login/internal/errors"
	"github.com/jrsteele09/go-bot-login/telegram"
)

// WebhookStatusResponse is served on GET /api/bot
type WebhookStatusResponse struct {
	OK          bool                    `json:"ok"`
	Configured  bool                    `json:"configured"`
	Healthy     bool                    `json:"healthy"`
	ExpectedURL string                  `json:"expectedUrl,omitempty"`
	URLMatches  bool                    `json:"urlMatches"`
	Webhook     *telegram.WebhookStatus `json:"webhook,omitempty"`
}

// WebhookStatusHandler reports whether Telegram is delivering updates to this service
func (s *Server) WebhookStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Bot == nil {
			writeJSON(w, http.StatusOK, WebhookStatusResponse{OK: true})
			return
		}

		status, err := telegram.GetWebhookStatus(s.deps.Bot)
		if err != nil {
			log.Err(err).Msg("Failed to fetch webhook info")
			writeError(w, http.StatusBadGateway, apperrors.ErrInternal, "Failed to fetch webhook info")
			return
		}

		expected := s.config.GetWebhookURL()
		writeJSON(w, http.StatusOK, WebhookStatusResponse{
			OK:          true,
			Configured:  true,
			Healthy:     status.Healthy(),
			ExpectedURL: expected,
			URLMatches:  expected != "" && strings.EqualFold(status.URL, expected),
			Webhook:     &status,
		})
	}
}
