package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const healthCheckTimeout = 3 * time.Second

type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Version     string            `json:"version"`
	Uptime      float64           `json:"uptime"` // Seconds
	Environment string            `json:"environment"`
	Services    map[string]string `json:"services"`
}

// HealthHandler runs every registered check; any failure answers 503
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		resp := HealthResponse{
			Status:      "ok",
			Timestamp:   s.now().UTC(),
			Version:     s.config.GetVersion(),
			Uptime:      s.now().Sub(s.startedAt).Seconds(),
			Environment: s.env,
			Services:    map[string]string{},
		}
		for name, check := range s.deps.Checks {
			if err := check(ctx); err != nil {
				log.Warn().Err(err).Str("service", name).Msg("Health check failed")
				resp.Services[name] = "error"
				resp.Status = "error"
				continue
			}
			resp.Services[name] = "ok"
		}

		status := http.StatusOK
		if resp.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}
