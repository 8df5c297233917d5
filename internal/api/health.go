package api

import (
	"context"
	"net/http"
	"time"

	"github.com/pasabayan/chatd/internal/gateway"
	"github.com/pasabayan/chatd/internal/log"
)

// healthCheckTimeout bounds the downstream probe within a health request.
const healthCheckTimeout = 5 * time.Second

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status    string    `json:"status"`
	Gateway   string    `json:"gateway"`
	Timestamp time.Time `json:"timestamp"`
}

// health reports liveness plus downstream marketplace reachability.
// The service stays "degraded" rather than failing when the gateway is
// down: chat still works for questions that need no tools.
func health(gw *gateway.Client, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		resp := healthResponse{
			Status:    "ok",
			Gateway:   "connected",
			Timestamp: time.Now().UTC(),
		}
		if err := gw.Health(ctx); err != nil {
			logger.Warn("gateway health check failed", "error", err)
			resp.Status = "degraded"
			resp.Gateway = "disconnected"
		}

		writeJSON(w, http.StatusOK, resp, logger)
	}
}

// readiness reports whether the conversation store backend is reachable.
// ping is nil for the in-memory store, which is always ready.
func readiness(ping func(context.Context) error, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()

			if err := ping(ctx); err != nil {
				logger.Warn("store readiness check failed", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"}, logger)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"}, logger)
	}
}
