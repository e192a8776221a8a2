package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/fabriq-ai/chatcore/repositories/postgres"
	"github.com/fabriq-ai/chatcore/utils"
)

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	db     *postgres.DB
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. db may be nil when the
// service runs without completion recording.
func NewHealthHandler(db *postgres.DB, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		logger: logger,
	}
}

// HandleHealth handles GET /healthz
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, map[string]string{"status": "ok"})
}

// HandleReadiness handles GET /readyz. Readiness only depends on the
// database when one is configured; provider reachability is reported
// separately through the availability endpoint.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.HealthCheck(r.Context()); err != nil {
			h.logger.Warn("readiness check failed", zap.Error(err))
			_ = utils.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
			})
			return
		}
	}

	_ = utils.WriteOK(w, map[string]string{"status": "ready"})
}
