package handler

import (
	"net/http"
	"time"

	"github.com/yndnr/pcompress-go/internal/infra/buildinfo"
	"github.com/yndnr/pcompress-go/internal/telemetry/logger"
)

// handleHealth handles GET /health.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	chains, _, err := h.catalog.Stats()
	if err != nil {
		logger.L(r.Context()).Error("health check failed", "error", err)
		h.writeJSON(w, r, http.StatusServiceUnavailable, &HealthResponse{
			Status:  "unhealthy",
			Time:    time.Now().UTC().Format(time.RFC3339),
			Version: buildinfo.Version,
		})
		return
	}
	h.writeJSON(w, r, http.StatusOK, &HealthResponse{
		Status:  "healthy",
		Time:    time.Now().UTC().Format(time.RFC3339),
		Version: buildinfo.Version,
		Chains:  chains,
	})
}
