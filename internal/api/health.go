// Package api provides the HTTP handlers for relgraph.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/relgraph/internal/ontology"
)

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	backend   ReadinessChecker
	mapping   *ontology.Mapping
	log       *logrus.Logger
	version   string
	mode      string
	startTime time.Time
}

// NewHealthHandler creates a HealthHandler. mode names the backend
// ("postgres" or "fixture") and is reported verbatim.
func NewHealthHandler(backend ReadinessChecker, mapping *ontology.Mapping, log *logrus.Logger, version, mode string) *HealthHandler {
	return &HealthHandler{
		backend:   backend,
		mapping:   mapping,
		log:       log,
		version:   version,
		mode:      mode,
		startTime: time.Now(),
	}
}

// readinessResponse is the JSON payload returned by the readiness endpoint.
type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// healthResponse is the JSON payload returned by the health/liveness endpoint.
type healthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Backend       string  `json:"backend"`
	Database      string  `json:"database"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Liveness handles GET /api/v1/health.
func (h *HealthHandler) Liveness(c *gin.Context) {
	resp := healthResponse{
		Status:        "ok",
		Version:       h.version,
		Backend:       h.mode,
		Database:      "connected",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}

	// Best-effort ping; liveness never fails on it.
	if h.backend != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := h.backend.Ready(ctx); err != nil {
			resp.Database = "disconnected"
		}
	} else {
		resp.Database = "not_configured"
	}

	c.JSON(http.StatusOK, resp)
}

// Readiness handles GET /api/v1/ready: the backend must answer and the
// mapping must be valid.
func (h *HealthHandler) Readiness(c *gin.Context) {
	checks := map[string]string{
		"database": "ok",
		"mapping":  "ok",
	}
	status := "ready"
	statusCode := http.StatusOK

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if h.backend == nil {
		checks["database"] = "not_configured"
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	} else if err := h.backend.Ready(ctx); err != nil {
		h.log.WithError(err).Error("readiness: database check failed")
		checks["database"] = "error"
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	if h.mapping == nil {
		checks["mapping"] = "not_loaded"
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	} else if err := h.mapping.Err(); err != nil {
		h.log.WithError(err).Error("readiness: mapping invalid")
		checks["mapping"] = "invalid"
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, readinessResponse{
		Status: status,
		Checks: checks,
	})
}
