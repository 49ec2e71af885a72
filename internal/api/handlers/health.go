package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/agent-dashboard-backend/pkg/utils"
	"github.com/frostdev-ops/agent-dashboard-backend/pkg/version"
)

// Health returns the aggregated component health. Unhealthy maps to 503.
func (h *Handlers) Health(c *gin.Context) {
	if h.health == nil {
		utils.SendSuccess(c, gin.H{
			"status":  "healthy",
			"version": version.GetVersion(),
		})
		return
	}

	report := h.health.GetOverallHealth()
	status := http.StatusOK
	if report.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, report)
}

// Metrics serves the Prometheus scrape endpoint
func (h *Handlers) Metrics(c *gin.Context) {
	if h.metrics == nil {
		utils.SendError(c, http.StatusNotFound, "Metrics are disabled")
		return
	}
	h.metrics.ServeHTTP(c.Writer, c.Request)
}

// GetSystemResources returns host utilisation and runtime statistics
func (h *Handlers) GetSystemResources(c *gin.Context) {
	if h.resources == nil {
		utils.SendError(c, http.StatusServiceUnavailable, "Resource monitoring is not available")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	report, err := h.resources.Report(ctx)
	if err != nil {
		h.log.WithError(err).Error("Failed to read system resources")
		utils.SendError(c, http.StatusInternalServerError, "Failed to read system resources")
		return
	}

	utils.SendSuccess(c, report)
}

// GetVersion returns build information
func (h *Handlers) GetVersion(c *gin.Context) {
	utils.SendSuccess(c, version.GetBuildInfo())
}

// GetWebSocketStats returns live update hub statistics
func (h *Handlers) GetWebSocketStats(c *gin.Context) {
	if h.wsHub == nil {
		utils.SendError(c, http.StatusServiceUnavailable, "Live updates are not available")
		return
	}
	utils.SendSuccess(c, h.wsHub.GetStats())
}
