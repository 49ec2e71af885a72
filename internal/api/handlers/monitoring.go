package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/alerting"
	"github.com/frostdev-ops/agent-dashboard-backend/pkg/utils"
)

// GetMonitoringStatus returns the scheduling state of the alert monitor
func (h *Handlers) GetMonitoringStatus(c *gin.Context) {
	utils.SendSuccess(c, h.monitor.Status())
}

// StartMonitoring enables periodic rule evaluation and runs one pass now
func (h *Handlers) StartMonitoring(c *gin.Context) {
	if err := h.monitor.Start(c.Request.Context()); err != nil {
		h.log.WithError(err).Error("Failed to start alert monitoring")
		utils.SendError(c, http.StatusInternalServerError, "Failed to start alert monitoring")
		return
	}

	utils.SendSuccess(c, h.monitor.Status())
}

// StopMonitoring disables rule evaluation until started again
func (h *Handlers) StopMonitoring(c *gin.Context) {
	h.monitor.Stop()
	utils.SendSuccess(c, h.monitor.Status())
}

// CheckAlertRules runs one evaluation pass on demand. It is a no-op while
// monitoring is stopped. A failed pass is reported through lastError, like a
// scheduled one.
func (h *Handlers) CheckAlertRules(c *gin.Context) {
	err := h.monitor.CheckAlertRules(c.Request.Context())
	if errors.Is(err, alerting.ErrPassInFlight) {
		utils.SendError(c, http.StatusConflict, "An alert evaluation is already running")
		return
	}
	if err != nil {
		h.log.WithError(err).Warn("Manual alert evaluation failed")
	}

	utils.SendSuccess(c, gin.H{
		"status":  h.monitor.Status(),
		"summary": h.store.Summary(),
	})
}
