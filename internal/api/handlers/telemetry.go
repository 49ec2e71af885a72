package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/telemetry"
	apperrors "github.com/frostdev-ops/agent-dashboard-backend/pkg/errors"
	"github.com/frostdev-ops/agent-dashboard-backend/pkg/utils"
)

// RecordExecutionLog stores the outcome of an agent task
func (h *Handlers) RecordExecutionLog(c *gin.Context) {
	var row telemetry.ExecutionLog
	if !h.bindTelemetry(c, &row) {
		return
	}
	if strings.TrimSpace(row.Status) == "" {
		utils.SendAppError(c, apperrors.BadRequest("status is required"))
		return
	}

	h.storeTelemetry(c, "execution_log", &row, func(ctx context.Context) error {
		return h.recorder.RecordExecutionLog(ctx, &row)
	})
}

// RecordPerformanceLog stores one operation timing, in milliseconds
func (h *Handlers) RecordPerformanceLog(c *gin.Context) {
	var row telemetry.PerformanceLog
	if !h.bindTelemetry(c, &row) {
		return
	}
	if row.Duration < 0 {
		utils.SendAppError(c, apperrors.BadRequest("duration must not be negative"))
		return
	}

	h.storeTelemetry(c, "performance_log", &row, func(ctx context.Context) error {
		return h.recorder.RecordPerformanceLog(ctx, &row)
	})
}

// RecordErrorLog stores an error reported by an agent
func (h *Handlers) RecordErrorLog(c *gin.Context) {
	var row telemetry.ErrorLog
	if !h.bindTelemetry(c, &row) {
		return
	}
	if strings.TrimSpace(row.Message) == "" {
		utils.SendAppError(c, apperrors.BadRequest("message is required"))
		return
	}

	h.storeTelemetry(c, "error_log", &row, func(ctx context.Context) error {
		return h.recorder.RecordErrorLog(ctx, &row)
	})
}

// RecordSystemMetric stores one system metric sample such as memory_usage
func (h *Handlers) RecordSystemMetric(c *gin.Context) {
	var row telemetry.SystemMetric
	if !h.bindTelemetry(c, &row) {
		return
	}
	if strings.TrimSpace(row.Type) == "" {
		utils.SendAppError(c, apperrors.BadRequest("type is required"))
		return
	}

	h.storeTelemetry(c, "system_metric", &row, func(ctx context.Context) error {
		return h.recorder.RecordSystemMetric(ctx, &row)
	})
}

func (h *Handlers) bindTelemetry(c *gin.Context, row interface{}) bool {
	if err := c.ShouldBindJSON(row); err != nil {
		utils.SendAppError(c, apperrors.BadRequest(err.Error()))
		return false
	}
	return true
}

func (h *Handlers) storeTelemetry(c *gin.Context, kind string, row interface{}, record func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := record(ctx); err != nil {
		h.log.WithError(err).WithField("kind", kind).Error("Failed to record telemetry")
		utils.SendError(c, http.StatusInternalServerError, "Failed to record telemetry")
		return
	}

	utils.SendSuccessWithStatus(c, http.StatusCreated, row)
}
