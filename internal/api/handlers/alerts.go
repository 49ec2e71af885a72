package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/frostdev-ops/agent-dashboard-backend/internal/api/middleware"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/alerting"
	"github.com/frostdev-ops/agent-dashboard-backend/pkg/utils"
)

// GetAlerts returns the active alerts, newest first
func (h *Handlers) GetAlerts(c *gin.Context) {
	var alerts []alerting.Alert

	if raw := c.Query("severity"); raw != "" {
		severity := alerting.Severity(strings.ToLower(raw))
		if !severity.Valid() {
			utils.SendError(c, http.StatusBadRequest, fmt.Sprintf("Invalid severity %q", raw))
			return
		}
		alerts = h.store.ActiveBySeverity(severity)
	} else {
		alerts = h.store.ActiveAlerts()
	}

	unacknowledged := c.Query("unacknowledged") == "true"
	if unacknowledged {
		filtered := alerts[:0]
		for _, a := range alerts {
			if !a.Acknowledged {
				filtered = append(filtered, a)
			}
		}
		alerts = filtered
	}

	utils.SendSuccessWithMeta(c, alerts, gin.H{
		"count":          len(alerts),
		"unacknowledged": unacknowledged,
	})
}

// GetAlertHistory returns every alert raised since startup, newest first
func (h *Handlers) GetAlertHistory(c *gin.Context) {
	history := h.store.AlertHistory()
	total := len(history)

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			utils.SendError(c, http.StatusBadRequest, "Invalid limit")
			return
		}
		if limit < len(history) {
			history = history[:limit]
		}
	}

	utils.SendSuccessWithMeta(c, history, gin.H{
		"count": len(history),
		"total": total,
	})
}

// GetAlertSummary returns the counts shown on the dashboard badge
func (h *Handlers) GetAlertSummary(c *gin.Context) {
	utils.SendSuccess(c, h.store.Summary())
}

// AcknowledgeAlert marks an alert as seen. Unknown ids succeed without effect.
func (h *Handlers) AcknowledgeAlert(c *gin.Context) {
	alertID := c.Param("id")
	updated := h.store.Acknowledge(alertID)

	h.log.WithField("alert_id", alertID).WithField("updated", updated).Debug("Alert acknowledge requested")

	utils.SendSuccess(c, gin.H{
		"id":      alertID,
		"updated": updated,
	})
}

// ResolveAlert resolves an alert. resolvedBy comes from the body or, failing
// that, from the authenticated user.
func (h *Handlers) ResolveAlert(c *gin.Context) {
	alertID := c.Param("id")

	var request struct {
		ResolvedBy string `json:"resolvedBy"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			utils.SendError(c, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	resolvedBy := strings.TrimSpace(request.ResolvedBy)
	if resolvedBy == "" {
		resolvedBy = middleware.Username(c)
	}

	updated := h.store.Resolve(alertID, resolvedBy)
	if updated {
		h.log.WithField("alert_id", alertID).WithField("resolved_by", resolvedBy).Info("Alert resolved")
	}

	utils.SendSuccess(c, gin.H{
		"id":         alertID,
		"updated":    updated,
		"resolvedBy": resolvedBy,
	})
}

// ClearAlerts resolves every active alert
func (h *Handlers) ClearAlerts(c *gin.Context) {
	cleared := h.store.ClearAll()
	h.log.WithField("cleared", cleared).Info("All alerts cleared")

	utils.SendSuccess(c, gin.H{"cleared": cleared})
}

// AlertExport is the document written by the history export
type AlertExport struct {
	ExportedAt time.Time        `json:"exportedAt"`
	Summary    alerting.Summary `json:"summary"`
	Active     []alerting.Alert `json:"active"`
	History    []alerting.Alert `json:"history"`
}

// ExportAlertHistory streams the alert history as a JSON download, optionally
// compressed with ?compress=zstd or ?compress=gzip
func (h *Handlers) ExportAlertHistory(c *gin.Context) {
	compression := strings.ToLower(c.Query("compress"))
	ext := ""
	contentType := "application/json"
	switch compression {
	case "":
	case "zstd":
		ext, contentType = ".zst", "application/zstd"
	case "gzip":
		ext, contentType = ".gz", "application/gzip"
	default:
		utils.SendError(c, http.StatusBadRequest, fmt.Sprintf("Unsupported compression %q", compression))
		return
	}

	state := h.store.State()
	export := AlertExport{
		ExportedAt: time.Now().UTC(),
		Summary:    h.store.Summary(),
		Active:     state.ActiveAlerts,
		History:    state.AlertHistory,
	}

	filename := fmt.Sprintf("alert-history-%s.json%s", export.ExportedAt.Format("20060102-150405"), ext)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)

	if err := writeExport(c.Writer, compression, &export); err != nil {
		// headers are already sent
		h.log.WithError(err).Error("Failed to write alert history export")
		c.Error(err)
	}
}

// exportCompressors wraps the response writer for each supported ?compress value
var exportCompressors = map[string]func(io.Writer) (io.WriteCloser, error){
	"zstd": func(w io.Writer) (io.WriteCloser, error) { return zstd.NewWriter(w) },
	"gzip": func(w io.Writer) (io.WriteCloser, error) { return gzip.NewWriter(w), nil },
}

func writeExport(w io.Writer, compression string, export *AlertExport) (err error) {
	if compression != "" {
		compress, ok := exportCompressors[compression]
		if !ok {
			return fmt.Errorf("unsupported compression %q", compression)
		}
		cw, createErr := compress(w)
		if createErr != nil {
			return fmt.Errorf("failed to create %s writer: %w", compression, createErr)
		}
		// a close error is reported only when encoding succeeded
		defer func() {
			if closeErr := cw.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("failed to flush compressed export: %w", closeErr)
			}
		}()
		w = cw
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(export); err != nil {
		return fmt.Errorf("failed to encode alert export: %w", err)
	}
	return nil
}
