package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/alerting"
	apperrors "github.com/frostdev-ops/agent-dashboard-backend/pkg/errors"
	"github.com/frostdev-ops/agent-dashboard-backend/pkg/utils"
)

// alertRuleRequest is the body accepted by create and update
type alertRuleRequest struct {
	Name            string             `json:"name" binding:"required"`
	Metric          alerting.Metric    `json:"metric" binding:"required"`
	Condition       alerting.Condition `json:"condition" binding:"required"`
	Threshold       float64            `json:"threshold"`
	Severity        alerting.Severity  `json:"severity" binding:"required"`
	Enabled         *bool              `json:"enabled"`
	CooldownMinutes int                `json:"cooldownMinutes"`
}

func (r *alertRuleRequest) apply(rule *alerting.AlertRule) {
	rule.Name = strings.TrimSpace(r.Name)
	rule.Metric = r.Metric
	rule.Condition = r.Condition
	rule.Threshold = r.Threshold
	rule.Severity = r.Severity
	rule.Enabled = r.Enabled == nil || *r.Enabled
	rule.CooldownMinutes = r.CooldownMinutes
}

// GetAlertRules lists the configured rules in evaluation order
func (h *Handlers) GetAlertRules(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	rules, err := h.repos.AlertRules.List(ctx)
	if err != nil {
		h.log.WithError(err).Error("Failed to list alert rules")
		utils.SendError(c, http.StatusInternalServerError, "Failed to retrieve alert rules")
		return
	}

	utils.SendSuccessWithMeta(c, rules, gin.H{"count": len(rules)})
}

// GetAlertRule returns one rule
func (h *Handlers) GetAlertRule(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	ruleID := c.Param("id")
	rule, err := h.repos.AlertRules.Get(ctx, ruleID)
	if err != nil {
		h.log.WithError(err).Errorf("Failed to get alert rule: %s", ruleID)
		utils.SendError(c, http.StatusInternalServerError, "Failed to retrieve alert rule")
		return
	}
	if rule == nil {
		utils.SendAppError(c, apperrors.NotFound("alert rule", ruleID))
		return
	}

	utils.SendSuccess(c, rule)
}

// CreateAlertRule stores a new rule and lets the monitor pick it up
func (h *Handlers) CreateAlertRule(c *gin.Context) {
	var request alertRuleRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.SendAppError(c, apperrors.BadRequest(err.Error()))
		return
	}

	rule := &alerting.AlertRule{}
	request.apply(rule)
	if err := rule.Validate(); err != nil {
		utils.SendAppError(c, apperrors.BadRequest(err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.repos.AlertRules.Create(ctx, rule); err != nil {
		h.log.WithError(err).Error("Failed to create alert rule")
		utils.SendError(c, http.StatusInternalServerError, "Failed to create alert rule")
		return
	}

	h.log.WithField("rule_id", rule.ID).WithField("name", rule.Name).Info("Alert rule created")
	h.notifyRulesChanged(ctx)

	utils.SendSuccessWithStatus(c, http.StatusCreated, rule)
}

// UpdateAlertRule replaces a rule's settings
func (h *Handlers) UpdateAlertRule(c *gin.Context) {
	var request alertRuleRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.SendAppError(c, apperrors.BadRequest(err.Error()))
		return
	}

	ruleID := c.Param("id")
	rule := &alerting.AlertRule{ID: ruleID}
	request.apply(rule)
	if err := rule.Validate(); err != nil {
		utils.SendAppError(c, apperrors.BadRequest(err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	found, err := h.repos.AlertRules.Update(ctx, rule)
	if err != nil {
		h.log.WithError(err).Errorf("Failed to update alert rule: %s", ruleID)
		utils.SendError(c, http.StatusInternalServerError, "Failed to update alert rule")
		return
	}
	if !found {
		utils.SendAppError(c, apperrors.NotFound("alert rule", ruleID))
		return
	}

	h.log.WithField("rule_id", ruleID).Info("Alert rule updated")
	h.notifyRulesChanged(ctx)

	if stored, err := h.repos.AlertRules.Get(ctx, ruleID); err == nil && stored != nil {
		rule = stored
	}

	utils.SendSuccess(c, rule)
}

// DeleteAlertRule removes a rule. Alerts it already raised stay in the store.
func (h *Handlers) DeleteAlertRule(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	ruleID := c.Param("id")
	found, err := h.repos.AlertRules.Delete(ctx, ruleID)
	if err != nil {
		h.log.WithError(err).Errorf("Failed to delete alert rule: %s", ruleID)
		utils.SendError(c, http.StatusInternalServerError, "Failed to delete alert rule")
		return
	}
	if !found {
		utils.SendAppError(c, apperrors.NotFound("alert rule", ruleID))
		return
	}

	h.log.WithField("rule_id", ruleID).Info("Alert rule deleted")
	h.notifyRulesChanged(ctx)

	utils.SendSuccess(c, gin.H{"id": ruleID, "deleted": true})
}

func (h *Handlers) notifyRulesChanged(ctx context.Context) {
	if err := h.monitor.RulesChanged(ctx); err != nil {
		h.log.WithError(err).Warn("Failed to apply alert rule change to the monitor")
	}
}
