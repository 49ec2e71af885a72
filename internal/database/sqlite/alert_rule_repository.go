package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/alerting"
)

const alertRuleColumns = `id, name, metric, condition, threshold, severity, enabled,
			  cooldown_minutes, created_at, updated_at`

// AlertRuleRepository persists alert rules. List order is creation order,
// which is the order rules are evaluated in.
type AlertRuleRepository struct {
	db      *sqlx.DB
	log     *logrus.Logger
	queries QueryRecorder
	now     func() time.Time
}

func NewAlertRuleRepository(db *sqlx.DB, log *logrus.Logger) *AlertRuleRepository {
	return &AlertRuleRepository{
		db:      db,
		log:     log,
		queries: noopQueries{},
		now:     time.Now,
	}
}

// SetQueryRecorder times every query into recorder
func (r *AlertRuleRepository) SetQueryRecorder(recorder QueryRecorder) {
	if recorder != nil {
		r.queries = recorder
	}
}

func (r *AlertRuleRepository) Create(ctx context.Context, rule *alerting.AlertRule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	now := r.now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	query := `INSERT INTO alert_rules (` + alertRuleColumns + `)
			  VALUES (:id, :name, :metric, :condition, :threshold, :severity, :enabled,
			  :cooldown_minutes, :created_at, :updated_at)`

	err := timed(r.queries, "insert_alert_rule", func() error {
		_, err := r.db.NamedExecContext(ctx, query, rule)
		return err
	})
	if err != nil {
		r.log.WithError(err).WithField("name", rule.Name).Error("Failed to create alert rule")
		return fmt.Errorf("failed to create alert rule: %w", err)
	}

	return nil
}

func (r *AlertRuleRepository) Get(ctx context.Context, id string) (*alerting.AlertRule, error) {
	query := `SELECT ` + alertRuleColumns + ` FROM alert_rules WHERE id = ?`

	var rule alerting.AlertRule
	err := timed(r.queries, "get_alert_rule", func() error {
		return r.db.GetContext(ctx, &rule, query, id)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.log.WithError(err).WithField("id", id).Error("Failed to get alert rule")
		return nil, fmt.Errorf("failed to get alert rule: %w", err)
	}

	return &rule, nil
}

func (r *AlertRuleRepository) List(ctx context.Context) ([]alerting.AlertRule, error) {
	query := `SELECT ` + alertRuleColumns + ` FROM alert_rules ORDER BY created_at, rowid`

	rules := []alerting.AlertRule{}
	err := timed(r.queries, "list_alert_rules", func() error {
		return r.db.SelectContext(ctx, &rules, query)
	})
	if err != nil {
		r.log.WithError(err).Error("Failed to list alert rules")
		return nil, fmt.Errorf("failed to list alert rules: %w", err)
	}

	return rules, nil
}

// ListRules implements alerting.RuleSource
func (r *AlertRuleRepository) ListRules(ctx context.Context) ([]alerting.AlertRule, error) {
	return r.List(ctx)
}

// Update replaces every editable field. It returns false when id is unknown.
func (r *AlertRuleRepository) Update(ctx context.Context, rule *alerting.AlertRule) (bool, error) {
	rule.UpdatedAt = r.now().UTC()

	query := `UPDATE alert_rules SET name = :name, metric = :metric, condition = :condition,
			  threshold = :threshold, severity = :severity, enabled = :enabled,
			  cooldown_minutes = :cooldown_minutes, updated_at = :updated_at
			  WHERE id = :id`

	var result sql.Result
	err := timed(r.queries, "update_alert_rule", func() (err error) {
		result, err = r.db.NamedExecContext(ctx, query, rule)
		return err
	})
	if err != nil {
		r.log.WithError(err).WithField("id", rule.ID).Error("Failed to update alert rule")
		return false, fmt.Errorf("failed to update alert rule: %w", err)
	}

	n, _ := result.RowsAffected()
	return n > 0, nil
}

// Delete removes a rule. It returns false when id is unknown.
func (r *AlertRuleRepository) Delete(ctx context.Context, id string) (bool, error) {
	var result sql.Result
	err := timed(r.queries, "delete_alert_rule", func() (err error) {
		result, err = r.db.ExecContext(ctx, `DELETE FROM alert_rules WHERE id = ?`, id)
		return err
	})
	if err != nil {
		r.log.WithError(err).WithField("id", id).Error("Failed to delete alert rule")
		return false, fmt.Errorf("failed to delete alert rule: %w", err)
	}

	n, _ := result.RowsAffected()
	return n > 0, nil
}

func (r *AlertRuleRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := timed(r.queries, "count_alert_rules", func() error {
		return r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM alert_rules`)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count alert rules: %w", err)
	}
	return count, nil
}
