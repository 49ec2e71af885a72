package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/alerting"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/telemetry"
)

// DefaultRecentLimit caps the rows returned from before the metric window.
// Rows inside the window are never capped.
const DefaultRecentLimit = 1000

// TelemetryRepository stores agent telemetry and serves the recent rows the
// alert monitor evaluates.
type TelemetryRepository struct {
	db       *sqlx.DB
	log      *logrus.Logger
	queries  QueryRecorder
	lookback time.Duration
	window   time.Duration
	limit    int
	now      func() time.Time
}

func NewTelemetryRepository(db *sqlx.DB, lookback time.Duration, log *logrus.Logger) *TelemetryRepository {
	return &TelemetryRepository{
		db:       db,
		log:      log,
		queries:  noopQueries{},
		lookback: lookback,
		window:   alerting.DefaultMetricWindow,
		limit:    DefaultRecentLimit,
		now:      time.Now,
	}
}

// SetMetricWindow sets the trailing window whose rows are always returned in full
func (r *TelemetryRepository) SetMetricWindow(window time.Duration) {
	if window > 0 {
		r.window = window
	}
}

// SetQueryRecorder times every query into recorder
func (r *TelemetryRepository) SetQueryRecorder(recorder QueryRecorder) {
	if recorder != nil {
		r.queries = recorder
	}
}

// bounds returns the lookback horizon and the start of the metric window,
// clamped so the window never reaches past the horizon.
func (r *TelemetryRepository) bounds() (since, windowStart time.Time) {
	now := r.now().UTC()
	since = now.Add(-r.lookback)
	windowStart = now.Add(-r.window)
	if windowStart.Before(since) {
		windowStart = since
	}
	return since, windowStart
}

// recentQuery selects every row inside the metric window plus the newest
// limit rows between the lookback horizon and the window.
func recentQuery(columns, table string) string {
	return `SELECT ` + columns + ` FROM ` + table + ` WHERE created_at >= ?
			  UNION ALL
			  SELECT * FROM (SELECT ` + columns + ` FROM ` + table + `
			  WHERE created_at >= ? AND created_at < ? ORDER BY created_at DESC, id DESC LIMIT ?)
			  ORDER BY created_at DESC, id DESC`
}

func (r *TelemetryRepository) selectRecent(ctx context.Context, dest interface{}, operation, columns, table string) error {
	since, windowStart := r.bounds()
	return timed(r.queries, operation, func() error {
		return r.db.SelectContext(ctx, dest, recentQuery(columns, table), windowStart, since, windowStart, r.limit)
	})
}

func (r *TelemetryRepository) exec(ctx context.Context, operation, query string, args ...interface{}) (result sql.Result, err error) {
	err = timed(r.queries, operation, func() error {
		result, err = r.db.ExecContext(ctx, query, args...)
		return err
	})
	return result, err
}

func stamp(t time.Time, now func() time.Time) time.Time {
	if t.IsZero() {
		return now().UTC()
	}
	return t.UTC()
}

// Recent rows, newest first

func (r *TelemetryRepository) RecentPerformanceLogs(ctx context.Context) ([]telemetry.PerformanceLog, error) {
	rows := []telemetry.PerformanceLog{}
	if err := r.selectRecent(ctx, &rows, "select_performance_logs", `id, operation, duration_ms, created_at`, "performance_logs"); err != nil {
		r.log.WithError(err).Error("Failed to get performance logs")
		return nil, fmt.Errorf("failed to get performance logs: %w", err)
	}

	return rows, nil
}

func (r *TelemetryRepository) RecentSystemMetrics(ctx context.Context) ([]telemetry.SystemMetric, error) {
	rows := []telemetry.SystemMetric{}
	if err := r.selectRecent(ctx, &rows, "select_system_metrics", `id, metric_type, value, created_at`, "system_metrics"); err != nil {
		r.log.WithError(err).Error("Failed to get system metrics")
		return nil, fmt.Errorf("failed to get system metrics: %w", err)
	}

	return rows, nil
}

func (r *TelemetryRepository) RecentExecutionLogs(ctx context.Context) ([]telemetry.ExecutionLog, error) {
	rows := []telemetry.ExecutionLog{}
	if err := r.selectRecent(ctx, &rows, "select_execution_logs", `id, task_id, status, message, created_at`, "execution_logs"); err != nil {
		r.log.WithError(err).Error("Failed to get execution logs")
		return nil, fmt.Errorf("failed to get execution logs: %w", err)
	}

	return rows, nil
}

func (r *TelemetryRepository) RecentErrorLogs(ctx context.Context) ([]telemetry.ErrorLog, error) {
	rows := []telemetry.ErrorLog{}
	if err := r.selectRecent(ctx, &rows, "select_error_logs", `id, severity, message, created_at`, "error_logs"); err != nil {
		r.log.WithError(err).Error("Failed to get error logs")
		return nil, fmt.Errorf("failed to get error logs: %w", err)
	}

	return rows, nil
}

// Ingestion

func (r *TelemetryRepository) RecordExecutionLog(ctx context.Context, row *telemetry.ExecutionLog) error {
	row.Timestamp = stamp(row.Timestamp, r.now)
	query := `INSERT INTO execution_logs (task_id, status, message, created_at) VALUES (?, ?, ?, ?)`

	result, err := r.exec(ctx, "insert_execution_logs", query, row.TaskID, row.Status, row.Message, row.Timestamp)
	if err != nil {
		r.log.WithError(err).WithField("task_id", row.TaskID).Error("Failed to record execution log")
		return fmt.Errorf("failed to record execution log: %w", err)
	}

	row.ID, _ = result.LastInsertId()
	return nil
}

func (r *TelemetryRepository) RecordPerformanceLog(ctx context.Context, row *telemetry.PerformanceLog) error {
	row.Timestamp = stamp(row.Timestamp, r.now)
	query := `INSERT INTO performance_logs (operation, duration_ms, created_at) VALUES (?, ?, ?)`

	result, err := r.exec(ctx, "insert_performance_logs", query, row.Operation, row.Duration, row.Timestamp)
	if err != nil {
		r.log.WithError(err).WithField("operation", row.Operation).Error("Failed to record performance log")
		return fmt.Errorf("failed to record performance log: %w", err)
	}

	row.ID, _ = result.LastInsertId()
	return nil
}

func (r *TelemetryRepository) RecordErrorLog(ctx context.Context, row *telemetry.ErrorLog) error {
	row.Timestamp = stamp(row.Timestamp, r.now)
	query := `INSERT INTO error_logs (severity, message, created_at) VALUES (?, ?, ?)`

	result, err := r.exec(ctx, "insert_error_logs", query, row.Severity, row.Message, row.Timestamp)
	if err != nil {
		r.log.WithError(err).Error("Failed to record error log")
		return fmt.Errorf("failed to record error log: %w", err)
	}

	row.ID, _ = result.LastInsertId()
	return nil
}

func (r *TelemetryRepository) RecordSystemMetric(ctx context.Context, row *telemetry.SystemMetric) error {
	row.Timestamp = stamp(row.Timestamp, r.now)
	query := `INSERT INTO system_metrics (metric_type, value, created_at) VALUES (?, ?, ?)`

	result, err := r.exec(ctx, "insert_system_metrics", query, row.Type, row.Value, row.Timestamp)
	if err != nil {
		r.log.WithError(err).WithField("metric_type", row.Type).Error("Failed to record system metric")
		return fmt.Errorf("failed to record system metric: %w", err)
	}

	row.ID, _ = result.LastInsertId()
	return nil
}

// PurgeOlderThan deletes telemetry rows created before cutoff from every table
func (r *TelemetryRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tables := []string{"execution_logs", "performance_logs", "error_logs", "system_metrics"}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin purge transaction: %w", err)
	}
	defer tx.Rollback()

	start := time.Now()
	defer func() { r.queries.RecordDatabaseQuery("purge_telemetry", time.Since(start)) }()

	var total int64
	for _, table := range tables {
		result, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE created_at < ?", cutoff.UTC())
		if err != nil {
			r.log.WithError(err).WithField("table", table).Error("Failed to purge telemetry")
			return 0, fmt.Errorf("failed to purge %s: %w", table, err)
		}
		n, _ := result.RowsAffected()
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit purge: %w", err)
	}

	return total, nil
}
