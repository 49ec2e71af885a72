package database

import (
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/agent-dashboard-backend/internal/database/repositories"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/database/sqlite"
)

// Repositories holds all repository instances
type Repositories struct {
	AlertRules repositories.AlertRuleRepository
	Telemetry  repositories.TelemetryRepository
}

// RepositoryOptions tunes the sqlite repositories
type RepositoryOptions struct {
	// TelemetryLookback bounds the telemetry returned to the alert monitor
	TelemetryLookback time.Duration

	// MetricWindow rows are returned uncapped
	MetricWindow time.Duration

	// Queries receives query latencies; nil disables timing
	Queries sqlite.QueryRecorder
}

// NewRepositories creates all repository instances
func NewRepositories(db *sqlx.DB, opts RepositoryOptions, logger *logrus.Logger) *Repositories {
	rules := sqlite.NewAlertRuleRepository(db, logger)
	rules.SetQueryRecorder(opts.Queries)

	telemetryRepo := sqlite.NewTelemetryRepository(db, opts.TelemetryLookback, logger)
	telemetryRepo.SetMetricWindow(opts.MetricWindow)
	telemetryRepo.SetQueryRecorder(opts.Queries)

	return &Repositories{
		AlertRules: rules,
		Telemetry:  telemetryRepo,
	}
}
