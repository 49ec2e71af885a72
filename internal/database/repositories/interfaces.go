package repositories

import (
	"context"
	"time"

	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/alerting"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/telemetry"
)

// AlertRuleRepository defines alert rule data access methods
type AlertRuleRepository interface {
	alerting.RuleSource
	Create(ctx context.Context, rule *alerting.AlertRule) error
	Get(ctx context.Context, id string) (*alerting.AlertRule, error)
	List(ctx context.Context) ([]alerting.AlertRule, error)
	Update(ctx context.Context, rule *alerting.AlertRule) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int, error)
}

// TelemetryRepository defines telemetry data access methods
type TelemetryRepository interface {
	telemetry.Source
	telemetry.Recorder
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
