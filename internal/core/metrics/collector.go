package metrics

import (
	"time"
)

// MetricsCollector defines the interface for collecting metrics
type MetricsCollector interface {
	RecordHTTPRequest(method, path string, status int, duration time.Duration)
	RecordWebSocketConnection(action string)
	RecordDatabaseQuery(operation string, duration time.Duration)
	RecordSystemResource(cpu, memory float64)
	RecordTelemetrySample(kind string)

	RecordAlertFired(severity, metric string)
	RecordEvaluation(duration time.Duration)
	RecordEvaluationFailure(stage string)
	RecordSkippedPass()
	SetActiveAlerts(bySeverity map[string]int)
}

// MetricsConfig contains configuration for metrics collection
type MetricsConfig struct {
	Enabled bool
	Prefix  string
}
