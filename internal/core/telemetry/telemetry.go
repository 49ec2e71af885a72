package telemetry

import (
	"context"
	"fmt"
	"time"
)

// ExecutionLog is one agent task execution record
type ExecutionLog struct {
	ID        int64     `json:"id" db:"id"`
	TaskID    string    `json:"task_id" db:"task_id"`
	Status    string    `json:"status" db:"status"`
	Message   string    `json:"message" db:"message"`
	Timestamp time.Time `json:"timestamp" db:"created_at"`
}

// PerformanceLog records how long an operation took, in milliseconds
type PerformanceLog struct {
	ID        int64     `json:"id" db:"id"`
	Operation string    `json:"operation" db:"operation"`
	Duration  float64   `json:"duration" db:"duration_ms"`
	Timestamp time.Time `json:"timestamp" db:"created_at"`
}

// ErrorLog is one reported error
type ErrorLog struct {
	ID        int64     `json:"id" db:"id"`
	Severity  string    `json:"severity" db:"severity"`
	Message   string    `json:"message" db:"message"`
	Timestamp time.Time `json:"timestamp" db:"created_at"`
}

// SystemMetric is a numeric system sample such as cpu_usage or memory_usage
type SystemMetric struct {
	ID        int64     `json:"id" db:"id"`
	Type      string    `json:"type" db:"metric_type"`
	Value     float64   `json:"value" db:"value"`
	Timestamp time.Time `json:"timestamp" db:"created_at"`
}

// Source provides read access to recent telemetry rows
type Source interface {
	RecentPerformanceLogs(ctx context.Context) ([]PerformanceLog, error)
	RecentSystemMetrics(ctx context.Context) ([]SystemMetric, error)
	RecentExecutionLogs(ctx context.Context) ([]ExecutionLog, error)
	RecentErrorLogs(ctx context.Context) ([]ErrorLog, error)
}

// Recorder persists telemetry rows
type Recorder interface {
	RecordExecutionLog(ctx context.Context, row *ExecutionLog) error
	RecordPerformanceLog(ctx context.Context, row *PerformanceLog) error
	RecordErrorLog(ctx context.Context, row *ErrorLog) error
	RecordSystemMetric(ctx context.Context, row *SystemMetric) error
}

// Snapshot is the telemetry fetched for one evaluation pass
type Snapshot struct {
	PerformanceLogs []PerformanceLog
	SystemMetrics   []SystemMetric
	ExecutionLogs   []ExecutionLog
	ErrorLogs       []ErrorLog
}

// Collect fetches every accessor once. The first failing accessor fails the
// whole snapshot.
func Collect(ctx context.Context, src Source) (*Snapshot, error) {
	perf, err := src.RecentPerformanceLogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch performance logs: %w", err)
	}

	metrics, err := src.RecentSystemMetrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch system metrics: %w", err)
	}

	executions, err := src.RecentExecutionLogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch execution logs: %w", err)
	}

	errs, err := src.RecentErrorLogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch error logs: %w", err)
	}

	return &Snapshot{
		PerformanceLogs: perf,
		SystemMetrics:   metrics,
		ExecutionLogs:   executions,
		ErrorLogs:       errs,
	}, nil
}
