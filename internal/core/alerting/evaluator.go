package alerting

import (
	"math"
	"time"

	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/telemetry"
)

const (
	// DefaultMetricWindow is the trailing window metric values are computed over
	DefaultMetricWindow = 5 * time.Minute

	// executionsPerSession is the divisor of the active_sessions heuristic
	executionsPerSession = 10
)

// MetricEvaluator maps a metric and a telemetry snapshot to one current value
type MetricEvaluator struct {
	Window time.Duration

	// ComputeErrorRate switches error_rate from the constant 0 to
	// errors / executions * 100 inside the window.
	ComputeErrorRate bool
}

// NewMetricEvaluator creates an evaluator with the default window
func NewMetricEvaluator() *MetricEvaluator {
	return &MetricEvaluator{Window: DefaultMetricWindow}
}

// Evaluate computes the current value of metric at now. Unknown metrics yield 0.
func (e *MetricEvaluator) Evaluate(metric Metric, snap *telemetry.Snapshot, now time.Time) float64 {
	if snap == nil {
		return 0
	}

	window := e.Window
	if window <= 0 {
		window = DefaultMetricWindow
	}
	cutoff := now.Add(-window)

	switch metric {
	case MetricResponseTime:
		var sum float64
		var n int
		for _, row := range snap.PerformanceLogs {
			if inWindow(row.Timestamp, cutoff) {
				sum += row.Duration
				n++
			}
		}
		if n == 0 {
			return 0
		}
		return sum / float64(n)

	case MetricErrorRate:
		if !e.ComputeErrorRate {
			return 0
		}
		executions := countExecutions(snap.ExecutionLogs, cutoff)
		if executions == 0 {
			return 0
		}
		var errs int
		for _, row := range snap.ErrorLogs {
			if inWindow(row.Timestamp, cutoff) {
				errs++
			}
		}
		return float64(errs) / float64(executions) * 100

	case MetricMemoryUsage, MetricCPUUsage:
		return latestSystemMetric(snap.SystemMetrics, string(metric), cutoff)

	case MetricLogVolume:
		return float64(countExecutions(snap.ExecutionLogs, cutoff))

	case MetricActiveSessions:
		executions := countExecutions(snap.ExecutionLogs, cutoff)
		if executions == 0 {
			return 0
		}
		return math.Max(1, math.Floor(float64(executions)/executionsPerSession))
	}

	return 0
}

func inWindow(ts, cutoff time.Time) bool {
	return !ts.Before(cutoff)
}

func countExecutions(rows []telemetry.ExecutionLog, cutoff time.Time) int {
	n := 0
	for _, row := range rows {
		if inWindow(row.Timestamp, cutoff) {
			n++
		}
	}
	return n
}

// latestSystemMetric picks the newest row of the given type regardless of input order
func latestSystemMetric(rows []telemetry.SystemMetric, metricType string, cutoff time.Time) float64 {
	var latest *telemetry.SystemMetric
	for i := range rows {
		row := &rows[i]
		if row.Type != metricType || !inWindow(row.Timestamp, cutoff) {
			continue
		}
		if latest == nil || row.Timestamp.After(latest.Timestamp) {
			latest = row
		}
	}
	if latest == nil {
		return 0
	}
	return latest.Value
}
