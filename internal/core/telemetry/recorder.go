package telemetry

import "context"

// Row kinds reported by CountingRecorder
const (
	KindExecutionLog   = "execution_log"
	KindPerformanceLog = "performance_log"
	KindErrorLog       = "error_log"
	KindSystemMetric   = "system_metric"
)

// CountingRecorder wraps a Recorder and calls OnRecord after each stored row
type CountingRecorder struct {
	Recorder
	OnRecord func(kind string)
}

// NewCountingRecorder wraps next; a nil onRecord makes it a pass-through
func NewCountingRecorder(next Recorder, onRecord func(kind string)) *CountingRecorder {
	return &CountingRecorder{Recorder: next, OnRecord: onRecord}
}

func (c *CountingRecorder) RecordExecutionLog(ctx context.Context, row *ExecutionLog) error {
	return c.count(KindExecutionLog, c.Recorder.RecordExecutionLog(ctx, row))
}

func (c *CountingRecorder) RecordPerformanceLog(ctx context.Context, row *PerformanceLog) error {
	return c.count(KindPerformanceLog, c.Recorder.RecordPerformanceLog(ctx, row))
}

func (c *CountingRecorder) RecordErrorLog(ctx context.Context, row *ErrorLog) error {
	return c.count(KindErrorLog, c.Recorder.RecordErrorLog(ctx, row))
}

func (c *CountingRecorder) RecordSystemMetric(ctx context.Context, row *SystemMetric) error {
	return c.count(KindSystemMetric, c.Recorder.RecordSystemMetric(ctx, row))
}

func (c *CountingRecorder) count(kind string, err error) error {
	if err == nil && c.OnRecord != nil {
		c.OnRecord(kind)
	}
	return err
}
