package sqlite

import "time"

// QueryRecorder receives the latency of each repository query.
// metrics.MetricsCollector satisfies it.
type QueryRecorder interface {
	RecordDatabaseQuery(operation string, duration time.Duration)
}

type noopQueries struct{}

func (noopQueries) RecordDatabaseQuery(string, time.Duration) {}

// timed runs fn and reports its duration under operation
func timed(recorder QueryRecorder, operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	recorder.RecordDatabaseQuery(operation, time.Since(start))
	return err
}
