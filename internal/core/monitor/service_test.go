package monitor

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/telemetry"
)

type fixedUsage struct {
	cpu, memory, disk float64
	err               error
}

func (f fixedUsage) GetUsagePercentages(ctx context.Context) (float64, float64, float64, error) {
	return f.cpu, f.memory, f.disk, f.err
}

type recordedMetrics struct {
	rows []telemetry.SystemMetric
}

func (r *recordedMetrics) RecordExecutionLog(context.Context, *telemetry.ExecutionLog) error {
	return nil
}

func (r *recordedMetrics) RecordPerformanceLog(context.Context, *telemetry.PerformanceLog) error {
	return nil
}

func (r *recordedMetrics) RecordErrorLog(context.Context, *telemetry.ErrorLog) error {
	return nil
}

func (r *recordedMetrics) RecordSystemMetric(ctx context.Context, row *telemetry.SystemMetric) error {
	r.rows = append(r.rows, *row)
	return nil
}

type cutoffPurger struct {
	cutoff time.Time
}

func (p *cutoffPurger) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	p.cutoff = cutoff
	return 7, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestService_SampleSystemMetrics(t *testing.T) {
	rec := &recordedMetrics{}
	svc := NewService(nil, fixedUsage{cpu: 42.5, memory: 61}, rec, nil, nil, quietLogger())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	require.NoError(t, svc.SampleSystemMetrics(context.Background()))

	require.Len(t, rec.rows, 2)
	assert.Equal(t, MetricTypeCPU, rec.rows[0].Type)
	assert.Equal(t, 42.5, rec.rows[0].Value)
	assert.Equal(t, MetricTypeMemory, rec.rows[1].Type)
	assert.Equal(t, 61.0, rec.rows[1].Value)
	assert.Equal(t, now, rec.rows[1].Timestamp)
}

func TestService_SampleFailure(t *testing.T) {
	rec := &recordedMetrics{}
	svc := NewService(nil, fixedUsage{err: errors.New("no /proc")}, rec, nil, nil, quietLogger())

	assert.Error(t, svc.SampleSystemMetrics(context.Background()))
	assert.Empty(t, rec.rows)
}

func TestService_PurgeTelemetry(t *testing.T) {
	purger := &cutoffPurger{}
	svc := NewService(nil, fixedUsage{}, &recordedMetrics{}, purger, nil, quietLogger())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	deleted, err := svc.PurgeTelemetry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), deleted)
	assert.Equal(t, now.Add(-24*time.Hour), purger.cutoff)
}

func TestService_SystemResourceHealth(t *testing.T) {
	tests := []struct {
		name     string
		usage    fixedUsage
		expected string
	}{
		{"normal", fixedUsage{cpu: 20, memory: 40}, "healthy"},
		{"pressure", fixedUsage{cpu: 90, memory: 40}, "degraded"},
		{"critical", fixedUsage{cpu: 20, memory: 99}, "unhealthy"},
		{"unreadable", fixedUsage{err: errors.New("denied")}, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(nil, tt.usage, &recordedMetrics{}, nil, nil, quietLogger())
			assert.Equal(t, tt.expected, svc.SystemResourceHealth().Status)
		})
	}
}

func TestService_StartStop(t *testing.T) {
	svc := NewService(nil, fixedUsage{}, &recordedMetrics{}, &cutoffPurger{}, nil, quietLogger())

	require.NoError(t, svc.Start())
	assert.True(t, svc.IsRunning())
	assert.Error(t, svc.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, svc.Stop(ctx))
	assert.False(t, svc.IsRunning())
}

func TestService_InvalidRetentionSchedule(t *testing.T) {
	cfg := DefaultServiceConfig()
	cfg.RetentionSchedule = "every now and then"
	svc := NewService(cfg, fixedUsage{}, &recordedMetrics{}, &cutoffPurger{}, nil, quietLogger())

	assert.Error(t, svc.Start())
	assert.False(t, svc.IsRunning())
}
