package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/metrics"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/telemetry"
)

// System metric types written by the sampler
const (
	MetricTypeCPU    = "cpu_usage"
	MetricTypeMemory = "memory_usage"
)

// Purger deletes telemetry rows older than a cutoff
type Purger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ServiceConfig contains configuration for the background monitoring jobs
type ServiceConfig struct {
	SamplerEnabled    bool
	SamplerInterval   time.Duration
	RetentionEnabled  bool
	RetentionSchedule string
	RetentionMaxAge   time.Duration

	// Resource health thresholds, in percent
	DegradedCPU     float64
	DegradedMemory  float64
	UnhealthyCPU    float64
	UnhealthyMemory float64
}

// DefaultServiceConfig returns the configuration used when none is given
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		SamplerEnabled:    true,
		SamplerInterval:   30 * time.Second,
		RetentionEnabled:  true,
		RetentionSchedule: "@hourly",
		RetentionMaxAge:   24 * time.Hour,
		DegradedCPU:       85,
		DegradedMemory:    90,
		UnhealthyCPU:      95,
		UnhealthyMemory:   98,
	}
}

// Service runs the system sampler and telemetry retention on a cron schedule
type Service struct {
	config    *ServiceConfig
	logger    *logrus.Logger
	resources UsageReader
	recorder  telemetry.Recorder
	purger    Purger
	collector metrics.MetricsCollector
	now       func() time.Time

	cron    *cron.Cron
	running bool
	mu      sync.Mutex
}

// NewService creates the background job service. collector may be nil.
func NewService(cfg *ServiceConfig, resources UsageReader, recorder telemetry.Recorder, purger Purger, collector metrics.MetricsCollector, logger *logrus.Logger) *Service {
	if cfg == nil {
		cfg = DefaultServiceConfig()
	}

	return &Service{
		config:    cfg,
		logger:    logger,
		resources: resources,
		recorder:  recorder,
		purger:    purger,
		collector: collector,
		now:       time.Now,
	}
}

// Start schedules the enabled jobs
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("monitoring service is already running")
	}

	cronLogger := cron.PrintfLogger(s.logger)
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(
			cron.SkipIfStillRunning(cronLogger),
			cron.Recover(cronLogger),
		),
	)

	if s.config.SamplerEnabled {
		schedule := fmt.Sprintf("@every %s", s.config.SamplerInterval)
		if _, err := c.AddFunc(schedule, s.sampleJob); err != nil {
			return fmt.Errorf("failed to schedule system sampler: %w", err)
		}
	}

	if s.config.RetentionEnabled && s.purger != nil {
		if _, err := c.AddFunc(s.config.RetentionSchedule, s.retentionJob); err != nil {
			return fmt.Errorf("failed to schedule telemetry retention: %w", err)
		}
	}

	c.Start()
	s.cron = c
	s.running = true

	s.logger.WithFields(logrus.Fields{
		"sampler":   s.config.SamplerEnabled,
		"interval":  s.config.SamplerInterval.String(),
		"retention": s.config.RetentionEnabled,
		"schedule":  s.config.RetentionSchedule,
	}).Info("Monitoring service started")

	return nil
}

// Stop removes all jobs and waits for running ones until ctx is done
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Monitoring service stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for monitoring jobs: %w", ctx.Err())
	}
}

func (s *Service) sampleJob() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.SampleSystemMetrics(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to sample system metrics")
	}
}

func (s *Service) retentionJob() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := s.PurgeTelemetry(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to purge telemetry")
	}
}

// SampleSystemMetrics records one cpu_usage and one memory_usage row
func (s *Service) SampleSystemMetrics(ctx context.Context) error {
	cpuPct, memPct, _, err := s.resources.GetUsagePercentages(ctx)
	if err != nil {
		return fmt.Errorf("failed to read resource usage: %w", err)
	}

	now := s.now()
	rows := []telemetry.SystemMetric{
		{Type: MetricTypeCPU, Value: cpuPct, Timestamp: now},
		{Type: MetricTypeMemory, Value: memPct, Timestamp: now},
	}
	for i := range rows {
		if err := s.recorder.RecordSystemMetric(ctx, &rows[i]); err != nil {
			return fmt.Errorf("failed to record %s: %w", rows[i].Type, err)
		}
	}

	if s.collector != nil {
		s.collector.RecordSystemResource(cpuPct, memPct)
	}

	s.logger.WithFields(logrus.Fields{
		"cpu_usage":    cpuPct,
		"memory_usage": memPct,
	}).Debug("System metrics sampled")

	return nil
}

// PurgeTelemetry deletes telemetry older than the retention max age
func (s *Service) PurgeTelemetry(ctx context.Context) (int64, error) {
	if s.purger == nil {
		return 0, nil
	}

	cutoff := s.now().Add(-s.config.RetentionMaxAge)
	deleted, err := s.purger.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge telemetry older than %s: %w", cutoff.Format(time.RFC3339), err)
	}

	if deleted > 0 {
		s.logger.WithFields(logrus.Fields{
			"deleted": deleted,
			"cutoff":  cutoff,
		}).Info("Purged old telemetry")
	}

	return deleted, nil
}

// SystemResourceHealth grades the current CPU and memory usage
func (s *Service) SystemResourceHealth() metrics.HealthStatus {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cpuPct, memPct, diskPct, err := s.resources.GetUsagePercentages(ctx)
	if err != nil {
		return metrics.NewHealthStatus("unhealthy", "Failed to get system resource usage").
			WithDetail("error", err.Error())
	}

	status := "healthy"
	message := "System resources are within normal limits"

	if cpuPct > s.config.DegradedCPU || memPct > s.config.DegradedMemory {
		status = "degraded"
		message = "System resources are under pressure"
	}

	if cpuPct > s.config.UnhealthyCPU || memPct > s.config.UnhealthyMemory {
		status = "unhealthy"
		message = "System resources are critically low"
	}

	return metrics.NewHealthStatus(status, message).
		WithDetails(map[string]interface{}{
			"cpu_usage":    cpuPct,
			"memory_usage": memPct,
			"disk_usage":   diskPct,
		})
}

// IsRunning reports whether jobs are scheduled
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
