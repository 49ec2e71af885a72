package alerting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/telemetry"
)

// DefaultCheckInterval is the spacing between scheduled evaluation passes
const DefaultCheckInterval = 30 * time.Second

// ErrPassInFlight is returned by a manual check while another pass is running
var ErrPassInFlight = errors.New("alert evaluation pass already in progress")

// Failure stages reported to the metrics recorder
const (
	StageRules     = "rules"
	StageTelemetry = "telemetry"
	StageRule      = "rule"
)

// MetricsRecorder receives evaluation statistics
type MetricsRecorder interface {
	RecordAlertFired(severity, metric string)
	RecordEvaluation(duration time.Duration)
	RecordEvaluationFailure(stage string)
	RecordSkippedPass()
}

type noopRecorder struct{}

func (noopRecorder) RecordAlertFired(string, string) {}
func (noopRecorder) RecordEvaluation(time.Duration)   {}
func (noopRecorder) RecordEvaluationFailure(string)   {}
func (noopRecorder) RecordSkippedPass()               {}

// Evaluator computes the current value of a metric from one telemetry snapshot
type Evaluator interface {
	Evaluate(metric Metric, snap *telemetry.Snapshot, now time.Time) float64
}

// MonitorConfig contains the optional collaborators of a Monitor
type MonitorConfig struct {
	Interval  time.Duration
	Clock     Clock
	Evaluator Evaluator
	Cooldowns *CooldownTracker
	Metrics   MetricsRecorder
	Tracer    trace.Tracer
}

// MonitorStatus is the scheduling state exposed to the API
type MonitorStatus struct {
	IsMonitoring  bool       `json:"isMonitoring"`
	Interval      string     `json:"interval"`
	LastCheckTime *time.Time `json:"lastCheckTime"`
	LastError     string     `json:"lastError,omitempty"`
	NextCheckTime *time.Time `json:"nextCheckTime,omitempty"`
	ActiveAlerts  int        `json:"activeAlerts"`
}

// Monitor evaluates alert rules against telemetry and schedules repeated passes
type Monitor struct {
	store     *Store
	rules     RuleSource
	source    telemetry.Source
	evaluator Evaluator
	cooldowns *CooldownTracker
	metrics   MetricsRecorder
	tracer    trace.Tracer
	now       Clock
	interval  time.Duration
	logger    *logrus.Logger

	// passMu is held for the duration of one evaluation pass
	passMu sync.Mutex

	mu            sync.Mutex
	cron          *cron.Cron
	entryID       cron.EntryID
	stoppedByUser bool
}

// NewMonitor creates a monitor writing into store. cfg may be nil.
func NewMonitor(store *Store, rules RuleSource, source telemetry.Source, cfg *MonitorConfig, logger *logrus.Logger) *Monitor {
	if cfg == nil {
		cfg = &MonitorConfig{}
	}
	if logger == nil {
		logger = logrus.New()
	}

	m := &Monitor{
		store:     store,
		rules:     rules,
		source:    source,
		evaluator: cfg.Evaluator,
		cooldowns: cfg.Cooldowns,
		metrics:   cfg.Metrics,
		tracer:    cfg.Tracer,
		now:       cfg.Clock,
		interval:  cfg.Interval,
		logger:    logger,
	}

	if m.now == nil {
		m.now = time.Now
	}
	if m.interval <= 0 {
		m.interval = DefaultCheckInterval
	}
	if m.evaluator == nil {
		m.evaluator = NewMetricEvaluator()
	}
	if m.cooldowns == nil {
		m.cooldowns = NewCooldownTracker(m.now)
	}
	if m.metrics == nil {
		m.metrics = noopRecorder{}
	}
	if m.tracer == nil {
		m.tracer = otel.Tracer("agent-dashboard/alerting")
	}

	return m
}

// Store returns the alert store the monitor writes into
func (m *Monitor) Store() *Store {
	return m.store
}

// Cooldowns returns the monitor's cooldown tracker
func (m *Monitor) Cooldowns() *CooldownTracker {
	return m.cooldowns
}

// CheckAlertRules runs one evaluation pass. It returns ErrPassInFlight when a
// pass is already running and the fetch error when the pass was aborted.
func (m *Monitor) CheckAlertRules(ctx context.Context) error {
	if !m.passMu.TryLock() {
		m.metrics.RecordSkippedPass()
		m.logger.Debug("Skipping alert evaluation, previous pass still running")
		return ErrPassInFlight
	}
	defer m.passMu.Unlock()

	return m.runPass(ctx)
}

func (m *Monitor) runPass(ctx context.Context) error {
	if !m.store.IsMonitoring() {
		return nil
	}

	start := time.Now()
	ctx, span := m.tracer.Start(ctx, "alerting.check")
	defer span.End()

	rules, err := m.rules.ListRules(ctx)
	if err != nil {
		return m.abortPass(span, StageRules, fmt.Errorf("failed to fetch alert rules: %w", err))
	}
	span.SetAttributes(attribute.Int("rules.count", len(rules)))
	if len(rules) == 0 {
		return nil
	}

	snap, err := telemetry.Collect(ctx, m.source)
	if err != nil {
		return m.abortPass(span, StageTelemetry, err)
	}

	now := m.now()
	var fired []Alert
	var ruleErr error

	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		if m.cooldowns.IsInCooldown(rule.ID, rule.CooldownMinutes) {
			m.logger.WithField("rule_id", rule.ID).Debug("Alert rule in cooldown")
			continue
		}

		alert, err := m.evaluateRule(rule, snap, now)
		if err != nil {
			ruleErr = err
			m.metrics.RecordEvaluationFailure(StageRule)
			m.logger.WithError(err).WithField("rule_id", rule.ID).Warn("Failed to evaluate alert rule")
			continue
		}
		if alert == nil {
			continue
		}

		m.cooldowns.RecordFiring(rule.ID, now)
		m.metrics.RecordAlertFired(string(alert.Severity), string(alert.Metric))
		m.logger.WithFields(logrus.Fields{
			"alert_id":      alert.ID,
			"rule_id":       rule.ID,
			"severity":      alert.Severity,
			"current_value": alert.CurrentValue,
			"threshold":     alert.Threshold,
		}).Warn(alert.Message)
		fired = append(fired, *alert)
	}

	if len(fired) > 0 {
		m.store.Append(fired, now)
	} else {
		m.store.MarkChecked(now)
	}

	if ruleErr != nil {
		m.store.SetLastError(ruleErr.Error())
		span.RecordError(ruleErr)
	} else {
		m.store.SetLastError("")
	}

	span.SetAttributes(attribute.Int("alerts.fired", len(fired)))
	m.metrics.RecordEvaluation(time.Since(start))
	m.logger.WithFields(logrus.Fields{
		"rules":  len(rules),
		"fired":  len(fired),
		"active": len(m.store.ActiveAlerts()),
	}).Debug("Alert evaluation pass completed")

	return nil
}

func (m *Monitor) abortPass(span trace.Span, stage string, err error) error {
	m.store.SetLastError(err.Error())
	m.metrics.RecordEvaluationFailure(stage)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	m.logger.WithError(err).WithField("stage", stage).Warn("Alert evaluation pass aborted")
	return err
}

// evaluateRule returns the alert a rule produces now, or nil when its
// condition is not met. A panic is turned into an error for this rule only.
func (m *Monitor) evaluateRule(rule AlertRule, snap *telemetry.Snapshot, now time.Time) (alert *Alert, err error) {
	defer func() {
		if r := recover(); r != nil {
			alert = nil
			err = fmt.Errorf("panic evaluating rule %s: %v", rule.ID, r)
		}
	}()

	value := m.evaluator.Evaluate(rule.Metric, snap, now)
	if !CheckCondition(rule.Condition, value, rule.Threshold) {
		return nil, nil
	}

	a := newAlert(rule, value, now)
	return &a, nil
}

func newAlert(rule AlertRule, value float64, now time.Time) Alert {
	return Alert{
		ID:           fmt.Sprintf("alert_%d_%s", now.UnixMilli(), uuid.New().String()[:8]),
		RuleID:       rule.ID,
		RuleName:     rule.Name,
		Metric:       rule.Metric,
		CurrentValue: value,
		Threshold:    rule.Threshold,
		Condition:    rule.Condition,
		Severity:     rule.Severity,
		Message:      FormatMessage(rule, value),
		Timestamp:    now,
		Metadata: AlertMetadata{
			CheckTime:      now,
			MetricValue:    value,
			ThresholdValue: rule.Threshold,
		},
	}
}

// Start enables monitoring, runs one pass immediately and schedules the rest
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	m.stoppedByUser = false
	if m.cron != nil {
		m.mu.Unlock()
		return nil
	}

	cronLogger := cron.PrintfLogger(m.logger)
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(
			cron.SkipIfStillRunning(cronLogger),
			cron.Recover(cronLogger),
		),
	)
	entryID, err := c.AddFunc(fmt.Sprintf("@every %s", m.interval), m.scheduledPass)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("failed to schedule alert evaluation: %w", err)
	}
	m.cron = c
	m.entryID = entryID
	c.Start()
	m.mu.Unlock()

	m.store.SetMonitoring(true)

	m.logger.WithField("interval", m.interval.String()).Info("Alert monitoring started")

	if err := m.CheckAlertRules(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, ErrPassInFlight) {
		m.logger.WithError(err).Warn("Initial alert evaluation failed")
	}
	return nil
}

func (m *Monitor) scheduledPass() {
	if err := m.CheckAlertRules(context.Background()); err != nil && !errors.Is(err, ErrPassInFlight) {
		m.logger.WithError(err).Debug("Scheduled alert evaluation failed")
	}
}

// Stop disables monitoring. A pass already running is allowed to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	m.stoppedByUser = true
	c := m.cron
	m.cron = nil
	m.mu.Unlock()

	m.store.SetMonitoring(false)
	if c != nil {
		c.Stop()
		m.logger.Info("Alert monitoring stopped")
	}
}

// Shutdown stops scheduling and waits for a running pass until ctx is done
func (m *Monitor) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	c := m.cron
	m.cron = nil
	m.mu.Unlock()

	m.store.SetMonitoring(false)
	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for alert evaluation to finish: %w", ctx.Err())
	}
}

// RulesChanged starts monitoring once rules exist, unless an operator
// stopped it explicitly.
func (m *Monitor) RulesChanged(ctx context.Context) error {
	m.mu.Lock()
	running := m.cron != nil
	stopped := m.stoppedByUser
	m.mu.Unlock()

	if running || stopped {
		return nil
	}

	rules, err := m.rules.ListRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch alert rules: %w", err)
	}
	if len(rules) == 0 {
		return nil
	}

	m.logger.WithField("rules", len(rules)).Info("Alert rules available, enabling monitoring")
	return m.Start(ctx)
}

// IsRunning reports whether passes are scheduled
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cron != nil
}

// Status returns the current scheduling state
func (m *Monitor) Status() MonitorStatus {
	summary := m.store.Summary()
	status := MonitorStatus{
		IsMonitoring:  summary.IsMonitoring,
		Interval:      m.interval.String(),
		LastCheckTime: summary.LastCheckTime,
		LastError:     summary.LastError,
		ActiveAlerts:  summary.TotalActive,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cron != nil {
		if next := m.cron.Entry(m.entryID).Next; !next.IsZero() {
			status.NextCheckTime = &next
		}
	}
	return status
}
