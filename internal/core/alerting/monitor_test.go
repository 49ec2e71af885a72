package alerting

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/telemetry"
)

type fakeRules struct {
	mu    sync.Mutex
	rules []AlertRule
	err   error
}

func (f *fakeRules) ListRules(ctx context.Context) ([]AlertRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]AlertRule(nil), f.rules...), nil
}

func (f *fakeRules) set(rules ...AlertRule) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = rules
}

// fakeTelemetry serves performance logs stamped relative to the clock
type fakeTelemetry struct {
	clock     *fakeClock
	mu        sync.Mutex
	durations []float64
	err       error
}

func (f *fakeTelemetry) setDurations(d ...float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.durations = d
}

func (f *fakeTelemetry) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeTelemetry) RecentPerformanceLogs(ctx context.Context) ([]telemetry.PerformanceLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	rows := make([]telemetry.PerformanceLog, 0, len(f.durations))
	for _, d := range f.durations {
		rows = append(rows, telemetry.PerformanceLog{Operation: "chat", Duration: d, Timestamp: f.clock.Now().Add(-time.Minute)})
	}
	return rows, nil
}

func (f *fakeTelemetry) RecentSystemMetrics(ctx context.Context) ([]telemetry.SystemMetric, error) {
	return nil, nil
}

func (f *fakeTelemetry) RecentExecutionLogs(ctx context.Context) ([]telemetry.ExecutionLog, error) {
	return nil, nil
}

func (f *fakeTelemetry) RecentErrorLogs(ctx context.Context) ([]telemetry.ErrorLog, error) {
	return nil, nil
}

type countingRecorder struct {
	mu       sync.Mutex
	fired    int
	failures map[string]int
	skipped  int
	passes   int
}

func (r *countingRecorder) RecordAlertFired(string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired++
}

func (r *countingRecorder) RecordEvaluation(time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passes++
}

func (r *countingRecorder) RecordEvaluationFailure(stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures == nil {
		r.failures = make(map[string]int)
	}
	r.failures[stage]++
}

func (r *countingRecorder) RecordSkippedPass() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped++
}

type monitorFixture struct {
	clock    *fakeClock
	rules    *fakeRules
	source   *fakeTelemetry
	recorder *countingRecorder
	store    *Store
	monitor  *Monitor
}

func newMonitorFixture(t *testing.T, rules ...AlertRule) *monitorFixture {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	f := &monitorFixture{
		clock:    newFakeClock(),
		rules:    &fakeRules{rules: rules},
		recorder: &countingRecorder{},
	}
	f.source = &fakeTelemetry{clock: f.clock}
	f.store = NewStore(f.clock.Now)
	f.monitor = NewMonitor(f.store, f.rules, f.source, &MonitorConfig{
		Interval: time.Hour,
		Clock:    f.clock.Now,
		Metrics:  f.recorder,
	}, logger)
	f.store.SetMonitoring(true)

	t.Cleanup(f.monitor.Stop)
	return f
}

func (f *monitorFixture) check(t *testing.T) {
	t.Helper()
	require.NoError(t, f.monitor.CheckAlertRules(context.Background()))
}

func latencyRule() AlertRule {
	return AlertRule{
		ID:              "rule-latency",
		Name:            "API latency",
		Metric:          MetricResponseTime,
		Condition:       ConditionGreaterThan,
		Threshold:       1000,
		Severity:        SeverityHigh,
		Enabled:         true,
		CooldownMinutes: 5,
	}
}

func TestCooldownTracker(t *testing.T) {
	clock := newFakeClock()
	tracker := NewCooldownTracker(clock.Now)

	assert.False(t, tracker.IsInCooldown("r1", 5))

	tracker.RecordFiring("r1", clock.Now())
	assert.True(t, tracker.IsInCooldown("r1", 5))
	assert.False(t, tracker.IsInCooldown("r1", 0))
	assert.False(t, tracker.IsInCooldown("r2", 5))

	clock.Advance(5 * time.Minute)
	assert.False(t, tracker.IsInCooldown("r1", 5))

	tracker.RecordFiring("r1", clock.Now())
	last, ok := tracker.LastFired("r1")
	require.True(t, ok)
	assert.Equal(t, clock.Now(), last)

	tracker.Reset()
	assert.False(t, tracker.IsInCooldown("r1", 5))
}

func TestMonitor_FiresAlertAboveThreshold(t *testing.T) {
	f := newMonitorFixture(t, latencyRule())
	f.source.setDurations(1000, 2000, 1500)

	f.check(t)

	active := f.store.ActiveAlerts()
	require.Len(t, active, 1)
	a := active[0]
	assert.Equal(t, 1500.0, a.CurrentValue)
	assert.Equal(t, SeverityHigh, a.Severity)
	assert.Equal(t, "rule-latency", a.RuleID)
	assert.Contains(t, a.Message, "exceeded threshold of 1000")
	assert.Contains(t, a.Message, "current: 1500.00")
	assert.Regexp(t, `^alert_\d+_[0-9a-f]{8}$`, a.ID)
	assert.Equal(t, f.clock.Now(), a.Metadata.CheckTime)
	assert.Equal(t, 1000.0, a.Metadata.ThresholdValue)
	assert.Len(t, f.store.AlertHistory(), 1)
	assert.Equal(t, 1, f.recorder.fired)
}

func TestMonitor_BelowThresholdStillStampsCheckTime(t *testing.T) {
	f := newMonitorFixture(t, latencyRule())
	f.source.setDurations(800)

	require.Nil(t, f.store.LastCheckTime())
	f.check(t)

	assert.Empty(t, f.store.ActiveAlerts())
	require.NotNil(t, f.store.LastCheckTime())
	assert.Equal(t, f.clock.Now(), *f.store.LastCheckTime())
}

func TestMonitor_CooldownSuppression(t *testing.T) {
	f := newMonitorFixture(t, latencyRule())
	f.source.setDurations(1500)

	f.check(t)
	require.Len(t, f.store.AlertHistory(), 1)

	f.clock.Advance(2 * time.Minute)
	f.check(t)
	assert.Len(t, f.store.AlertHistory(), 1)

	f.clock.Advance(4 * time.Minute)
	f.check(t)
	assert.Len(t, f.store.AlertHistory(), 2)
}

func TestMonitor_DisabledRuleNeverFires(t *testing.T) {
	rule := latencyRule()
	rule.Enabled = false
	rule.CooldownMinutes = 0
	f := newMonitorFixture(t, rule)
	f.source.setDurations(5000)

	for i := 0; i < 5; i++ {
		f.check(t)
		f.clock.Advance(time.Minute)
	}

	assert.Empty(t, f.store.ActiveAlerts())
	assert.Empty(t, f.store.AlertHistory())
}

func TestMonitor_EmptyRuleListIsNoop(t *testing.T) {
	f := newMonitorFixture(t)

	f.check(t)

	assert.Nil(t, f.store.LastCheckTime())
	assert.Empty(t, f.store.LastError())
	assert.Equal(t, 0, f.recorder.passes)
}

func TestMonitor_DisabledMonitoringIsNoop(t *testing.T) {
	f := newMonitorFixture(t, latencyRule())
	f.source.setDurations(1500)
	f.store.SetMonitoring(false)

	f.check(t)

	assert.Empty(t, f.store.ActiveAlerts())
	assert.Nil(t, f.store.LastCheckTime())
}

func TestMonitor_BatchKeepsRuleOrder(t *testing.T) {
	first := latencyRule()
	second := latencyRule()
	second.ID = "rule-latency-critical"
	second.Severity = SeverityCritical
	f := newMonitorFixture(t, first, second)
	f.source.setDurations(1500)

	f.check(t)

	active := f.store.ActiveAlerts()
	require.Len(t, active, 2)
	assert.Equal(t, "rule-latency", active[0].RuleID)
	assert.Equal(t, "rule-latency-critical", active[1].RuleID)
}

// panickingEvaluator blows up on one metric and defers to MetricEvaluator otherwise
type panickingEvaluator struct {
	metric Metric
	next   *MetricEvaluator
}

func (e panickingEvaluator) Evaluate(metric Metric, snap *telemetry.Snapshot, now time.Time) float64 {
	if metric == e.metric {
		panic("corrupt sample")
	}
	return e.next.Evaluate(metric, snap, now)
}

func TestMonitor_FailingRuleDoesNotStopLaterRules(t *testing.T) {
	broken := latencyRule()
	broken.ID = "rule-cpu"
	broken.Metric = MetricCPUUsage
	f := newMonitorFixture(t, broken, latencyRule())
	f.monitor.evaluator = panickingEvaluator{metric: MetricCPUUsage, next: NewMetricEvaluator()}
	f.source.setDurations(2000)

	f.check(t)

	active := f.store.ActiveAlerts()
	require.Len(t, active, 1)
	assert.Equal(t, "rule-latency", active[0].RuleID)
	assert.Contains(t, f.store.LastError(), "rule-cpu")
	assert.NotNil(t, f.store.LastCheckTime(), "the pass still completes")
	assert.Equal(t, 1, f.recorder.failures[StageRule])

	_, fired := f.monitor.Cooldowns().LastFired("rule-cpu")
	assert.False(t, fired, "a failed rule records no firing")
}

func TestMonitor_TelemetryFailureAbortsPass(t *testing.T) {
	f := newMonitorFixture(t, latencyRule())
	f.source.setDurations(800)
	f.check(t)
	checkedAt := *f.store.LastCheckTime()

	f.clock.Advance(time.Minute)
	f.source.setErr(errors.New("database is locked"))

	err := f.monitor.CheckAlertRules(context.Background())
	require.Error(t, err)
	assert.Contains(t, f.store.LastError(), "database is locked")
	assert.Equal(t, checkedAt, *f.store.LastCheckTime())
	assert.Equal(t, 1, f.recorder.failures[StageTelemetry])

	f.clock.Advance(time.Minute)
	f.source.setErr(nil)
	f.source.setDurations(1500)
	f.check(t)

	assert.Empty(t, f.store.LastError())
	assert.Equal(t, f.clock.Now(), *f.store.LastCheckTime())
	assert.Len(t, f.store.ActiveAlerts(), 1)
}

func TestMonitor_RuleFetchFailureAbortsPass(t *testing.T) {
	f := newMonitorFixture(t, latencyRule())
	f.rules.err = errors.New("no such table: alert_rules")

	err := f.monitor.CheckAlertRules(context.Background())
	require.Error(t, err)
	assert.Contains(t, f.store.LastError(), "failed to fetch alert rules")
	assert.Nil(t, f.store.LastCheckTime())
	assert.Equal(t, 1, f.recorder.failures[StageRules])
}

func TestMonitor_SkipsWhilePassInFlight(t *testing.T) {
	f := newMonitorFixture(t, latencyRule())
	f.source.setDurations(1500)

	f.monitor.passMu.Lock()
	err := f.monitor.CheckAlertRules(context.Background())
	f.monitor.passMu.Unlock()

	assert.ErrorIs(t, err, ErrPassInFlight)
	assert.Empty(t, f.store.ActiveAlerts())
	assert.Equal(t, 1, f.recorder.skipped)

	f.check(t)
	assert.Len(t, f.store.ActiveAlerts(), 1)
}

func TestMonitor_StartRunsImmediately(t *testing.T) {
	f := newMonitorFixture(t, latencyRule())
	f.store.SetMonitoring(false)
	f.source.setDurations(1500)

	require.NoError(t, f.monitor.Start(context.Background()))

	assert.True(t, f.monitor.IsRunning())
	assert.True(t, f.store.IsMonitoring())
	assert.Len(t, f.store.ActiveAlerts(), 1)

	status := f.monitor.Status()
	assert.True(t, status.IsMonitoring)
	assert.Equal(t, "1h0m0s", status.Interval)
	assert.NotNil(t, status.NextCheckTime)

	f.monitor.Stop()
	assert.False(t, f.monitor.IsRunning())
	assert.False(t, f.store.IsMonitoring())
}

func TestMonitor_RulesChangedAutoStart(t *testing.T) {
	f := newMonitorFixture(t)
	f.store.SetMonitoring(false)

	require.NoError(t, f.monitor.RulesChanged(context.Background()))
	assert.False(t, f.monitor.IsRunning(), "no rules, nothing to monitor")

	f.rules.set(latencyRule())
	require.NoError(t, f.monitor.RulesChanged(context.Background()))
	assert.True(t, f.monitor.IsRunning())

	f.monitor.Stop()
	require.NoError(t, f.monitor.RulesChanged(context.Background()))
	assert.False(t, f.monitor.IsRunning(), "an explicit stop is respected")

	require.NoError(t, f.monitor.Start(context.Background()))
	assert.True(t, f.monitor.IsRunning())
}

func TestMonitor_IndependentInstances(t *testing.T) {
	a := newMonitorFixture(t, latencyRule())
	b := newMonitorFixture(t, latencyRule())
	a.source.setDurations(1500)
	b.source.setDurations(1500)

	a.check(t)
	b.check(t)

	assert.Len(t, a.store.ActiveAlerts(), 1)
	assert.Len(t, b.store.ActiveAlerts(), 1)
	assert.NotEqual(t, a.store.ActiveAlerts()[0].ID, b.store.ActiveAlerts()[0].ID)
}

func TestMonitor_Shutdown(t *testing.T) {
	f := newMonitorFixture(t, latencyRule())
	require.NoError(t, f.monitor.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.monitor.Shutdown(ctx))
	assert.False(t, f.monitor.IsRunning())
}
