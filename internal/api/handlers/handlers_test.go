package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/frostdev-ops/agent-dashboard-backend/internal/config"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/alerting"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/metrics"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/telemetry"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/database"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memoryRules struct {
	mu    sync.Mutex
	rules []alerting.AlertRule
	seq   int
}

func (m *memoryRules) ListRules(ctx context.Context) ([]alerting.AlertRule, error) {
	return m.List(ctx)
}

func (m *memoryRules) Create(_ context.Context, rule *alerting.AlertRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	rule.ID = fmt.Sprintf("rule-%d", m.seq)
	rule.CreatedAt = time.Now().UTC()
	rule.UpdatedAt = rule.CreatedAt
	m.rules = append(m.rules, *rule)
	return nil
}

func (m *memoryRules) Get(_ context.Context, id string) (*alerting.AlertRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rules {
		if r.ID == id {
			r := r
			return &r, nil
		}
	}
	return nil, nil
}

func (m *memoryRules) List(context.Context) ([]alerting.AlertRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]alerting.AlertRule(nil), m.rules...), nil
}

func (m *memoryRules) Update(_ context.Context, rule *alerting.AlertRule) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rules {
		if r.ID == rule.ID {
			rule.CreatedAt = r.CreatedAt
			m.rules[i] = *rule
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryRules) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rules {
		if r.ID == id {
			m.rules = append(m.rules[:i], m.rules[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryRules) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rules), nil
}

type memoryTelemetry struct {
	mu         sync.Mutex
	perf       []telemetry.PerformanceLog
	system     []telemetry.SystemMetric
	executions []telemetry.ExecutionLog
	errors     []telemetry.ErrorLog
}

func (m *memoryTelemetry) RecentPerformanceLogs(context.Context) ([]telemetry.PerformanceLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]telemetry.PerformanceLog(nil), m.perf...), nil
}

func (m *memoryTelemetry) RecentSystemMetrics(context.Context) ([]telemetry.SystemMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]telemetry.SystemMetric(nil), m.system...), nil
}

func (m *memoryTelemetry) RecentExecutionLogs(context.Context) ([]telemetry.ExecutionLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]telemetry.ExecutionLog(nil), m.executions...), nil
}

func (m *memoryTelemetry) RecentErrorLogs(context.Context) ([]telemetry.ErrorLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]telemetry.ErrorLog(nil), m.errors...), nil
}

func stamp(ts *time.Time) {
	if ts.IsZero() {
		*ts = time.Now().UTC()
	}
}

func (m *memoryTelemetry) RecordExecutionLog(_ context.Context, row *telemetry.ExecutionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stamp(&row.Timestamp)
	row.ID = int64(len(m.executions) + 1)
	m.executions = append(m.executions, *row)
	return nil
}

func (m *memoryTelemetry) RecordPerformanceLog(_ context.Context, row *telemetry.PerformanceLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stamp(&row.Timestamp)
	row.ID = int64(len(m.perf) + 1)
	m.perf = append(m.perf, *row)
	return nil
}

func (m *memoryTelemetry) RecordErrorLog(_ context.Context, row *telemetry.ErrorLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stamp(&row.Timestamp)
	row.ID = int64(len(m.errors) + 1)
	m.errors = append(m.errors, *row)
	return nil
}

func (m *memoryTelemetry) RecordSystemMetric(_ context.Context, row *telemetry.SystemMetric) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stamp(&row.Timestamp)
	row.ID = int64(len(m.system) + 1)
	m.system = append(m.system, *row)
	return nil
}

func (m *memoryTelemetry) PurgeOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type testEnv struct {
	router    *gin.Engine
	handlers  *Handlers
	monitor   *alerting.Monitor
	store     *alerting.Store
	rules     *memoryRules
	telemetry *memoryTelemetry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	rules := &memoryRules{}
	tel := &memoryTelemetry{}
	repos := &database.Repositories{AlertRules: rules, Telemetry: tel}

	store := alerting.NewStore(nil)
	mon := alerting.NewMonitor(store, rules, tel, &alerting.MonitorConfig{Interval: time.Hour}, logger)
	t.Cleanup(mon.Stop)

	collector := metrics.NewPrometheusCollector(&metrics.MetricsConfig{Enabled: true, Prefix: "test"})
	h := NewHandlers(&config.Config{}, repos, Services{
		Monitor: mon,
		Health:  metrics.NewDefaultHealthChecker(),
		Metrics: collector.Handler(),
	}, logger)

	router := gin.New()
	router.GET("/health", h.Health)
	router.GET("/metrics", h.Metrics)
	router.GET("/system/resources", h.GetSystemResources)
	router.GET("/alerts", h.GetAlerts)
	router.GET("/alerts/history", h.GetAlertHistory)
	router.GET("/alerts/history/export", h.ExportAlertHistory)
	router.GET("/alerts/summary", h.GetAlertSummary)
	router.POST("/alerts/clear", h.ClearAlerts)
	router.POST("/alerts/:id/acknowledge", h.AcknowledgeAlert)
	router.POST("/alerts/:id/resolve", h.ResolveAlert)
	router.GET("/alert-rules", h.GetAlertRules)
	router.POST("/alert-rules", h.CreateAlertRule)
	router.GET("/alert-rules/:id", h.GetAlertRule)
	router.PUT("/alert-rules/:id", h.UpdateAlertRule)
	router.DELETE("/alert-rules/:id", h.DeleteAlertRule)
	router.GET("/monitoring/status", h.GetMonitoringStatus)
	router.POST("/monitoring/start", h.StartMonitoring)
	router.POST("/monitoring/stop", h.StopMonitoring)
	router.POST("/monitoring/check", h.CheckAlertRules)
	router.POST("/telemetry/execution-logs", h.RecordExecutionLog)
	router.POST("/telemetry/performance-logs", h.RecordPerformanceLog)
	router.POST("/telemetry/error-logs", h.RecordErrorLog)
	router.POST("/telemetry/system-metrics", h.RecordSystemMetric)

	return &testEnv{router: router, handlers: h, monitor: mon, store: store, rules: rules, telemetry: tel}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Meta    map[string]any  `json:"meta"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func seedAlerts(store *alerting.Store, at time.Time) {
	store.Append([]alerting.Alert{
		{ID: "a-crit", RuleID: "r1", Severity: alerting.SeverityCritical, Timestamp: at},
		{ID: "a-high", RuleID: "r2", Severity: alerting.SeverityHigh, Timestamp: at},
		{ID: "a-low", RuleID: "r3", Severity: alerting.SeverityLow, Timestamp: at},
	}, at)
}
