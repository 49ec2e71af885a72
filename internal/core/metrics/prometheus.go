package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/alerting"
)

// severities are pre-registered so alerts_active reports zeros instead of missing series
var severities = []alerting.Severity{
	alerting.SeverityLow,
	alerting.SeverityMedium,
	alerting.SeverityHigh,
	alerting.SeverityCritical,
}

// PrometheusCollector implements MetricsCollector on its own registry
type PrometheusCollector struct {
	config   *MetricsConfig
	registry *prometheus.Registry

	// HTTP Metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// WebSocket Metrics
	websocketConnections prometheus.Gauge
	websocketMessages    *prometheus.CounterVec

	// Database Metrics
	databaseQueryDuration *prometheus.HistogramVec

	// System Metrics
	systemCPU    prometheus.Gauge
	systemMemory prometheus.Gauge

	// Telemetry Metrics
	telemetrySamples *prometheus.CounterVec

	// Alert Metrics
	alertsFired        *prometheus.CounterVec
	alertsActive       *prometheus.GaugeVec
	evaluationDuration prometheus.Histogram
	evaluationFailures *prometheus.CounterVec
	evaluationSkipped  prometheus.Counter
}

// NewPrometheusCollector creates a collector with a fresh registry
func NewPrometheusCollector(config *MetricsConfig) *PrometheusCollector {
	if config == nil {
		config = &MetricsConfig{
			Enabled: true,
			Prefix:  "agent_dashboard",
		}
	}

	prefix := config.Prefix
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	collector := &PrometheusCollector{
		config:   config,
		registry: registry,
	}

	// Initialize HTTP metrics
	collector.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	collector.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Initialize WebSocket metrics
	collector.websocketConnections = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "_websocket_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	collector.websocketMessages = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"},
	)

	// Initialize Database metrics
	collector.databaseQueryDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_database_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"operation"},
	)

	// Initialize System metrics
	collector.systemCPU = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "_system_cpu_usage_percent",
			Help: "Last sampled CPU usage percentage",
		},
	)

	collector.systemMemory = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "_system_memory_usage_percent",
			Help: "Last sampled memory usage percentage",
		},
	)

	collector.telemetrySamples = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_telemetry_samples_total",
			Help: "Telemetry rows recorded, by kind",
		},
		[]string{"kind"},
	)

	// Initialize Alert metrics
	collector.alertsFired = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_alerts_fired_total",
			Help: "Total number of alerts fired",
		},
		[]string{"severity", "metric"},
	)

	collector.alertsActive = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "_alerts_active",
			Help: "Number of unresolved alerts",
		},
		[]string{"severity"},
	)
	for _, s := range severities {
		collector.alertsActive.WithLabelValues(string(s)).Set(0)
	}

	collector.evaluationDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    prefix + "_alert_evaluation_duration_seconds",
			Help:    "Duration of completed alert evaluation passes",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
	)

	collector.evaluationFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_alert_evaluation_failures_total",
			Help: "Alert evaluation failures, by stage",
		},
		[]string{"stage"},
	)

	collector.evaluationSkipped = factory.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_alert_passes_skipped_total",
			Help: "Alert evaluation passes skipped because one was already running",
		},
	)

	return collector
}

// Registry returns the registry every metric is registered on
func (p *PrometheusCollector) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format
func (p *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// RecordHTTPRequest records HTTP request metrics
func (p *PrometheusCollector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if !p.config.Enabled {
		return
	}

	p.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	p.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordWebSocketConnection records WebSocket connection metrics
func (p *PrometheusCollector) RecordWebSocketConnection(action string) {
	if !p.config.Enabled {
		return
	}

	switch action {
	case "connect":
		p.websocketConnections.Inc()
	case "disconnect":
		p.websocketConnections.Dec()
	case "message_sent":
		p.websocketMessages.WithLabelValues("outbound").Inc()
	case "message_received":
		p.websocketMessages.WithLabelValues("inbound").Inc()
	}
}

// RecordDatabaseQuery records database query metrics
func (p *PrometheusCollector) RecordDatabaseQuery(operation string, duration time.Duration) {
	if !p.config.Enabled {
		return
	}

	p.databaseQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordSystemResource records the last sampled resource usage
func (p *PrometheusCollector) RecordSystemResource(cpu, memory float64) {
	if !p.config.Enabled {
		return
	}

	p.systemCPU.Set(cpu)
	p.systemMemory.Set(memory)
}

// RecordTelemetrySample counts one stored telemetry row
func (p *PrometheusCollector) RecordTelemetrySample(kind string) {
	if !p.config.Enabled {
		return
	}

	p.telemetrySamples.WithLabelValues(kind).Inc()
}

// RecordAlertFired counts one fired alert
func (p *PrometheusCollector) RecordAlertFired(severity, metric string) {
	if !p.config.Enabled {
		return
	}

	p.alertsFired.WithLabelValues(severity, metric).Inc()
}

// RecordEvaluation observes the duration of a completed pass
func (p *PrometheusCollector) RecordEvaluation(duration time.Duration) {
	if !p.config.Enabled {
		return
	}

	p.evaluationDuration.Observe(duration.Seconds())
}

// RecordEvaluationFailure counts a failed pass or rule
func (p *PrometheusCollector) RecordEvaluationFailure(stage string) {
	if !p.config.Enabled {
		return
	}

	p.evaluationFailures.WithLabelValues(stage).Inc()
}

// RecordSkippedPass counts a pass skipped by the overlap guard
func (p *PrometheusCollector) RecordSkippedPass() {
	if !p.config.Enabled {
		return
	}

	p.evaluationSkipped.Inc()
}

// SetActiveAlerts replaces the active alert gauges
func (p *PrometheusCollector) SetActiveAlerts(bySeverity map[string]int) {
	if !p.config.Enabled {
		return
	}

	for _, s := range severities {
		p.alertsActive.WithLabelValues(string(s)).Set(float64(bySeverity[string(s)]))
	}
}

// ObserveStore keeps the active alert gauges in step with store
func (p *PrometheusCollector) ObserveStore(store *alerting.Store) {
	update := func() {
		counts := make(map[string]int)
		for _, a := range store.ActiveAlerts() {
			counts[string(a.Severity)]++
		}
		p.SetActiveAlerts(counts)
	}

	store.OnChange(func(alerting.Event) { update() })
	update()
}
