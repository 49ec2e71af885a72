package metrics

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/alerting"
)

// HealthStatus represents the health status of a component
type HealthStatus struct {
	Status    string                 `json:"status"` // "healthy", "degraded", "unhealthy"
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Duration  time.Duration          `json:"duration"`
}

// HealthReport represents the overall health report
type HealthReport struct {
	Status     string                  `json:"status"`
	Message    string                  `json:"message"`
	Timestamp  time.Time               `json:"timestamp"`
	Duration   time.Duration           `json:"duration"`
	Components map[string]HealthStatus `json:"components"`
	SystemInfo map[string]interface{}  `json:"system_info"`
}

// HealthChecker defines the interface for health checking
type HealthChecker interface {
	CheckDatabase() HealthStatus
	CheckAlertMonitoring() HealthStatus
	CheckSystemResources() HealthStatus
	GetOverallHealth() HealthReport
	RegisterCustomCheck(name string, check func() HealthStatus)
}

// CustomHealthCheck represents a custom health check function
type CustomHealthCheck func() HealthStatus

// DefaultHealthChecker implements HealthChecker
type DefaultHealthChecker struct {
	mu                    sync.RWMutex
	databaseChecker       func() HealthStatus
	monitoringChecker     func() HealthStatus
	systemResourceChecker func() HealthStatus
	customChecks          map[string]CustomHealthCheck
}

// NewDefaultHealthChecker creates a new health checker
func NewDefaultHealthChecker() *DefaultHealthChecker {
	return &DefaultHealthChecker{
		customChecks: make(map[string]CustomHealthCheck),
	}
}

// SetDatabaseChecker sets the database health check function
func (h *DefaultHealthChecker) SetDatabaseChecker(checker func() HealthStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.databaseChecker = checker
}

// SetMonitoringChecker sets the alert monitoring health check function
func (h *DefaultHealthChecker) SetMonitoringChecker(checker func() HealthStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.monitoringChecker = checker
}

// SetSystemResourceChecker sets the system resource health check function
func (h *DefaultHealthChecker) SetSystemResourceChecker(checker func() HealthStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.systemResourceChecker = checker
}

// CheckDatabase performs database health check
func (h *DefaultHealthChecker) CheckDatabase() HealthStatus {
	h.mu.RLock()
	checker := h.databaseChecker
	h.mu.RUnlock()
	return runCheck("Database", checker)
}

// CheckAlertMonitoring reports whether the evaluation loop is keeping up
func (h *DefaultHealthChecker) CheckAlertMonitoring() HealthStatus {
	h.mu.RLock()
	checker := h.monitoringChecker
	h.mu.RUnlock()
	return runCheck("Alert monitoring", checker)
}

// CheckSystemResources performs system resource health check
func (h *DefaultHealthChecker) CheckSystemResources() HealthStatus {
	h.mu.RLock()
	checker := h.systemResourceChecker
	h.mu.RUnlock()
	return runCheck("System resource", checker)
}

func runCheck(name string, checker func() HealthStatus) HealthStatus {
	start := time.Now()

	if checker == nil {
		return HealthStatus{
			Status:    "unknown",
			Message:   name + " health checker not configured",
			Timestamp: time.Now(),
			Duration:  time.Since(start),
		}
	}

	result := checker()
	result.Duration = time.Since(start)
	return result
}

// RegisterCustomCheck registers a custom health check
func (h *DefaultHealthChecker) RegisterCustomCheck(name string, check func() HealthStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.customChecks[name] = check
}

// GetOverallHealth returns the overall system health
func (h *DefaultHealthChecker) GetOverallHealth() HealthReport {
	start := time.Now()

	components := map[string]HealthStatus{
		"database":         h.CheckDatabase(),
		"alert_monitoring": h.CheckAlertMonitoring(),
		"system_resources": h.CheckSystemResources(),
	}

	h.mu.RLock()
	for name, check := range h.customChecks {
		components["custom_"+name] = check()
	}
	h.mu.RUnlock()

	overallStatus, message := summarize(components)

	return HealthReport{
		Status:     overallStatus,
		Message:    message,
		Timestamp:  time.Now(),
		Duration:   time.Since(start),
		Components: components,
		SystemInfo: runtimeInfo(),
	}
}

// statusRank orders component states from best to worst; the report takes
// the worst one.
var statusRank = map[string]int{"healthy": 0, "unknown": 1, "degraded": 2, "unhealthy": 3}

func summarize(components map[string]HealthStatus) (string, string) {
	counts := make(map[string]int, len(statusRank))
	worst := "healthy"
	for _, c := range components {
		status := c.Status
		if _, ok := statusRank[status]; !ok {
			status = "unknown"
		}
		counts[status]++
		if statusRank[status] > statusRank[worst] {
			worst = status
		}
	}

	if worst == "healthy" {
		return worst, fmt.Sprintf("All %d components healthy", len(components))
	}
	return worst, fmt.Sprintf("%d/%d components %s", counts[worst], len(components), worst)
}

var processStart = time.Now()

func runtimeInfo() map[string]interface{} {
	return map[string]interface{}{
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"uptime":     time.Since(processStart).Round(time.Second).String(),
		"goroutines": runtime.NumGoroutine(),
		"go_version": runtime.Version(),
	}
}

// NewHealthStatus creates a new health status
func NewHealthStatus(status, message string) HealthStatus {
	return HealthStatus{
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
		Details:   make(map[string]interface{}),
	}
}

// WithDetails adds details to a health status
func (h HealthStatus) WithDetails(details map[string]interface{}) HealthStatus {
	if h.Details == nil {
		h.Details = make(map[string]interface{})
	}

	for k, v := range details {
		h.Details[k] = v
	}

	return h
}

// WithDetail adds a single detail to a health status
func (h HealthStatus) WithDetail(key string, value interface{}) HealthStatus {
	if h.Details == nil {
		h.Details = make(map[string]interface{})
	}

	h.Details[key] = value
	return h
}

// AlertMonitoringHealth flags a loop that reported an error or has not
// completed a pass within two intervals.
func AlertMonitoringHealth(status alerting.MonitorStatus, interval time.Duration, now time.Time) HealthStatus {
	if !status.IsMonitoring {
		return NewHealthStatus("healthy", "Alert monitoring is stopped").
			WithDetail("is_monitoring", false)
	}

	if status.LastError != "" {
		return NewHealthStatus("degraded", "Last alert evaluation failed").
			WithDetail("last_error", status.LastError)
	}

	if status.LastCheckTime == nil {
		return NewHealthStatus("healthy", "Alert monitoring is waiting for its first pass")
	}

	age := now.Sub(*status.LastCheckTime)
	if age > 2*interval {
		return NewHealthStatus("degraded", "Alert evaluation is stale").
			WithDetail("last_check_age", age.Round(time.Second).String())
	}

	return NewHealthStatus("healthy", "Alert monitoring is running").
		WithDetail("active_alerts", status.ActiveAlerts)
}
