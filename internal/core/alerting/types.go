package alerting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Metric identifies what an alert rule watches
type Metric string

const (
	MetricResponseTime   Metric = "response_time"
	MetricErrorRate      Metric = "error_rate"
	MetricMemoryUsage    Metric = "memory_usage"
	MetricCPUUsage       Metric = "cpu_usage"
	MetricLogVolume      Metric = "log_volume"
	MetricActiveSessions Metric = "active_sessions"
)

// Condition is the comparison applied between the current value and the threshold
type Condition string

const (
	ConditionGreaterThan Condition = "greater_than"
	ConditionLessThan    Condition = "less_than"
	ConditionEquals      Condition = "equals"
)

// Severity is carried from a rule into every alert it produces
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Metrics lists every supported metric
var Metrics = []Metric{
	MetricResponseTime,
	MetricErrorRate,
	MetricMemoryUsage,
	MetricCPUUsage,
	MetricLogVolume,
	MetricActiveSessions,
}

// Valid reports whether m is a supported metric
func (m Metric) Valid() bool {
	for _, known := range Metrics {
		if m == known {
			return true
		}
	}
	return false
}

// Valid reports whether c is a supported condition
func (c Condition) Valid() bool {
	switch c {
	case ConditionGreaterThan, ConditionLessThan, ConditionEquals:
		return true
	}
	return false
}

// Valid reports whether s is a supported severity
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// AlertRule is a user-defined threshold condition on a metric
type AlertRule struct {
	ID              string    `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	Metric          Metric    `json:"metric" db:"metric"`
	Condition       Condition `json:"condition" db:"condition"`
	Threshold       float64   `json:"threshold" db:"threshold"`
	Severity        Severity  `json:"severity" db:"severity"`
	Enabled         bool      `json:"enabled" db:"enabled"`
	CooldownMinutes int       `json:"cooldownMinutes" db:"cooldown_minutes"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}

// Validate checks the fields a rule needs to be evaluated
func (r *AlertRule) Validate() error {
	var problems []string

	if strings.TrimSpace(r.Name) == "" {
		problems = append(problems, "name is required")
	}
	if !r.Metric.Valid() {
		problems = append(problems, fmt.Sprintf("unknown metric %q", r.Metric))
	}
	if !r.Condition.Valid() {
		problems = append(problems, fmt.Sprintf("unknown condition %q", r.Condition))
	}
	if !r.Severity.Valid() {
		problems = append(problems, fmt.Sprintf("unknown severity %q", r.Severity))
	}
	if r.CooldownMinutes < 0 {
		problems = append(problems, "cooldownMinutes must not be negative")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// AlertMetadata is the audit snapshot recorded when an alert fires
type AlertMetadata struct {
	CheckTime      time.Time `json:"checkTime"`
	MetricValue    float64   `json:"metricValue"`
	ThresholdValue float64   `json:"thresholdValue"`
}

// Alert is a materialized record of a rule's condition being met.
// Rule fields are copied at fire time; later rule edits do not touch it.
type Alert struct {
	ID           string        `json:"id"`
	RuleID       string        `json:"ruleId"`
	RuleName     string        `json:"ruleName"`
	Metric       Metric        `json:"metric"`
	CurrentValue float64       `json:"currentValue"`
	Threshold    float64       `json:"threshold"`
	Condition    Condition     `json:"condition"`
	Severity     Severity      `json:"severity"`
	Message      string        `json:"message"`
	Timestamp    time.Time     `json:"timestamp"`
	Acknowledged bool          `json:"acknowledged"`
	Resolved     bool          `json:"resolved"`
	ResolvedAt   *time.Time    `json:"resolvedAt,omitempty"`
	ResolvedBy   string        `json:"resolvedBy,omitempty"`
	Metadata     AlertMetadata `json:"metadata"`
}

// RuleSource supplies the configured rule list in evaluation order
type RuleSource interface {
	ListRules(ctx context.Context) ([]AlertRule, error)
}

// Clock returns the current wall-clock time
type Clock func() time.Time
