package alerting

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckCondition(t *testing.T) {
	tests := []struct {
		name      string
		cond      Condition
		value     float64
		threshold float64
		expected  bool
	}{
		{"greater than fires", ConditionGreaterThan, 1500, 1000, true},
		{"greater than at threshold", ConditionGreaterThan, 1000, 1000, false},
		{"less than fires", ConditionLessThan, 5, 10, true},
		{"less than above threshold", ConditionLessThan, 15, 10, false},
		{"equals within tolerance", ConditionEquals, 10.004, 10, true},
		{"equals below within tolerance", ConditionEquals, 9.995, 10, true},
		{"equals outside tolerance", ConditionEquals, 10.02, 10, false},
		{"unknown operator", Condition("between"), 10, 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CheckCondition(tt.cond, tt.value, tt.threshold))
		})
	}
}

func TestFormatMessage(t *testing.T) {
	rule := AlertRule{
		Name:      "API latency",
		Metric:    MetricResponseTime,
		Condition: ConditionGreaterThan,
		Threshold: 1000,
	}
	assert.Equal(t, "API latency: response time has exceeded threshold of 1000 (current: 1500.00)", FormatMessage(rule, 1500))

	rule = AlertRule{Name: "Quiet", Metric: MetricLogVolume, Condition: ConditionLessThan, Threshold: 2.5}
	assert.Equal(t, "Quiet: log volume has dropped below threshold of 2.5 (current: 1.00)", FormatMessage(rule, 1))

	rule = AlertRule{Name: "Pinned", Metric: MetricCPUUsage, Condition: ConditionEquals, Threshold: 50}
	assert.Contains(t, FormatMessage(rule, 50.004), "cpu usage has equals threshold of 50 (current: 50.00)")
}

func TestEnumValidation(t *testing.T) {
	for _, m := range Metrics {
		assert.True(t, m.Valid(), string(m))
	}
	assert.False(t, Metric("disk_usage").Valid())
	assert.True(t, ConditionEquals.Valid())
	assert.False(t, Condition("gte").Valid())
	assert.True(t, SeverityCritical.Valid())
	assert.False(t, Severity("urgent").Valid())
}

func TestAlertRule_Validate(t *testing.T) {
	valid := AlertRule{
		Name:      "Slow responses",
		Metric:    MetricResponseTime,
		Condition: ConditionGreaterThan,
		Threshold: 500,
		Severity:  SeverityHigh,
	}
	assert.NoError(t, valid.Validate())

	bad := valid
	bad.Name = "  "
	bad.Metric = "disk_usage"
	bad.CooldownMinutes = -1
	err := bad.Validate()
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "name is required")
		assert.Contains(t, err.Error(), `unknown metric "disk_usage"`)
		assert.Contains(t, err.Error(), "cooldownMinutes")
	}
}

func TestAlertRule_JSONFieldNames(t *testing.T) {
	rule := AlertRule{ID: "r1", CooldownMinutes: 5, CreatedAt: time.Unix(0, 0).UTC()}

	raw, err := json.Marshal(rule)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, key := range []string{"id", "cooldownMinutes", "createdAt", "updatedAt"} {
		assert.Contains(t, fields, key)
	}
	assert.NotContains(t, fields, "created_at")
}
