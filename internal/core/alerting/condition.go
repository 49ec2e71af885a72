package alerting

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// equalsTolerance is the absolute difference under which two values are equal
const equalsTolerance = 0.01

// CheckCondition compares value against threshold. Unknown conditions never fire.
func CheckCondition(cond Condition, value, threshold float64) bool {
	switch cond {
	case ConditionGreaterThan:
		return value > threshold
	case ConditionLessThan:
		return value < threshold
	case ConditionEquals:
		return math.Abs(value-threshold) < equalsTolerance
	default:
		return false
	}
}

// conditionVerb is the phrase used in alert messages for each condition
func conditionVerb(cond Condition) string {
	switch cond {
	case ConditionGreaterThan:
		return "exceeded"
	case ConditionLessThan:
		return "dropped below"
	case ConditionEquals:
		return "equals"
	default:
		return string(cond)
	}
}

// FormatMessage renders the human-readable sentence stored on an alert, e.g.
// "API latency: response time has exceeded threshold of 1000 (current: 1500.00)".
func FormatMessage(rule AlertRule, value float64) string {
	metric := strings.ToLower(strings.ReplaceAll(string(rule.Metric), "_", " "))
	return fmt.Sprintf("%s: %s has %s threshold of %s (current: %.2f)",
		rule.Name,
		metric,
		conditionVerb(rule.Condition),
		strconv.FormatFloat(rule.Threshold, 'f', -1, 64),
		value,
	)
}
