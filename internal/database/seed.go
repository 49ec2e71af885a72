package database

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/alerting"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/database/repositories"
)

type ruleFile struct {
	Rules []ruleSeed `yaml:"rules"`
}

type ruleSeed struct {
	Name            string  `yaml:"name"`
	Metric          string  `yaml:"metric"`
	Condition       string  `yaml:"condition"`
	Threshold       float64 `yaml:"threshold"`
	Severity        string  `yaml:"severity"`
	Enabled         *bool   `yaml:"enabled"`
	CooldownMinutes int     `yaml:"cooldown_minutes"`
}

// LoadRuleSeeds parses a YAML rule file. Every entry must name a known
// metric, condition and severity.
func LoadRuleSeeds(path string) ([]alerting.AlertRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}

	rules := make([]alerting.AlertRule, 0, len(file.Rules))
	for i, seed := range file.Rules {
		rule := alerting.AlertRule{
			Name:            seed.Name,
			Metric:          alerting.Metric(seed.Metric),
			Condition:       alerting.Condition(seed.Condition),
			Threshold:       seed.Threshold,
			Severity:        alerting.Severity(seed.Severity),
			Enabled:         seed.Enabled == nil || *seed.Enabled,
			CooldownMinutes: seed.CooldownMinutes,
		}
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("rule %d (%q): %w", i, seed.Name, err)
		}
		rules = append(rules, rule)
	}

	return rules, nil
}

// SeedAlertRules inserts the rules from path when the rule table is empty.
// A missing file is not an error.
func SeedAlertRules(ctx context.Context, repo repositories.AlertRuleRepository, path string, logger *logrus.Logger) (int, error) {
	if path == "" {
		return 0, nil
	}

	count, err := repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	rules, err := LoadRuleSeeds(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.WithField("path", path).Debug("No alert rules file, skipping seed")
			return 0, nil
		}
		return 0, err
	}

	for i := range rules {
		if err := repo.Create(ctx, &rules[i]); err != nil {
			return i, err
		}
	}

	logger.WithFields(logrus.Fields{
		"path":  path,
		"rules": len(rules),
	}).Info("Seeded alert rules")

	return len(rules), nil
}
