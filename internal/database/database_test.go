package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostdev-ops/agent-dashboard-backend/internal/config"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/alerting"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/telemetry"
)

func openMigrated(t *testing.T) *Repositories {
	t.Helper()

	db, err := Initialize(config.DatabaseConfig{
		Path:           filepath.Join(t.TempDir(), "nested", "test.db"),
		MaxConnections: 4,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(db.DB, "../../migrations"))
	// running again is a no-op
	require.NoError(t, Migrate(db.DB, "../../migrations"))

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewRepositories(db, RepositoryOptions{TelemetryLookback: time.Hour}, logger)
}

func TestInitializeAndMigrate(t *testing.T) {
	repos := openMigrated(t)

	count, err := repos.AlertRules.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	var source alerting.RuleSource = repos.AlertRules
	rules, err := source.ListRules(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rules)

	snap, err := telemetry.Collect(context.Background(), repos.Telemetry)
	require.NoError(t, err)
	assert.Empty(t, snap.SystemMetrics)
}

func writeRules(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "alert_rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestSeedAlertRules(t *testing.T) {
	repos := openMigrated(t)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	ctx := context.Background()

	path := writeRules(t, `
rules:
  - name: High CPU
    metric: cpu_usage
    condition: greater_than
    threshold: 90
    severity: critical
    cooldown_minutes: 10
  - name: Slow responses
    metric: response_time
    condition: greater_than
    threshold: 2000
    severity: high
    enabled: false
`)

	n, err := SeedAlertRules(ctx, repos.AlertRules, path, logger)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rules, err := repos.AlertRules.List(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "High CPU", rules[0].Name)
	assert.True(t, rules[0].Enabled)
	assert.Equal(t, 10, rules[0].CooldownMinutes)
	assert.False(t, rules[1].Enabled)

	// a populated table is never re-seeded
	n, err = SeedAlertRules(ctx, repos.AlertRules, path, logger)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSeedAlertRules_MissingFile(t *testing.T) {
	repos := openMigrated(t)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	n, err := SeedAlertRules(context.Background(), repos.AlertRules, filepath.Join(t.TempDir(), "nope.yaml"), logger)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestLoadRuleSeeds_Invalid(t *testing.T) {
	path := writeRules(t, `
rules:
  - name: Disk
    metric: disk_usage
    condition: greater_than
    threshold: 90
    severity: high
`)

	_, err := LoadRuleSeeds(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk_usage")
}

func TestMigrationVersionAndDown(t *testing.T) {
	db, err := Initialize(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "version.db")})
	require.NoError(t, err)
	defer db.Close()

	_, _, ok, err := MigrationVersion(db.DB, "../../migrations")
	require.NoError(t, err)
	assert.False(t, ok, "fresh database has no schema version")

	require.NoError(t, Migrate(db.DB, "../../migrations"))
	version, dirty, ok, err := MigrationVersion(db.DB, "../../migrations")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)

	require.NoError(t, MigrateDown(db.DB, "../../migrations"))
	var tables int
	require.NoError(t, db.Get(&tables, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'alert_rules'`))
	assert.Zero(t, tables)
}
