package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	WebSocket  WebSocketConfig  `mapstructure:"websocket"`
	Security   SecurityConfig   `mapstructure:"security"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MigrationsPath string `mapstructure:"migrations_path"`
	MaxConnections int    `mapstructure:"max_connections"`
	AutoMigrate    bool   `mapstructure:"auto_migrate"`
}

type AuthConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	JWTSecret   string `mapstructure:"jwt_secret"`
	TokenExpiry int    `mapstructure:"token_expiry"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type WebSocketConfig struct {
	PingInterval int `mapstructure:"ping_interval"`
	PongTimeout  int `mapstructure:"pong_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	EnableCORS     bool                    `mapstructure:"enable_cors"`
	AllowedOrigins []string                `mapstructure:"allowed_origins"`
	RateLimiting   SecurityRateLimitConfig `mapstructure:"rate_limiting"`
}

// SecurityRateLimitConfig contains per-client rate limiting configuration
type SecurityRateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// MonitoringConfig contains alert monitoring configuration
type MonitoringConfig struct {
	Enabled           bool                     `mapstructure:"enabled"`
	AutoStart         bool                     `mapstructure:"auto_start"`
	CheckInterval     time.Duration            `mapstructure:"check_interval"`
	MetricWindow      time.Duration            `mapstructure:"metric_window"`
	TelemetryLookback time.Duration            `mapstructure:"telemetry_lookback"`
	ComputeErrorRate  bool                     `mapstructure:"compute_error_rate"`
	RulesFile         string                   `mapstructure:"rules_file"`
	MetricsPrefix     string                   `mapstructure:"metrics_prefix"`
	SystemSampler     SystemSamplerConfig      `mapstructure:"system_sampler"`
	Retention         TelemetryRetentionConfig `mapstructure:"retention"`
}

// SystemSamplerConfig controls the cpu/memory sampler
type SystemSamplerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// TelemetryRetentionConfig controls telemetry purging
type TelemetryRetentionConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Schedule string        `mapstructure:"schedule"`
	MaxAge   time.Duration `mapstructure:"max_age"`
}

// TracingConfig contains OpenTelemetry configuration
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	ServiceName  string  `mapstructure:"service_name"`
	Environment  string  `mapstructure:"environment"`
	Console      bool    `mapstructure:"console"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

// Load reads .env, configs/config.yaml (or ./config.yaml) and the environment
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit config file; "" searches the default paths
func LoadFrom(path string) (*Config, error) {
	// A missing .env is fine, the process environment still applies
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Set defaults
	setDefaults(v)

	// Read environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Override specific values from env
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.path", "DATABASE_PATH")
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("monitoring.check_interval", "ALERT_CHECK_INTERVAL")
	v.BindEnv("monitoring.compute_error_rate", "ALERT_COMPUTE_ERROR_RATE")
	v.BindEnv("tracing.otlp_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("security.rate_limiting.enabled", "RATE_LIMITING_ENABLED")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Validate the configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate validates the configuration for completeness and correctness
func (c *Config) Validate() error {
	var errors []string

	// Validate server configuration
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errors = append(errors, "server.port must be between 1 and 65535")
	}
	if c.Server.Host == "" {
		errors = append(errors, "server.host is required")
	}

	// Validate database configuration
	if c.Database.Path == "" {
		errors = append(errors, "database.path is required")
	}

	// Validate authentication configuration
	if c.Auth.Enabled && (c.Auth.JWTSecret == "" || c.Auth.JWTSecret == "your-secret-key-here") {
		errors = append(errors, "auth.jwt_secret must be set to a secure value when enabled")
	}

	// Validate monitoring configuration
	if c.Monitoring.CheckInterval <= 0 {
		errors = append(errors, "monitoring.check_interval must be greater than 0")
	}
	if c.Monitoring.MetricWindow <= 0 {
		errors = append(errors, "monitoring.metric_window must be greater than 0")
	}
	if c.Monitoring.TelemetryLookback < c.Monitoring.MetricWindow {
		errors = append(errors, "monitoring.telemetry_lookback must not be shorter than monitoring.metric_window")
	}
	if c.Monitoring.SystemSampler.Enabled && c.Monitoring.SystemSampler.Interval <= 0 {
		errors = append(errors, "monitoring.system_sampler.interval must be greater than 0 when enabled")
	}
	if c.Monitoring.Retention.Enabled {
		if _, err := cron.ParseStandard(c.Monitoring.Retention.Schedule); err != nil {
			errors = append(errors, fmt.Sprintf("monitoring.retention.schedule is invalid: %v", err))
		}
		if c.Monitoring.Retention.MaxAge < c.Monitoring.TelemetryLookback {
			errors = append(errors, "monitoring.retention.max_age must not be shorter than monitoring.telemetry_lookback")
		}
	}

	// Validate security configuration
	if c.Security.RateLimiting.Enabled {
		if c.Security.RateLimiting.RequestsPerSecond <= 0 {
			errors = append(errors, "security.rate_limiting.requests_per_second must be greater than 0")
		}
		if c.Security.RateLimiting.Burst <= 0 {
			errors = append(errors, "security.rate_limiting.burst must be greater than 0")
		}
	}

	// Validate tracing configuration
	if c.Tracing.Enabled && (c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1) {
		errors = append(errors, "tracing.sample_rate must be between 0 and 1")
	}

	// If there are validation errors, return them
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.mode", "development")

	// Database defaults
	v.SetDefault("database.path", "./data/agent-dashboard.db")
	v.SetDefault("database.migrations_path", "./migrations")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.auto_migrate", true)

	// Auth defaults
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.token_expiry", 3600)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// WebSocket defaults
	v.SetDefault("websocket.ping_interval", 30)
	v.SetDefault("websocket.pong_timeout", 60)
	v.SetDefault("websocket.write_timeout", 10)

	// Security defaults
	v.SetDefault("security.enable_cors", true)
	v.SetDefault("security.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("security.rate_limiting.enabled", true)
	v.SetDefault("security.rate_limiting.requests_per_second", 20)
	v.SetDefault("security.rate_limiting.burst", 40)

	// Monitoring defaults
	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.auto_start", true)
	v.SetDefault("monitoring.check_interval", "30s")
	v.SetDefault("monitoring.metric_window", "5m")
	v.SetDefault("monitoring.telemetry_lookback", "1h")
	v.SetDefault("monitoring.compute_error_rate", false)
	v.SetDefault("monitoring.rules_file", "./configs/alert_rules.yaml")
	v.SetDefault("monitoring.metrics_prefix", "agent_dashboard")
	v.SetDefault("monitoring.system_sampler.enabled", true)
	v.SetDefault("monitoring.system_sampler.interval", "30s")
	v.SetDefault("monitoring.retention.enabled", true)
	v.SetDefault("monitoring.retention.schedule", "@hourly")
	v.SetDefault("monitoring.retention.max_age", "24h")

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "agent-dashboard-backend")
	v.SetDefault("tracing.environment", "development")
	v.SetDefault("tracing.console", false)
	v.SetDefault("tracing.sample_rate", 1.0)
}
