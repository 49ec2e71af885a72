package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frostdev-ops/agent-dashboard-backend/internal/api"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/api/handlers"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/api/middleware"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/config"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/alerting"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/metrics"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/monitor"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/telemetry"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/database"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/tracing"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/websocket"
	"github.com/frostdev-ops/agent-dashboard-backend/pkg/logger"
	"github.com/frostdev-ops/agent-dashboard-backend/pkg/version"
)

func main() {
	configPath := flag.String("config", "", "path to the config file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetFullVersion())
		return
	}

	// Load configuration
	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	log.WithField("version", version.GetVersion()).Info("Starting agent dashboard backend")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	tracer, err := tracing.NewTracer(cfg.Tracing, version.GetVersion(), log.Logger)
	if err != nil {
		log.Fatal("Failed to initialize tracing:", err)
	}

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db.DB, cfg.Database.MigrationsPath); err != nil {
			log.Fatal("Failed to run migrations:", err)
		}
	}

	collector := metrics.NewPrometheusCollector(&metrics.MetricsConfig{
		Enabled: true,
		Prefix:  cfg.Monitoring.MetricsPrefix,
	})

	repos := database.NewRepositories(db, database.RepositoryOptions{
		TelemetryLookback: cfg.Monitoring.TelemetryLookback,
		MetricWindow:      cfg.Monitoring.MetricWindow,
		Queries:           collector,
	}, log.Logger)

	seeded, err := database.SeedAlertRules(ctx, repos.AlertRules, cfg.Monitoring.RulesFile, log.Logger)
	if err != nil {
		log.WithError(err).Warn("Failed to seed alert rules")
	} else if seeded > 0 {
		log.WithField("rules", seeded).Info("Seeded alert rules")
	}

	// Alert store, live updates and the monitoring loop
	store := alerting.NewStore(nil)
	collector.ObserveStore(store)

	wsHub := websocket.NewHub(websocket.HubConfig{
		PingInterval:   time.Duration(cfg.WebSocket.PingInterval) * time.Second,
		PongTimeout:    time.Duration(cfg.WebSocket.PongTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.WebSocket.WriteTimeout) * time.Second,
		AllowedOrigins: cfg.Security.AllowedOrigins,
	}, collector, log.Logger)
	wsHub.ObserveStore(store)
	go wsHub.Run(ctx)

	alertMonitor := alerting.NewMonitor(store, repos.AlertRules, repos.Telemetry, &alerting.MonitorConfig{
		Interval: cfg.Monitoring.CheckInterval,
		Evaluator: &alerting.MetricEvaluator{
			Window:           cfg.Monitoring.MetricWindow,
			ComputeErrorRate: cfg.Monitoring.ComputeErrorRate,
		},
		Metrics: collector,
		Tracer:  tracer.Tracer(),
	}, log.Logger)

	recorder := telemetry.NewCountingRecorder(repos.Telemetry, collector.RecordTelemetrySample)

	// Background sampler and retention
	serviceConfig := monitor.DefaultServiceConfig()
	serviceConfig.SamplerEnabled = cfg.Monitoring.SystemSampler.Enabled
	serviceConfig.SamplerInterval = cfg.Monitoring.SystemSampler.Interval
	serviceConfig.RetentionEnabled = cfg.Monitoring.Retention.Enabled
	serviceConfig.RetentionSchedule = cfg.Monitoring.Retention.Schedule
	serviceConfig.RetentionMaxAge = cfg.Monitoring.Retention.MaxAge

	resources := monitor.NewResourceMonitor(log.Logger)
	monitorService := monitor.NewService(serviceConfig, resources, recorder, repos.Telemetry, collector, log.Logger)
	if err := monitorService.Start(); err != nil {
		log.Fatal("Failed to start monitoring service:", err)
	}

	healthChecker := metrics.NewDefaultHealthChecker()
	healthChecker.SetDatabaseChecker(func() metrics.HealthStatus {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			return metrics.NewHealthStatus("unhealthy", "Database is unreachable").
				WithDetail("error", err.Error())
		}
		return metrics.NewHealthStatus("healthy", "Database is reachable")
	})
	healthChecker.SetMonitoringChecker(func() metrics.HealthStatus {
		return metrics.AlertMonitoringHealth(alertMonitor.Status(), cfg.Monitoring.CheckInterval, time.Now())
	})
	healthChecker.SetSystemResourceChecker(monitorService.SystemResourceHealth)
	healthChecker.RegisterCustomCheck("websocket", func() metrics.HealthStatus {
		return metrics.NewHealthStatus("healthy", "Live updates available").
			WithDetail("clients", wsHub.GetClientCount())
	})

	var rateLimiter *middleware.RateLimiter
	if cfg.Security.RateLimiting.Enabled {
		rateLimiter = middleware.NewRateLimiter(cfg.Security.RateLimiting.RequestsPerSecond, cfg.Security.RateLimiting.Burst)
		go rateLimiter.Run(ctx)
	}

	go log.RunFlusher(ctx, 30*time.Second)

	h := handlers.NewHandlers(cfg, repos, handlers.Services{
		Monitor:   alertMonitor,
		Recorder:  recorder,
		Health:    healthChecker,
		Resources: resources,
		Hub:       wsHub,
		Metrics:   collector.Handler(),
	}, log.Logger)

	// Initialize router
	router := api.NewRouter(cfg, h, api.RouterOptions{
		Logger:      log,
		Collector:   collector,
		Tracer:      tracer.Tracer(),
		RateLimiter: rateLimiter,
		Hub:         wsHub,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		log.Infof("Starting agent dashboard backend on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	if cfg.Monitoring.Enabled && cfg.Monitoring.AutoStart {
		if err := alertMonitor.RulesChanged(ctx); err != nil {
			log.WithError(err).Warn("Failed to start alert monitoring")
		}
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Server forced to shutdown")
	}

	if err := alertMonitor.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Alert monitor did not stop cleanly")
	}

	if err := monitorService.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("Monitoring service did not stop cleanly")
	}

	// stops the hub, rate limiter and log flusher
	stop()

	if err := tracer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Failed to flush traces")
	}

	log.FlushPending()
	log.Info("Server exited")
}
