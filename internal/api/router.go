package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/frostdev-ops/agent-dashboard-backend/internal/api/handlers"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/api/middleware"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/config"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/metrics"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/websocket"
	"github.com/frostdev-ops/agent-dashboard-backend/pkg/logger"
	"github.com/frostdev-ops/agent-dashboard-backend/pkg/utils"
)

// RouterOptions carries the cross-cutting components the middleware uses.
// Collector, Tracer, RateLimiter and Hub may be nil.
type RouterOptions struct {
	Logger      *logger.BatchLogger
	Collector   metrics.MetricsCollector
	Tracer      trace.Tracer
	RateLimiter *middleware.RateLimiter
	Hub         *websocket.Hub
}

// NewRouter creates and configures the main HTTP router
func NewRouter(cfg *config.Config, h *handlers.Handlers, opts RouterOptions) *gin.Engine {
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	log := opts.Logger.Logger

	// Global middleware
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.ErrorHandlingMiddleware(log))
	router.Use(middleware.ErrorResponseMiddleware(log))
	if opts.Tracer != nil {
		router.Use(middleware.TracingMiddleware(opts.Tracer))
	}
	if opts.Collector != nil {
		router.Use(middleware.MetricsMiddleware(opts.Collector))
	}
	router.Use(middleware.LoggingMiddleware(opts.Logger))
	if cfg.Security.EnableCORS {
		router.Use(middleware.CORSMiddleware(cfg.Security.AllowedOrigins))
	}
	if opts.RateLimiter != nil {
		router.Use(opts.RateLimiter.RateLimitMiddleware())
	}

	router.NoRoute(func(c *gin.Context) {
		utils.SendError(c, http.StatusNotFound, "Endpoint not found")
	})

	// Public routes
	router.GET("/health", h.Health)
	router.GET("/metrics", h.Metrics)
	if opts.Hub != nil {
		router.GET("/ws", websocket.HandleWebSocketGin(opts.Hub))
	}

	api := router.Group("/api/v1")
	api.Use(middleware.OptionalAuth(cfg.Auth.Enabled, cfg.Auth.JWTSecret))
	{
		api.GET("/version", h.GetVersion)

		alerts := api.Group("/alerts")
		{
			alerts.GET("", h.GetAlerts)
			alerts.GET("/history", h.GetAlertHistory)
			alerts.GET("/history/export", h.ExportAlertHistory)
			alerts.GET("/summary", h.GetAlertSummary)
			alerts.POST("/clear", h.ClearAlerts)
			alerts.POST("/:id/acknowledge", h.AcknowledgeAlert)
			alerts.POST("/:id/resolve", h.ResolveAlert)
		}

		rules := api.Group("/alert-rules")
		{
			rules.GET("", h.GetAlertRules)
			rules.POST("", h.CreateAlertRule)
			rules.GET("/:id", h.GetAlertRule)
			rules.PUT("/:id", h.UpdateAlertRule)
			rules.DELETE("/:id", h.DeleteAlertRule)
		}

		monitoring := api.Group("/monitoring")
		{
			monitoring.GET("/status", h.GetMonitoringStatus)
			monitoring.POST("/start", h.StartMonitoring)
			monitoring.POST("/stop", h.StopMonitoring)
			monitoring.POST("/check", h.CheckAlertRules)
		}

		telemetry := api.Group("/telemetry")
		{
			telemetry.POST("/execution-logs", h.RecordExecutionLog)
			telemetry.POST("/performance-logs", h.RecordPerformanceLog)
			telemetry.POST("/error-logs", h.RecordErrorLog)
			telemetry.POST("/system-metrics", h.RecordSystemMetric)
		}

		system := api.Group("/system")
		{
			system.GET("/resources", h.GetSystemResources)
			system.GET("/websocket", h.GetWebSocketStats)
		}
	}

	return router
}
