package handlers

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/agent-dashboard-backend/internal/config"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/alerting"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/metrics"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/monitor"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/telemetry"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/database"
	"github.com/frostdev-ops/agent-dashboard-backend/internal/websocket"
)

// ResourceReporter describes the host the backend runs on
type ResourceReporter interface {
	Report(ctx context.Context) (*monitor.ResourceReport, error)
}

// Services groups the runtime components the handlers drive. Any field but
// Monitor may be nil.
type Services struct {
	Monitor   *alerting.Monitor
	Recorder  telemetry.Recorder
	Health    metrics.HealthChecker
	Resources ResourceReporter
	Hub       *websocket.Hub
	Metrics   http.Handler
}

// Handlers holds all HTTP handlers and their dependencies
type Handlers struct {
	cfg       *config.Config
	repos     *database.Repositories
	log       *logrus.Logger
	monitor   *alerting.Monitor
	store     *alerting.Store
	recorder  telemetry.Recorder
	health    metrics.HealthChecker
	resources ResourceReporter
	wsHub     *websocket.Hub
	metrics   http.Handler
}

// NewHandlers creates a new handlers instance
func NewHandlers(cfg *config.Config, repos *database.Repositories, svc Services, logger *logrus.Logger) *Handlers {
	recorder := svc.Recorder
	if recorder == nil && repos != nil {
		recorder = repos.Telemetry
	}

	return &Handlers{
		cfg:       cfg,
		repos:     repos,
		log:       logger,
		monitor:   svc.Monitor,
		store:     svc.Monitor.Store(),
		recorder:  recorder,
		health:    svc.Health,
		resources: svc.Resources,
		wsHub:     svc.Hub,
		metrics:   svc.Metrics,
	}
}
