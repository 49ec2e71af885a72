package tracing

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/frostdev-ops/agent-dashboard-backend/internal/config"
)

// Tracer owns the process tracer provider. A disabled Tracer hands out the
// global no-op tracer and has nothing to flush.
type Tracer struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	logger   *logrus.Logger
}

// NewTracer installs a tracer provider exporting to OTLP/HTTP and/or stdout
func NewTracer(cfg config.TracingConfig, serviceVersion string, logger *logrus.Logger) (*Tracer, error) {
	if !cfg.Enabled {
		return &Tracer{tracer: otel.Tracer(cfg.ServiceName), logger: logger}, nil
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(serviceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
	}

	if cfg.OTLPEndpoint != "" {
		exporter, err := otlptracehttp.New(context.Background(), otlptracehttp.WithEndpoint(cfg.OTLPEndpoint))
		if err != nil {
			logger.WithError(err).Warn("Failed to create OTLP exporter")
		} else {
			opts = append(opts, sdktrace.WithBatcher(exporter))
		}
	}

	if cfg.Console || cfg.OTLPEndpoint == "" {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create console exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	provider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.WithFields(logrus.Fields{
		"service":     cfg.ServiceName,
		"otlp":        cfg.OTLPEndpoint,
		"console":     cfg.Console,
		"sample_rate": cfg.SampleRate,
	}).Info("Tracing enabled")

	return &Tracer{
		tracer:   provider.Tracer(cfg.ServiceName),
		provider: provider,
		logger:   logger,
	}, nil
}

// Tracer returns the tracer components should start spans on
func (t *Tracer) Tracer() trace.Tracer {
	return t.tracer
}

// Enabled reports whether spans are exported
func (t *Tracer) Enabled() bool {
	return t.provider != nil
}

// Shutdown flushes pending spans
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	if err := t.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown tracer provider: %w", err)
	}
	return nil
}
