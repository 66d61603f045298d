// Package tracing configures the OpenTelemetry tracer provider.
package tracing

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Config selects the OTLP exporter.
type Config struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	Environment string
	Insecure    bool
}

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// Init installs a batching OTLP/HTTP tracer provider. When tracing is
// disabled the global no-op provider stays in place.
func Init(ctx context.Context, cfg Config, logger zerolog.Logger) (ShutdownFunc, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		logger.Info().Msg("Tracing disabled")
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "housing-api"
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	logger.Info().Str("endpoint", cfg.Endpoint).Str("service", serviceName).Msg("Tracing initialized")
	return tp.Shutdown, nil
}

// Tracer returns the tracer used for service spans.
func Tracer() trace.Tracer {
	return otel.Tracer("github.com/yigit/unihousing")
}

// Start opens a span named after a core operation.
func Start(ctx context.Context, operation string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, operation)
}

// End records err on span, if any, and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}
