package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// ProviderConfig selects and configures the trace exporter installed by
// InitProvider. It mirrors the teacher's NewOTelProvider(serviceName,
// endpoint) entry point: one call at process startup wires the global
// TracerProvider that NewOtelTelemetry then reads from via otel.Tracer.
type ProviderConfig struct {
	ServiceName string
	// Exporter selects the backend: "stdout" (default, for local runs and
	// the cmd/agentrtd demo) or "otlp-http" (Endpoint defaults to
	// localhost:4318, the OTLP/HTTP port — the same protocol the teacher standardized
	// on over gRPC for smaller binary size).
	Exporter string
	Endpoint string
}

// InitProvider builds and installs a global sdktrace.TracerProvider per cfg,
// returning a shutdown func the caller must invoke before exit to flush
// pending spans. Call once per process, before any NewOtelTelemetry/
// GetGlobalTelemetry use.
func InitProvider(ctx context.Context, cfg ProviderConfig) (func(context.Context) error, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "agentrt"
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(cfg.ServiceName),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, cfg ProviderConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "", "stdout":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "otlp-http":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "localhost:4318"
		}
		return otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	default:
		return nil, fmt.Errorf("telemetry: unknown exporter %q", cfg.Exporter)
	}
}
