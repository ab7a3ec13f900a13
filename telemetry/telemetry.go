// Package telemetry provides the Telemetry/Span abstraction the agent
// runtime uses to emit the boundary events named in the specification:
// agent_server.signal.{start,stop,exception},
// agent_server.directive.{start,stop,exception}, agent_server.queue.overflow.
//
// It mirrors the teacher framework's progressive-disclosure telemetry API
// (a Counter/Histogram/Gauge surface backed by a process-wide registry, plus
// a Span interface for tracing) but trimmed to what the runtime core needs:
// no HTTP instrumentation, no circuit-breaker-specific emitters.
package telemetry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Span is a started tracing span; End must always be called.
type Span interface {
	SetAttribute(key string, value interface{})
	RecordError(err error)
	End()
}

// Telemetry is the interface every package in the runtime depends on to
// emit spans and metrics. NoOpTelemetry satisfies it with zero overhead for
// callers that never configured a backend.
type Telemetry interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
	Counter(name string, labels ...string)
	Histogram(name string, value float64, labels ...string)
	Gauge(name string, value float64, labels ...string)
}

// NoOpTelemetry discards everything. It is the default on every component
// until a real backend is wired in, the same way core.NoOpLogger is the
// default logger in the teacher framework.
type NoOpTelemetry struct{}

func (NoOpTelemetry) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, noopSpan{}
}
func (NoOpTelemetry) Counter(string, ...string)            {}
func (NoOpTelemetry) Histogram(string, float64, ...string) {}
func (NoOpTelemetry) Gauge(string, float64, ...string)     {}

type noopSpan struct{}

func (noopSpan) SetAttribute(string, interface{}) {}
func (noopSpan) RecordError(error)                {}
func (noopSpan) End()                             {}

// OtelTelemetry implements Telemetry on top of a configured OpenTelemetry
// TracerProvider/MeterProvider. Construct it once per process with
// NewOtelTelemetry and share it across agent servers.
type OtelTelemetry struct {
	tracer  trace.Tracer
	meter   metric.Meter
	mu      sync.Mutex
	counter map[string]metric.Float64Counter
	hist    map[string]metric.Float64Histogram
	gauge   map[string]metric.Float64Gauge
}

// NewOtelTelemetry builds an OtelTelemetry using the global otel providers
// (otel.Tracer/otel.Meter), matching how the teacher's telemetry.Initialize
// wires into process-wide otel state rather than holding its own provider.
func NewOtelTelemetry(instrumentationName string) *OtelTelemetry {
	return &OtelTelemetry{
		tracer:  otel.Tracer(instrumentationName),
		meter:   otel.Meter(instrumentationName),
		counter: make(map[string]metric.Float64Counter),
		hist:    make(map[string]metric.Float64Histogram),
		gauge:   make(map[string]metric.Float64Gauge),
	}
}

func (t *OtelTelemetry) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name)
	return ctx, &otelSpan{span: span}
}

type otelSpan struct{ span trace.Span }

func (s *otelSpan) SetAttribute(key string, value interface{}) {
	s.span.SetAttributes(attribute.String(key, toString(value)))
}
func (s *otelSpan) RecordError(err error) {
	if err != nil {
		s.span.RecordError(err)
	}
}
func (s *otelSpan) End() { s.span.End() }

func toString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case error:
		return x.Error()
	default:
		return fmt.Sprint(x)
	}
}

func (t *OtelTelemetry) Counter(name string, labels ...string) {
	t.mu.Lock()
	c, ok := t.counter[name]
	if !ok {
		var err error
		c, err = t.meter.Float64Counter(name)
		if err != nil {
			t.mu.Unlock()
			return
		}
		t.counter[name] = c
	}
	t.mu.Unlock()
	c.Add(context.Background(), 1, metric.WithAttributes(labelsToAttrs(labels)...))
}

func (t *OtelTelemetry) Histogram(name string, value float64, labels ...string) {
	t.mu.Lock()
	h, ok := t.hist[name]
	if !ok {
		var err error
		h, err = t.meter.Float64Histogram(name)
		if err != nil {
			t.mu.Unlock()
			return
		}
		t.hist[name] = h
	}
	t.mu.Unlock()
	h.Record(context.Background(), value, metric.WithAttributes(labelsToAttrs(labels)...))
}

func (t *OtelTelemetry) Gauge(name string, value float64, labels ...string) {
	t.mu.Lock()
	g, ok := t.gauge[name]
	if !ok {
		var err error
		g, err = t.meter.Float64Gauge(name)
		if err != nil {
			t.mu.Unlock()
			return
		}
		t.gauge[name] = g
	}
	t.mu.Unlock()
	g.Record(context.Background(), value, metric.WithAttributes(labelsToAttrs(labels)...))
}

func labelsToAttrs(labels []string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(labels)/2)
	for i := 0; i+1 < len(labels); i += 2 {
		attrs = append(attrs, attribute.String(labels[i], labels[i+1]))
	}
	return attrs
}

// ─── Global metrics registry ───────────────────────────────────────────────
//
// Mirrors the teacher's GetGlobalMetricsRegistry()/registry.Counter(...)
// pattern used throughout core/agent.go: components that don't hold a direct
// Telemetry reference (e.g. free functions, package-level helpers used from
// tests) can still emit through the process-wide registry.

var globalRegistry atomic.Value // stores Telemetry

// SetGlobalTelemetry installs the process-wide Telemetry backend.
func SetGlobalTelemetry(t Telemetry) {
	globalRegistry.Store(t)
}

// GetGlobalTelemetry returns the process-wide Telemetry backend, or
// NoOpTelemetry if none was installed.
func GetGlobalTelemetry() Telemetry {
	v := globalRegistry.Load()
	if v == nil {
		return NoOpTelemetry{}
	}
	return v.(Telemetry)
}

// TimeOperation starts a timer and returns a func that records the elapsed
// milliseconds as a histogram when called (typically via defer), matching
// the teacher's telemetry.TimeOperation convenience helper.
func TimeOperation(name string, labels ...string) func() {
	start := time.Now()
	return func() {
		GetGlobalTelemetry().Histogram(name, float64(time.Since(start).Milliseconds()), labels...)
	}
}
