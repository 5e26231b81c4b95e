// Package telemetry bootstraps OpenTelemetry for the storefront client.
// Spans go to an OTLP gRPC collector when an endpoint is configured, to
// stdout otherwise. When telemetry is disabled every operation is a no-op,
// so callers never branch on whether it is on.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/lumiere-shop/storefront/core"
)

const instrumentationName = "lumiere-storefront"

// Provider implements core.Telemetry over the OpenTelemetry SDK
type Provider struct {
	traceProvider *sdktrace.TracerProvider
	tracer        trace.Tracer
	meter         metric.Meter
	enabled       bool
}

// Init creates a telemetry provider from configuration. A disabled
// configuration yields a working no-op provider.
func Init(cfg *core.Config) (*Provider, error) {
	if cfg == nil || !cfg.Telemetry.Enabled {
		return &Provider{}, nil
	}

	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = cfg.Name
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			attribute.String("lumiere.client.name", cfg.Name),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating telemetry resource: %w", err)
	}

	traceProvider, err := newTraceProvider(res, cfg.Telemetry)
	if err != nil {
		return nil, err
	}

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return &Provider{
		traceProvider: traceProvider,
		tracer:        traceProvider.Tracer(instrumentationName),
		meter:         otel.GetMeterProvider().Meter(instrumentationName),
		enabled:       true,
	}, nil
}

func newTraceProvider(res *resource.Resource, cfg core.TelemetryConfig) (*sdktrace.TracerProvider, error) {
	if cfg.Endpoint == "" {
		// Development setup: human-readable spans on stdout
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("creating stdout trace exporter: %w", err)
		}
		return sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		), nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP trace exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	), nil
}

// StartSpan begins a span. Disabled providers return the context unchanged
// and a no-op span.
func (p *Provider) StartSpan(ctx context.Context, name string) (context.Context, core.Span) {
	if !p.enabled {
		return ctx, &core.NoOpSpan{}
	}
	ctx, otelSpan := p.tracer.Start(ctx, name)
	return ctx, &span{otel: otelSpan}
}

// RecordMetric adds value to a float64 counter with the given labels
func (p *Provider) RecordMetric(name string, value float64, labels map[string]string) {
	if !p.enabled {
		return
	}
	counter, err := p.meter.Float64Counter(name)
	if err != nil {
		return
	}
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		attrs = append(attrs, attribute.String(k, v))
	}
	counter.Add(context.Background(), value, metric.WithAttributes(attrs...))
}

// Shutdown flushes pending spans and stops the trace provider
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.traceProvider == nil {
		return nil
	}
	return p.traceProvider.Shutdown(ctx)
}

// span adapts an OTEL span to core.Span
type span struct {
	otel trace.Span
}

func (s *span) End() {
	s.otel.End()
}

func (s *span) SetAttribute(key string, value interface{}) {
	switch v := value.(type) {
	case string:
		s.otel.SetAttributes(attribute.String(key, v))
	case bool:
		s.otel.SetAttributes(attribute.Bool(key, v))
	case int:
		s.otel.SetAttributes(attribute.Int(key, v))
	case int64:
		s.otel.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.otel.SetAttributes(attribute.Float64(key, v))
	default:
		s.otel.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

func (s *span) RecordError(err error) {
	if err == nil {
		return
	}
	s.otel.RecordError(err)
}
