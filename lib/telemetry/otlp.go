package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type OtlpConnConfig struct {
	HttpEndpoint string            `json:"http_endpoint" yaml:"http_endpoint"`
	Headers      map[string]string `json:"headers" yaml:"headers"`
}

type OtlpConfig struct {
	Traces  OtlpConnConfig `json:"traces" yaml:"traces"`
	Metrics OtlpConnConfig `json:"metrics" yaml:"metrics"`
}

type Config struct {
	Otlp OtlpConfig `json:"otlp" yaml:"otlp"`
}

// Telemetry holds the providers installed by Setup, either may be nil
// when its endpoint was left unconfigured.
type Telemetry struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
}

func (t Telemetry) Shutdown(ctx context.Context) error {
	errlist := []error{}
	if t.TracerProvider != nil {
		err := t.TracerProvider.Shutdown(ctx)
		if err != nil {
			errlist = append(errlist, err)
		}
	}
	if t.MeterProvider != nil {
		err := t.MeterProvider.Shutdown(ctx)
		if err != nil {
			errlist = append(errlist, err)
		}
	}
	return errors.Join(errlist...)
}

// Setup installs global otel tracer and meter providers exporting over
// OTLP/HTTP. Signals without an endpoint keep the otel no-op providers.
func Setup(ctx context.Context, serviceName string, config Config) (Telemetry, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*15)
	defer cancel()

	r, err := newResource(serviceName)
	if err != nil {
		return Telemetry{}, err
	}

	out := Telemetry{}
	if config.Otlp.Traces.HttpEndpoint != "" {
		out.TracerProvider, err = newTraceProvider(ctx, r, config.Otlp.Traces)
		if err != nil {
			return Telemetry{}, err
		}
		otel.SetTracerProvider(out.TracerProvider)
	}
	if config.Otlp.Metrics.HttpEndpoint != "" {
		out.MeterProvider, err = newMetricProvider(ctx, r, config.Otlp.Metrics)
		if err != nil {
			return Telemetry{}, err
		}
		otel.SetMeterProvider(out.MeterProvider)
	}

	return out, nil
}

func newResource(serviceName string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
}

func newTraceProvider(ctx context.Context, r *resource.Resource, c OtlpConnConfig) (*trace.TracerProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*3)
	defer cancel()

	slog.Info(
		"tracer export initialized",
		"type", "http",
		"endpoint", c.HttpEndpoint,
		"headers", len(c.Headers) > 0,
	)
	exporter, err := otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpointURL(c.HttpEndpoint),
		otlptracehttp.WithHeaders(c.Headers),
	)
	if err != nil {
		return nil, err
	}

	traceProvider := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(r),
	)
	return traceProvider, nil
}

func newMetricProvider(ctx context.Context, r *resource.Resource, c OtlpConnConfig) (*metric.MeterProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*3)
	defer cancel()

	slog.Info(
		"metric exporter initialized",
		"type", "http",
		"endpoint", c.HttpEndpoint,
		"headers", len(c.Headers) > 0,
	)
	exporter, err := otlpmetrichttp.New(
		ctx,
		otlpmetrichttp.WithEndpointURL(c.HttpEndpoint),
		otlpmetrichttp.WithHeaders(c.Headers),
	)
	if err != nil {
		return nil, err
	}

	provider := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(time.Second*5))),
		metric.WithResource(r),
	)
	return provider, nil
}
