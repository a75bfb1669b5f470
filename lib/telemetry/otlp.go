package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	exportTimeout  = 3 * time.Second
	metricInterval = 10 * time.Second
)

// buildVersion is the version of the main module, "(devel)" for local builds.
func buildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" {
		return "(devel)"
	}
	return info.Main.Version
}

func newResource(serviceName string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(buildVersion()),
		),
	)
}

// transport picks the protocol of a signal, grpc wins when both endpoints are set.
func (c OtlpConnConfig) transport() string {
	if c.GrpcEndpoint != "" {
		return "grpc"
	}
	return "http"
}

// expandedHeaders resolves ${VAR} references in header values so collector credentials can
// live in the environment instead of the config file.
func (c OtlpConnConfig) expandedHeaders() map[string]string {
	out := make(map[string]string, len(c.Headers))
	for k, v := range c.Headers {
		out[k] = os.ExpandEnv(v)
	}
	return out
}

func spanExporter(ctx context.Context, c OtlpConnConfig) (trace.SpanExporter, error) {
	ctx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()

	slog.Debug("creating span exporter", "transport", c.transport(), "headers", len(c.Headers))
	headers := c.expandedHeaders()
	switch c.transport() {
	case "grpc":
		return otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpointURL(c.GrpcEndpoint),
			otlptracegrpc.WithHeaders(headers),
		)
	default:
		return otlptracehttp.New(ctx,
			otlptracehttp.WithEndpointURL(c.HttpEndpoint),
			otlptracehttp.WithHeaders(headers),
		)
	}
}

func metricExporter(ctx context.Context, c OtlpConnConfig) (metric.Exporter, error) {
	ctx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()

	slog.Debug("creating metric exporter", "transport", c.transport(), "headers", len(c.Headers))
	headers := c.expandedHeaders()
	switch c.transport() {
	case "grpc":
		return otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpointURL(c.GrpcEndpoint),
			otlpmetricgrpc.WithHeaders(headers),
		)
	default:
		return otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpointURL(c.HttpEndpoint),
			otlpmetrichttp.WithHeaders(headers),
		)
	}
}

// providers creates the trace and metric providers of every configured signal, a signal
// without an endpoint gets a nil provider.
func providers(ctx context.Context, r *resource.Resource, config OtlpConfig) (Telemetry, error) {
	var out Telemetry

	if config.Traces.enabled() {
		exporter, err := spanExporter(ctx, config.Traces)
		if err != nil {
			return out, fmt.Errorf("traces: %w", err)
		}
		out.TracerProvider = trace.NewTracerProvider(
			trace.WithBatcher(exporter),
			trace.WithResource(r),
		)
	}

	if config.Metrics.enabled() {
		exporter, err := metricExporter(ctx, config.Metrics)
		if err != nil {
			return out, fmt.Errorf("metrics: %w", err)
		}
		out.MeterProvider = metric.NewMeterProvider(
			metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(metricInterval))),
			metric.WithResource(r),
		)
	}

	return out, nil
}
