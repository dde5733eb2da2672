package telemetry

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Instrumentation scopes used across vectorgate.
const (
	ScopeGateway = "github.com/fyrsmithlabs/vectorgate/internal/gateway"
	ScopeHTTP    = "github.com/fyrsmithlabs/vectorgate/internal/http"
	ScopeQdrant  = "github.com/fyrsmithlabs/vectorgate/internal/qdrant"
	ScopeChromem = "github.com/fyrsmithlabs/vectorgate/internal/vectorstore"
)

// Resource attribute keys describing which engine and collection this
// instance serves.
const (
	AttrEngine     = attribute.Key("vectorgate.engine")
	AttrCollection = attribute.Key("vectorgate.collection")
)

// newResource identifies the process to the collector. Two gateways in front
// of different collections are told apart by vectorgate.collection.
func newResource(cfg *Config) *resource.Resource {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		attrs = append(attrs, attribute.String("service.instance.id", host))
	}
	if cfg.Engine != "" {
		attrs = append(attrs, AttrEngine.String(cfg.Engine))
	}
	if cfg.Collection != "" {
		attrs = append(attrs, AttrCollection.String(cfg.Collection))
	}
	return resource.NewWithAttributes(semconv.SchemaURL, attrs...)
}

func newSpanExporter(ctx context.Context, cfg *Config) (trace.SpanExporter, error) {
	if cfg.Protocol == ProtocolHTTP {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(stripScheme(cfg.Endpoint))}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	}
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return otlptracegrpc.New(ctx, opts...)
}

// cumulative keeps counters monotonic for Prometheus-style backends
// regardless of OTEL_EXPORTER_OTLP_METRICS_TEMPORALITY_PREFERENCE.
func cumulative(metric.InstrumentKind) metricdata.Temporality {
	return metricdata.CumulativeTemporality
}

func newMetricExporter(ctx context.Context, cfg *Config) (metric.Exporter, error) {
	if cfg.Protocol == ProtocolHTTP {
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(stripScheme(cfg.Endpoint)),
			otlpmetrichttp.WithTemporalitySelector(cumulative),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)
	}
	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
		otlpmetricgrpc.WithTemporalitySelector(cumulative),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	return otlpmetricgrpc.New(ctx, opts...)
}

func newTracerProvider(ctx context.Context, cfg *Config, res *resource.Resource) (*trace.TracerProvider, error) {
	exporter, err := newSpanExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating %s trace exporter for %s: %w", cfg.Protocol, cfg.Endpoint, err)
	}
	return trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(newSampler(cfg.Sampling.Rate)),
	), nil
}

// newMeterProvider returns nil when OTLP metric export is off; the HTTP
// instruments then fall back to the global provider.
func newMeterProvider(ctx context.Context, cfg *Config, res *resource.Resource) (*metric.MeterProvider, error) {
	if !cfg.Metrics.Enabled {
		return nil, nil
	}
	exporter, err := newMetricExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating %s metric exporter for %s: %w", cfg.Protocol, cfg.Endpoint, err)
	}
	reader := metric.NewPeriodicReader(exporter, metric.WithInterval(cfg.Metrics.ExportInterval.Duration()))
	return metric.NewMeterProvider(metric.WithResource(res), metric.WithReader(reader)), nil
}

// newSampler follows the parent's decision and samples root spans at rate.
func newSampler(rate float64) trace.Sampler {
	switch {
	case rate >= 1:
		return trace.ParentBased(trace.AlwaysSample())
	case rate <= 0:
		return trace.ParentBased(trace.NeverSample())
	default:
		return trace.ParentBased(trace.TraceIDRatioBased(rate))
	}
}

// stripScheme turns a URL into the host:port the HTTP exporters expect.
func stripScheme(endpoint string) string {
	for _, scheme := range []string{"https://", "http://"} {
		endpoint = strings.TrimPrefix(endpoint, scheme)
	}
	return endpoint
}
