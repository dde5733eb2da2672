package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Telemetry holds the providers handed to the gateway and the HTTP server.
//
// An exporter that cannot be built leaves the instance degraded: the
// affected signal falls back to the global provider and the service starts
// anyway.
type Telemetry struct {
	config *Config

	tracerProvider *trace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider

	closed atomic.Bool

	mu      sync.Mutex
	reasons []string
}

// New validates cfg and builds the providers. With telemetry disabled the
// returned instance hands out the global no-op providers.
func New(ctx context.Context, cfg *Config) (*Telemetry, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}

	t := &Telemetry{config: cfg}
	if !cfg.Enabled {
		return t, nil
	}

	res := newResource(cfg)

	if tp, err := newTracerProvider(ctx, cfg, res); err != nil {
		t.degrade(err)
	} else {
		t.tracerProvider = tp
		otel.SetTracerProvider(tp)
	}

	if mp, err := newMeterProvider(ctx, cfg, res); err != nil {
		t.degrade(err)
	} else if mp != nil {
		t.meterProvider = mp
		otel.SetMeterProvider(mp)
	}

	// Engine spans join traces started by HTTP callers.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return t, nil
}

// TracerProvider returns the SDK tracer provider, or the global one when
// tracing is off.
func (t *Telemetry) TracerProvider() oteltrace.TracerProvider {
	if t == nil || t.tracerProvider == nil {
		return otel.GetTracerProvider()
	}
	return t.tracerProvider
}

// MeterProvider returns the SDK meter provider, or the global one.
func (t *Telemetry) MeterProvider() metric.MeterProvider {
	if t == nil || t.meterProvider == nil {
		return otel.GetMeterProvider()
	}
	return t.meterProvider
}

// Tracer returns a tracer for scope, one of the Scope constants.
func (t *Telemetry) Tracer(scope string) oteltrace.Tracer {
	return t.TracerProvider().Tracer(scope)
}

// Meter returns a meter for scope.
func (t *Telemetry) Meter(scope string) metric.Meter {
	return t.MeterProvider().Meter(scope)
}

// Shutdown flushes pending spans and metrics. Without a deadline on ctx the
// configured shutdown timeout applies.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil || t.closed.Swap(true) {
		return nil
	}

	if _, ok := ctx.Deadline(); !ok && t.config != nil && t.config.Shutdown.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.Shutdown.Timeout.Duration())
		defer cancel()
	}

	var errs []error
	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("trace provider shutdown: %w", err))
		}
	}
	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

// HealthStatus reports whether telemetry is exporting.
type HealthStatus struct {
	// Exporting is true while telemetry is enabled and not shut down.
	Exporting bool
	Degraded  bool
	Reasons   []string
}

// Health returns the current status. A nil Telemetry reports degraded.
func (t *Telemetry) Health() HealthStatus {
	if t == nil {
		return HealthStatus{Degraded: true, Reasons: []string{"telemetry not initialized"}}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return HealthStatus{
		Exporting: t.config != nil && t.config.Enabled && !t.closed.Load(),
		Degraded:  len(t.reasons) > 0,
		Reasons:   append([]string(nil), t.reasons...),
	}
}

func (t *Telemetry) degrade(err error) {
	t.mu.Lock()
	t.reasons = append(t.reasons, err.Error())
	t.mu.Unlock()
}
