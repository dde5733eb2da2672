// Package telemetry wires OpenTelemetry tracing and metrics for vectorgate.
//
// Telemetry is off by default. When enabled, spans and metrics are exported
// over OTLP (gRPC or HTTP) and the providers are installed globally so that
// instrumentation in other packages picks them up. The resource names the
// engine provider and collection the instance serves.
//
//	tel, err := telemetry.New(ctx, telemetry.FromConfig(cfg, version))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
// Exporter failures never stop the service. The instance is marked degraded
// and falls back to the global no-op providers.
//
// Tests use TestTelemetry, which records spans in memory:
//
//	tt := telemetry.NewTestTelemetry()
//	gw, _ := gateway.New(engine, cfg, gateway.WithTracerProvider(tt.TracerProvider()))
//	...
//	tt.AssertSpanExists(t, "Gateway.Store")
package telemetry
