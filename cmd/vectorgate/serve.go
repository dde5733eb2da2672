package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vectorgate/internal/config"
	"github.com/fyrsmithlabs/vectorgate/internal/gateway"
	httpserver "github.com/fyrsmithlabs/vectorgate/internal/http"
	"github.com/fyrsmithlabs/vectorgate/internal/logging"
	"github.com/fyrsmithlabs/vectorgate/internal/telemetry"
	"github.com/fyrsmithlabs/vectorgate/internal/vectorstore"
)

// engineProbeTimeout bounds the startup health check only; gateway calls
// carry no timeout of their own.
const engineProbeTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the vectorgate HTTP API.

Configuration comes from defaults, the optional YAML file given by --config,
and environment variables such as QDRANT_URL, QDRANT_API_KEY and
QDRANT_COLLECTION, in increasing precedence.

Examples:
  # Serve against a local Qdrant
  vectorgate serve

  # Serve with the embedded engine
  ENGINE_PROVIDER=chromem CHROMEM_PATH=~/.vectorgate vectorgate serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	return cmd
}

// run starts the server and blocks until ctx is cancelled, then shuts down
// within server.shutdown_timeout.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	tel, err := telemetry.New(ctx, telemetry.FromConfig(cfg, version))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logger, err := initLogger(cfg.Observability)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if health := tel.Health(); health.Degraded {
		logger.Warn(ctx, "telemetry degraded", zap.Strings("reasons", health.Reasons))
	}

	logger.Info(ctx, "starting vectorgate",
		zap.String("version", version),
		zap.String("engine", cfg.Engine.Provider),
		zap.String("collection", cfg.Qdrant.Collection),
		zap.String("filter_policy", cfg.Gateway.FilterPolicy),
		zap.Int("port", cfg.Server.Port),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()))

	engine, err := vectorstore.NewEngine(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Warn(context.Background(), "closing engine", zap.Error(err))
		}
	}()

	probeCtx, cancel := context.WithTimeout(ctx, engineProbeTimeout)
	if err := engine.Health(probeCtx); err != nil {
		// Requests fail with engine errors until the engine answers.
		logger.Warn(ctx, "vector engine not reachable at startup", zap.Error(err))
	}
	cancel()

	gw, err := gateway.New(engine, vectorstore.GatewayConfig(cfg),
		gateway.WithLogger(logger),
		gateway.WithTracerProvider(tel.TracerProvider()),
	)
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}

	srv, err := httpserver.NewServer(gw, logger,
		&httpserver.Config{Host: cfg.Server.Host, Port: cfg.Server.Port},
		httpserver.WithHealthChecker(engine),
		httpserver.WithMeterProvider(tel.MeterProvider()),
	)
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
	}
	logger.Info(shutdownCtx, "shutdown complete")
	return errors.Join(errs...)
}

// initLogger builds the service logger. With telemetry on, entries are also
// bridged to the global OpenTelemetry log provider.
func initLogger(o config.ObservabilityConfig) (*logging.Logger, error) {
	cfg, err := loggingConfig(o)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(cfg, global.GetLoggerProvider())
}

func loggingConfig(o config.ObservabilityConfig) (*logging.Config, error) {
	cfg := logging.NewDefaultConfig()
	level, err := logging.LevelFromString(o.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", o.LogLevel, err)
	}
	cfg.Level = level
	if o.LogFormat != "" {
		cfg.Format = o.LogFormat
	}
	if o.ServiceName != "" {
		cfg.Fields["service"] = o.ServiceName
	}
	cfg.Output.OTEL = o.Telemetry
	return cfg, nil
}
