// Package http exposes the gateway over a JSON HTTP API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vectorgate/internal/gateway"
	"github.com/fyrsmithlabs/vectorgate/internal/logging"
)

// Gateway is the subset of *gateway.Gateway served over HTTP.
type Gateway interface {
	Store(ctx context.Context, externalID string, vector []float32, payload gateway.Payload) (*gateway.StoreResult, error)
	Search(ctx context.Context, vector []float32, opts ...gateway.SearchOption) ([]gateway.Result, error)
	Delete(ctx context.Context, externalID string) (*gateway.DeleteResult, error)
}

// HealthChecker reports whether the vector engine is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Server provides HTTP endpoints for the gateway.
type Server struct {
	echo    *echo.Echo
	gateway Gateway
	health  HealthChecker
	logger  *logging.Logger
	config  *Config
	metrics *HTTPMetrics
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// BodyLimit caps request bodies, in echo's size notation.
	// Default: 50M
	BodyLimit string
}

// Option configures a Server.
type Option func(*Server)

// WithHealthChecker makes GET /health probe the engine.
func WithHealthChecker(h HealthChecker) Option {
	return func(s *Server) { s.health = h }
}

// WithMeterProvider records HTTP metrics on mp instead of the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Server) { s.metrics = NewHTTPMetrics(mp, s.logger) }
}

// NewServer creates a new HTTP server.
func NewServer(gw Gateway, logger *logging.Logger, cfg *Config, opts ...Option) (*Server, error) {
	if gw == nil {
		return nil, fmt.Errorf("gateway cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9090,
		}
	}
	if cfg.BodyLimit == "" {
		cfg.BodyLimit = "50M"
	}

	s := &Server{
		gateway: gw,
		logger:  logger,
		config:  cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewHTTPMetrics(nil, logger)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		RequestIDHandler: func(c echo.Context, id string) {
			ctx := logging.WithRequestID(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
		},
	}))
	e.Use(s.metrics.MetricsMiddleware())
	e.Use(s.requestLogger())

	s.echo = e
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	q := s.echo.Group("/qdrant")
	q.POST("/store", s.handleStore)
	q.POST("/search", s.handleSearch)
	q.DELETE("/:id", s.handleDelete)
}

// requestLogger logs one line per request. The request id reaches the log
// through the request context.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			fields := []zap.Field{
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			}
			ctx := c.Request().Context()
			if c.Path() == "/health" || c.Path() == "/metrics" {
				s.logger.Debug(ctx, "http request", fields...)
			} else {
				s.logger.Info(ctx, "http request", fields...)
			}
			return nil
		}
	}
}

// ServeHTTP lets the server be mounted or driven by httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// Start serves until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	addr := s.Addr()
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
