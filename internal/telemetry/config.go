package telemetry

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/fyrsmithlabs/vectorgate/internal/config"
)

// Exporter protocols.
const (
	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http/protobuf"
)

// Config holds telemetry configuration.
type Config struct {
	Enabled        bool
	Endpoint       string
	Protocol       string
	ServiceName    string
	ServiceVersion string
	Insecure       bool // plaintext export, local endpoints only
	Engine         string
	Collection     string
	Sampling       SamplingConfig
	Metrics        MetricsConfig
	Shutdown       ShutdownConfig
}

// SamplingConfig controls trace sampling.
type SamplingConfig struct {
	Rate float64 // 0.0-1.0
}

// MetricsConfig controls OTLP metric export.
type MetricsConfig struct {
	Enabled        bool
	ExportInterval config.Duration
}

// ShutdownConfig bounds provider shutdown.
type ShutdownConfig struct {
	Timeout config.Duration
}

// NewDefaultConfig returns defaults. Telemetry is off until enabled.
func NewDefaultConfig() *Config {
	return &Config{
		Enabled:        false,
		Endpoint:       "localhost:4317",
		Protocol:       ProtocolGRPC,
		ServiceName:    "vectorgate",
		ServiceVersion: "dev",
		Insecure:       true,
		Sampling:       SamplingConfig{Rate: 1.0},
		Metrics: MetricsConfig{
			Enabled:        true,
			ExportInterval: config.Duration(15 * time.Second),
		},
		Shutdown: ShutdownConfig{
			Timeout: config.Duration(5 * time.Second),
		},
	}
}

// FromConfig derives telemetry settings from the service config. The engine
// provider and collection become resource attributes. Plaintext export is
// used for local collectors only.
func FromConfig(c *config.Config, version string) *Config {
	o := c.Observability
	cfg := NewDefaultConfig()
	cfg.Engine = c.Engine.Provider
	cfg.Collection = c.Qdrant.Collection
	cfg.Enabled = o.Telemetry
	if o.OTLPEndpoint != "" {
		cfg.Endpoint = o.OTLPEndpoint
	}
	if o.OTLPProtocol != "" {
		cfg.Protocol = o.OTLPProtocol
	}
	if o.ServiceName != "" {
		cfg.ServiceName = o.ServiceName
	}
	if version != "" {
		cfg.ServiceVersion = version
	}
	cfg.Sampling.Rate = o.SamplingRate
	cfg.Insecure = cfg.isLocalEndpoint()
	return cfg
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required when telemetry is enabled")
	}
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required when telemetry is enabled")
	}
	switch c.Protocol {
	case "", ProtocolGRPC, ProtocolHTTP:
	default:
		return fmt.Errorf("unsupported protocol %q (want %s or %s)", c.Protocol, ProtocolGRPC, ProtocolHTTP)
	}
	if c.Insecure && !c.isLocalEndpoint() {
		return fmt.Errorf("insecure connections to remote endpoints are not allowed; use TLS or a local endpoint")
	}
	if c.Sampling.Rate < 0 || c.Sampling.Rate > 1 {
		return fmt.Errorf("sampling rate must be between 0 and 1, got %f", c.Sampling.Rate)
	}
	if c.Metrics.Enabled && c.Metrics.ExportInterval.Duration() <= 0 {
		return fmt.Errorf("metrics export interval must be positive when metrics enabled")
	}
	if c.Shutdown.Timeout.Duration() <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}

func (c *Config) isLocalEndpoint() bool {
	host := stripScheme(c.Endpoint)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
