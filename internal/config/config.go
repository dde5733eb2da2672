// Package config loads vectorgate configuration from defaults, an optional
// YAML file and environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Engine providers.
const (
	ProviderQdrant  = "qdrant"
	ProviderChromem = "chromem"
)

// Filter policies for custom search filters.
//
// FilterPolicyAnd, the default, keeps hidden records hidden even when the
// caller sends its own filter. FilterPolicyReplace lets a custom filter
// replace the visibility check, so a category filter also finds records
// with allow_reference=false. Clients written against the replace
// behaviour need filter_policy: replace.
const (
	FilterPolicyAnd     = "and"
	FilterPolicyReplace = "replace"
)

// DefaultNamespace is the UUID namespace used to derive engine point ids.
const DefaultNamespace = "1b671a64-40d5-491e-99b0-da01ff1f3341"

// Config is the complete vectorgate configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Engine        EngineConfig        `koanf:"engine"`
	Qdrant        QdrantConfig        `koanf:"qdrant"`
	Chromem       ChromemConfig       `koanf:"chromem"`
	Gateway       GatewayConfig       `koanf:"gateway"`
	Observability ObservabilityConfig `koanf:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// EngineConfig selects the vector engine backing the gateway.
type EngineConfig struct {
	Provider string `koanf:"provider"`
}

// QdrantConfig holds Qdrant connection settings.
//
// URL keeps the REST-style form used by QDRANT_URL; only its host and scheme
// are used, the gRPC port comes from GRPCPort.
type QdrantConfig struct {
	URL              string `koanf:"url"`
	APIKey           Secret `koanf:"api_key"`
	Collection       string `koanf:"collection"`
	GRPCPort         int    `koanf:"grpc_port"`
	MaxMessageSizeMB int    `koanf:"max_message_size_mb"`
}

// ChromemConfig holds settings for the embedded engine.
type ChromemConfig struct {
	// Path is the persistence directory. Empty keeps everything in memory.
	Path     string `koanf:"path"`
	Compress bool   `koanf:"compress"`
}

// GatewayConfig holds search and identifier settings.
type GatewayConfig struct {
	Namespace       string `koanf:"namespace"`
	VisibilityField string `koanf:"visibility_field"`
	FilterPolicy    string `koanf:"filter_policy"` // "and" (default) or "replace"
	DefaultLimit    int    `koanf:"default_limit"`
	MaxLimit        int    `koanf:"max_limit"`
	CacheCollection bool   `koanf:"cache_collection"`
}

// ObservabilityConfig holds logging and OpenTelemetry settings.
type ObservabilityConfig struct {
	LogLevel     string  `koanf:"log_level"`
	LogFormat    string  `koanf:"log_format"`
	Telemetry    bool    `koanf:"telemetry"`
	OTLPEndpoint string  `koanf:"otlp_endpoint"`
	OTLPProtocol string  `koanf:"otlp_protocol"`
	ServiceName  string  `koanf:"service_name"`
	SamplingRate float64 `koanf:"sampling_rate"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            9090,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Engine: EngineConfig{
			Provider: ProviderQdrant,
		},
		Qdrant: QdrantConfig{
			URL:              "http://localhost:6333",
			Collection:       "embeddings",
			GRPCPort:         6334,
			MaxMessageSizeMB: 50,
		},
		Chromem: ChromemConfig{
			Compress: true,
		},
		Gateway: GatewayConfig{
			Namespace:       DefaultNamespace,
			VisibilityField: "allow_reference",
			FilterPolicy:    FilterPolicyAnd,
			DefaultLimit:    20,
			MaxLimit:        100,
			CacheCollection: true,
		},
		Observability: ObservabilityConfig{
			LogLevel:     "info",
			LogFormat:    "json",
			OTLPEndpoint: "localhost:4317",
			OTLPProtocol: "grpc",
			ServiceName:  "vectorgate",
			SamplingRate: 1.0,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return errors.New("server.shutdown_timeout must be positive")
	}

	switch c.Engine.Provider {
	case ProviderQdrant:
		if err := c.Qdrant.Validate(); err != nil {
			return fmt.Errorf("qdrant: %w", err)
		}
	case ProviderChromem:
	default:
		return fmt.Errorf("unknown engine provider %q (want %q or %q)",
			c.Engine.Provider, ProviderQdrant, ProviderChromem)
	}
	if c.Qdrant.Collection == "" {
		return errors.New("qdrant.collection is required")
	}

	if err := c.Gateway.Validate(); err != nil {
		return fmt.Errorf("gateway: %w", err)
	}

	if c.Observability.Telemetry && c.Observability.ServiceName == "" {
		return errors.New("observability.service_name required when telemetry is enabled")
	}
	return nil
}

// Validate checks the Qdrant connection settings.
func (q QdrantConfig) Validate() error {
	if _, _, err := q.HostAndTLS(); err != nil {
		return err
	}
	if q.GRPCPort < 1 || q.GRPCPort > 65535 {
		return fmt.Errorf("invalid grpc port: %d (must be 1-65535)", q.GRPCPort)
	}
	if q.MaxMessageSizeMB <= 0 {
		return fmt.Errorf("max_message_size_mb must be positive, got %d", q.MaxMessageSizeMB)
	}
	return nil
}

// HostAndTLS extracts the host from URL and reports whether its scheme asks
// for TLS.
func (q QdrantConfig) HostAndTLS() (string, bool, error) {
	u, err := url.Parse(q.URL)
	if err != nil {
		return "", false, fmt.Errorf("invalid url %q: %w", q.URL, err)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return "", false, fmt.Errorf("invalid url %q: scheme must be http or https", q.URL)
	}
	if u.Hostname() == "" {
		return "", false, fmt.Errorf("invalid url %q: host is required", q.URL)
	}
	return u.Hostname(), u.Scheme == "https", nil
}

// Validate checks the gateway settings.
func (g GatewayConfig) Validate() error {
	if _, err := uuid.Parse(g.Namespace); err != nil {
		return fmt.Errorf("namespace must be a UUID: %w", err)
	}
	if g.VisibilityField == "" {
		return errors.New("visibility_field is required")
	}
	if g.FilterPolicy != FilterPolicyAnd && g.FilterPolicy != FilterPolicyReplace {
		return fmt.Errorf("filter_policy must be %q or %q, got %q",
			FilterPolicyAnd, FilterPolicyReplace, g.FilterPolicy)
	}
	if g.MaxLimit < 1 {
		return fmt.Errorf("max_limit must be positive, got %d", g.MaxLimit)
	}
	if g.DefaultLimit < 1 || g.DefaultLimit > g.MaxLimit {
		return fmt.Errorf("default_limit must be between 1 and max_limit (%d), got %d",
			g.MaxLimit, g.DefaultLimit)
	}
	return nil
}
