package vectorstore

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/vectorgate/internal/config"
	"github.com/fyrsmithlabs/vectorgate/internal/gateway"
	"github.com/fyrsmithlabs/vectorgate/internal/logging"
	"github.com/fyrsmithlabs/vectorgate/internal/qdrant"
)

// Engine is a gateway engine that owns a connection or database.
type Engine interface {
	gateway.Engine

	// Health reports whether the backend is reachable.
	Health(ctx context.Context) error

	// Close releases the backend.
	Close() error
}

// NewEngine creates the engine named by cfg.Engine.Provider.
func NewEngine(cfg *config.Config, logger *logging.Logger) (Engine, error) {
	switch cfg.Engine.Provider {
	case config.ProviderQdrant, "":
		qcfg, err := qdrant.ConfigFrom(cfg.Qdrant)
		if err != nil {
			return nil, fmt.Errorf("qdrant config: %w", err)
		}
		return qdrant.NewEngine(qcfg, logger)

	case config.ProviderChromem:
		return NewChromemEngine(ChromemConfig{
			Path:     cfg.Chromem.Path,
			Compress: cfg.Chromem.Compress,
		}, logger)

	default:
		return nil, fmt.Errorf("unsupported engine provider: %s (supported: %s, %s)",
			cfg.Engine.Provider, config.ProviderQdrant, config.ProviderChromem)
	}
}

// GatewayConfig maps the service configuration onto gateway.Config.
func GatewayConfig(cfg *config.Config) gateway.Config {
	return gateway.Config{
		Collection:      cfg.Qdrant.Collection,
		Namespace:       cfg.Gateway.Namespace,
		VisibilityField: cfg.Gateway.VisibilityField,
		FilterPolicy:    gateway.FilterPolicy(cfg.Gateway.FilterPolicy),
		DefaultLimit:    cfg.Gateway.DefaultLimit,
		MaxLimit:        cfg.Gateway.MaxLimit,
		CacheCollection: cfg.Gateway.CacheCollection,
	}
}
