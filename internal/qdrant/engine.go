// Package qdrant implements the gateway engine on Qdrant's gRPC API.
package qdrant

import (
	"context"
	"errors"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/fyrsmithlabs/vectorgate/internal/config"
	"github.com/fyrsmithlabs/vectorgate/internal/gateway"
	"github.com/fyrsmithlabs/vectorgate/internal/logging"
	"github.com/fyrsmithlabs/vectorgate/internal/telemetry"
)

var qdrantTracer = otel.Tracer(telemetry.ScopeQdrant)

// Config configures the Qdrant gRPC connection.
type Config struct {
	// Host is the Qdrant server hostname or IP address.
	Host string

	// Port is the gRPC port, not the REST port.
	// Default: 6334
	Port int

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// APIKey is sent with every request when set.
	APIKey config.Secret

	// MaxMessageSize is the maximum gRPC message size in bytes.
	// Default: 50MB
	MaxMessageSize int
}

// DefaultConfig returns settings for a local Qdrant.
func DefaultConfig() *Config {
	return &Config{
		Host:           "localhost",
		Port:           6334,
		MaxMessageSize: 50 * 1024 * 1024,
	}
}

// ConfigFrom translates the service configuration. The URL supplies host and
// scheme; https selects TLS.
func ConfigFrom(q config.QdrantConfig) (*Config, error) {
	host, useTLS, err := q.HostAndTLS()
	if err != nil {
		return nil, err
	}
	return &Config{
		Host:           host,
		Port:           q.GRPCPort,
		UseTLS:         useTLS,
		APIKey:         q.APIKey,
		MaxMessageSize: q.MaxMessageSizeMB * 1024 * 1024,
	}, nil
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.Host == "" {
		c.Host = defaults.Host
	}
	if c.Port == 0 {
		c.Port = defaults.Port
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = defaults.MaxMessageSize
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Port)
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("invalid max message size: %d (must be > 0)", c.MaxMessageSize)
	}
	return nil
}

func (c *Config) clientConfig() *qdrant.Config {
	qc := &qdrant.Config{
		Host:   c.Host,
		Port:   c.Port,
		UseTLS: c.UseTLS,
		APIKey: c.APIKey.Value(),
		// Health reports the server version instead of a dial-time probe.
		SkipCompatibilityCheck: true,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(c.MaxMessageSize),
				grpc.MaxCallSendMsgSize(c.MaxMessageSize),
			),
		},
	}
	if !c.UseTLS {
		qc.GrpcOptions = append(qc.GrpcOptions, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	return qc
}

// api is the subset of *qdrant.Client the engine uses.
type api interface {
	HealthCheck(ctx context.Context) (*qdrant.HealthCheckReply, error)
	ListCollections(ctx context.Context) ([]string, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Delete(ctx context.Context, request *qdrant.DeletePoints) (*qdrant.UpdateResult, error)
	Close() error
}

// Engine implements gateway.Engine against Qdrant.
//
// Every call is a single attempt bounded only by the caller's context.
type Engine struct {
	client api
	config *Config
	logger *logging.Logger
}

var _ gateway.Engine = (*Engine)(nil)

// NewEngine creates the client. The connection is established lazily; call
// Health to verify reachability.
func NewEngine(cfg *Config, logger *logging.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	client, err := qdrant.NewClient(cfg.clientConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	logger.Info(context.Background(), "qdrant client created",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.Bool("tls", cfg.UseTLS),
		logging.Secret("api_key", cfg.APIKey),
	)
	return &Engine{client: client, config: cfg, logger: logger}, nil
}

// Health checks that Qdrant answers.
func (e *Engine) Health(ctx context.Context) error {
	reply, err := e.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	e.logger.Debug(ctx, "qdrant healthy", zap.String("version", reply.GetVersion()))
	return nil
}

// ListCollections returns the names of all collections.
func (e *Engine) ListCollections(ctx context.Context) (_ []string, err error) {
	ctx, span := qdrantTracer.Start(ctx, "qdrant.ListCollections")
	defer func() { endSpan(span, err) }()

	names, err := e.client.ListCollections(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return names, nil
}

// CreateCollection creates a collection with a single unnamed dense vector.
func (e *Engine) CreateCollection(ctx context.Context, name string, dim uint64, distance gateway.Distance) (err error) {
	ctx, span := qdrantTracer.Start(ctx, "qdrant.CreateCollection", trace.WithAttributes(
		attribute.String("collection", name),
		attribute.Int64("vector_size", int64(dim)),
	))
	defer func() { endSpan(span, err) }()

	d, err := convertDistance(distance)
	if err != nil {
		return err
	}
	err = e.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dim,
			Distance: d,
		}),
	})
	if err != nil {
		return mapError(err)
	}
	return nil
}

// Upsert writes points and waits until Qdrant has applied them.
func (e *Engine) Upsert(ctx context.Context, collection string, points []gateway.Point) (err error) {
	ctx, span := qdrantTracer.Start(ctx, "qdrant.Upsert", trace.WithAttributes(
		attribute.String("collection", collection),
		attribute.Int("point_count", len(points)),
	))
	defer func() { endSpan(span, err) }()

	qpoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		qp, err := convertPoint(p)
		if err != nil {
			return err
		}
		qpoints[i] = qp
		e.logger.Trace(ctx, "converted point",
			zap.String("point_id", p.ID),
			zap.Int("payload_fields", len(qp.GetPayload())))
	}

	_, err = e.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qpoints,
	})
	if err != nil {
		return mapError(err)
	}
	return nil
}

// Search runs a nearest-neighbour query.
func (e *Engine) Search(ctx context.Context, collection string, q gateway.Query) (_ []gateway.Hit, err error) {
	ctx, span := qdrantTracer.Start(ctx, "qdrant.Query", trace.WithAttributes(
		attribute.String("collection", collection),
		attribute.Int64("limit", int64(q.Limit)),
	))
	defer func() { endSpan(span, err) }()

	res, err := e.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(q.Vector...),
		Limit:          qdrant.PtrOf(q.Limit),
		Filter:         convertFilter(q.Filter),
		WithPayload:    qdrant.NewWithPayload(q.WithPayload),
		WithVectors:    qdrant.NewWithVectors(q.WithVector),
	})
	if err != nil {
		return nil, mapError(err)
	}

	hits := make([]gateway.Hit, len(res))
	for i, sp := range res {
		hits[i] = convertScoredPoint(sp)
	}
	span.SetAttributes(attribute.Int("results_count", len(hits)))
	return hits, nil
}

// Delete removes points by id. Absent ids are ignored by Qdrant.
func (e *Engine) Delete(ctx context.Context, collection string, ids []string) (err error) {
	ctx, span := qdrantTracer.Start(ctx, "qdrant.Delete", trace.WithAttributes(
		attribute.String("collection", collection),
		attribute.Int("id_count", len(ids)),
	))
	defer func() { endSpan(span, err) }()

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewIDUUID(id)
	}

	_, err = e.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return mapError(err)
	}
	return nil
}

// Close closes the client connection.
func (e *Engine) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// endSpan records failures other than a missing collection, which the
// gateway handles as an ordinary outcome.
func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, gateway.ErrCollectionNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
