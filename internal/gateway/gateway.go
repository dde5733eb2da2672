package gateway

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vectorgate/internal/logging"
	"github.com/fyrsmithlabs/vectorgate/internal/telemetry"
)

const instrumentationName = telemetry.ScopeGateway

// Search limits.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// FilterPolicy decides how a custom search filter combines with the
// visibility predicate. FilterAnd is the default; under FilterReplace any
// non-empty custom filter lifts the visibility check.
type FilterPolicy string

const (
	// FilterAnd keeps the visibility predicate and adds the custom clauses.
	FilterAnd FilterPolicy = "and"
	// FilterReplace drops the visibility predicate when a custom filter is given.
	FilterReplace FilterPolicy = "replace"
)

// Config is the gateway's immutable configuration.
type Config struct {
	Collection      string
	Namespace       string
	VisibilityField string
	FilterPolicy    FilterPolicy
	DefaultLimit    int
	MaxLimit        int
	CacheCollection bool
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Namespace == "" {
		c.Namespace = "1b671a64-40d5-491e-99b0-da01ff1f3341"
	}
	if c.VisibilityField == "" {
		c.VisibilityField = "allow_reference"
	}
	if c.FilterPolicy == "" {
		c.FilterPolicy = FilterAnd
	}
	if c.MaxLimit == 0 {
		c.MaxLimit = MaxLimit
	}
	if c.DefaultLimit == 0 {
		c.DefaultLimit = min(DefaultLimit, c.MaxLimit)
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Collection == "" {
		return errors.New("collection is required")
	}
	if c.FilterPolicy != FilterAnd && c.FilterPolicy != FilterReplace {
		return fmt.Errorf("unknown filter policy %q", c.FilterPolicy)
	}
	if c.MaxLimit < 1 || c.DefaultLimit < 1 || c.DefaultLimit > c.MaxLimit {
		return fmt.Errorf("invalid limits: default %d, max %d", c.DefaultLimit, c.MaxLimit)
	}
	return nil
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logging.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithTracerProvider sets the tracer provider. The default is the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(g *Gateway) {
		if tp != nil {
			g.tracer = tp.Tracer(instrumentationName)
		}
	}
}

// Gateway stores, deletes and searches vectors keyed by caller ids. It is
// safe for concurrent use.
type Gateway struct {
	engine      Engine
	cfg         Config
	ids         *IDMapper
	provisioner *Provisioner
	logger      *logging.Logger
	tracer      trace.Tracer
}

// StoreResult identifies a stored record.
type StoreResult struct {
	ExternalID string
	InternalID string
}

// DeleteResult identifies a deleted record.
type DeleteResult struct {
	ExternalID string
	InternalID string
}

// New builds a gateway over engine.
func New(engine Engine, cfg Config, opts ...Option) (*Gateway, error) {
	if engine == nil {
		return nil, errors.New("engine is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid gateway config: %w", err)
	}
	ids, err := NewIDMapper(cfg.Namespace)
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		engine: engine,
		cfg:    cfg,
		ids:    ids,
		logger: logging.NewNop(),
		tracer: otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.provisioner = NewProvisioner(engine, cfg.Collection, cfg.CacheCollection, g.logger, g.tracer)
	return g, nil
}

// InternalID returns the engine id for externalID.
func (g *Gateway) InternalID(externalID string) string {
	return g.ids.Map(externalID)
}

// Store writes vector and payload under externalID, replacing any previous
// record for that id. The collection is created on first use with the
// vector's length as its dimensionality.
func (g *Gateway) Store(ctx context.Context, externalID string, vector []float32, payload Payload) (res *StoreResult, err error) {
	const op = "store"
	ctx, span := g.start(ctx, "Gateway.Store", attribute.Int("vector.dimensions", len(vector)))
	defer g.finish(ctx, span, op, time.Now(), &err)

	if externalID == "" {
		return nil, validationError(op, "id is required")
	}
	if err := validateVector(vector); err != nil {
		return nil, validationError(op, "%v", err)
	}
	if payload == nil {
		return nil, validationError(op, "payload is required")
	}

	internalID := g.ids.Map(externalID)
	span.SetAttributes(attribute.String("point.id", internalID))

	if err := g.provisioner.Ensure(ctx, len(vector)); err != nil {
		return nil, provisioningError(op, err)
	}

	point := Point{
		ID:      internalID,
		Vector:  vector,
		Payload: Enrich(payload, externalID),
	}
	if err := g.engine.Upsert(ctx, g.cfg.Collection, []Point{point}); err != nil {
		if errors.Is(err, ErrCollectionNotFound) {
			g.provisioner.Forget()
		}
		return nil, engineError(op, err)
	}

	g.logger.Debug(ctx, "point stored",
		zap.String("external_id", externalID),
		zap.String("internal_id", internalID))
	return &StoreResult{ExternalID: externalID, InternalID: internalID}, nil
}

// Delete removes the record for externalID. Deleting an absent record, or
// deleting before the collection exists, succeeds.
func (g *Gateway) Delete(ctx context.Context, externalID string) (res *DeleteResult, err error) {
	const op = "delete"
	ctx, span := g.start(ctx, "Gateway.Delete")
	defer g.finish(ctx, span, op, time.Now(), &err)

	if externalID == "" {
		return nil, validationError(op, "id is required")
	}

	internalID := g.ids.Map(externalID)
	span.SetAttributes(attribute.String("point.id", internalID))

	if err := g.engine.Delete(ctx, g.cfg.Collection, []string{internalID}); err != nil {
		if !errors.Is(err, ErrCollectionNotFound) {
			return nil, engineError(op, err)
		}
		g.provisioner.Forget()
		g.logger.Debug(ctx, "delete before collection exists", zap.String("internal_id", internalID))
	}

	return &DeleteResult{ExternalID: externalID, InternalID: internalID}, nil
}

// SearchOption configures a search.
type SearchOption func(*searchOptions)

type searchOptions struct {
	limit  int
	filter map[string]any
}

// WithLimit sets the number of results. Values above the maximum are
// clamped; values below 1 fail validation.
func WithLimit(n int) SearchOption {
	return func(o *searchOptions) { o.limit = n }
}

// WithFilter restricts results to records whose payload fields equal the
// given values. How it combines with the visibility predicate depends on the
// configured FilterPolicy.
func WithFilter(fields map[string]any) SearchOption {
	return func(o *searchOptions) { o.filter = fields }
}

// Search returns the records most similar to vector, best first, under
// their caller ids.
func (g *Gateway) Search(ctx context.Context, vector []float32, opts ...SearchOption) (results []Result, err error) {
	const op = "search"
	ctx, span := g.start(ctx, "Gateway.Search", attribute.Int("vector.dimensions", len(vector)))
	defer g.finish(ctx, span, op, time.Now(), &err)

	o := searchOptions{limit: g.cfg.DefaultLimit}
	for _, opt := range opts {
		opt(&o)
	}

	if err := validateVector(vector); err != nil {
		return nil, validationError(op, "%v", err)
	}
	if o.limit <= 0 {
		return nil, validationError(op, "limit must be positive, got %d", o.limit)
	}
	limit := o.limit
	if limit > g.cfg.MaxLimit {
		SearchLimitClampedTotal.Inc()
		g.logger.Debug(ctx, "search limit clamped",
			zap.Int("requested", limit),
			zap.Int("max", g.cfg.MaxLimit))
		limit = g.cfg.MaxLimit
	}

	custom, err := BuildFilter(o.filter)
	if err != nil {
		return nil, validationError(op, "%v", err)
	}
	filter := g.searchFilter(custom)
	span.SetAttributes(
		attribute.Int("search.limit", limit),
		attribute.Int("search.conditions", len(filter.Must)),
	)

	hits, err := g.engine.Search(ctx, g.cfg.Collection, Query{
		Vector:      vector,
		Limit:       uint64(limit),
		Filter:      filter,
		WithPayload: true,
		WithVector:  false,
	})
	if err != nil {
		if !errors.Is(err, ErrCollectionNotFound) {
			return nil, engineError(op, err)
		}
		g.provisioner.Forget()
		g.logger.Debug(ctx, "search before collection exists")
		return []Result{}, nil
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}

	results, degraded := Reconcile(hits, OriginalIDField)
	for _, id := range degraded {
		DegradedResultsTotal.Inc()
		g.logger.Warn(ctx, "search hit missing original_id, returning internal id",
			zap.String("internal_id", id))
	}
	span.SetAttributes(attribute.Int("search.results", len(results)))
	return results, nil
}

// searchFilter applies the visibility predicate and the filter policy.
func (g *Gateway) searchFilter(custom *Filter) *Filter {
	visibility := Equal(g.cfg.VisibilityField, true)
	if custom.IsEmpty() {
		return visibility
	}
	if g.cfg.FilterPolicy == FilterReplace {
		return custom
	}
	return visibility.And(custom)
}

func (g *Gateway) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("collection", g.cfg.Collection))
	ctx, span := g.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return logging.WithCollection(ctx, g.cfg.Collection), span
}

// finish records metrics, closes the span and logs failures other than
// validation, which are the caller's to report.
func (g *Gateway) finish(ctx context.Context, span trace.Span, op string, start time.Time, errp *error) {
	err := *errp
	observeOperation(op, start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if !errors.Is(err, ErrValidation) {
			g.logger.Error(ctx, "gateway operation failed", zap.String("operation", op), zap.Error(err))
		}
	}
	span.End()
}

func validateVector(v []float32) error {
	if len(v) == 0 {
		return errors.New("vector is required")
	}
	for i, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return fmt.Errorf("vector[%d] is not a finite number", i)
		}
	}
	return nil
}
