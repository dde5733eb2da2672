package gateway

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fyrsmithlabs/vectorgate/internal/logging"
)

// Provisioner creates the gateway's collection on first use.
//
// Concurrent Ensure calls in this process share one list/create round trip,
// which is not cancelled when the caller that started it gives up.
// Races with other processes are absorbed by treating ErrCollectionExists as
// success.
type Provisioner struct {
	engine     Engine
	collection string
	cache      bool
	known      atomic.Bool
	group      singleflight.Group
	logger     *logging.Logger
	tracer     trace.Tracer
}

// NewProvisioner returns a provisioner for collection. With cache set, the
// list call is skipped once the collection is known to exist.
func NewProvisioner(engine Engine, collection string, cache bool, logger *logging.Logger, tracer trace.Tracer) *Provisioner {
	if logger == nil {
		logger = logging.NewNop()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(instrumentationName)
	}
	return &Provisioner{
		engine:     engine,
		collection: collection,
		cache:      cache,
		logger:     logger,
		tracer:     tracer,
	}
}

// Ensure makes sure the collection exists, creating it with dim dimensions
// and cosine distance when absent.
func (p *Provisioner) Ensure(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("invalid dimensionality %d", dim)
	}
	if p.cache && p.known.Load() {
		return nil
	}

	// The shared call outlives any one caller; each caller still returns
	// when its own context ends.
	ch := p.group.DoChan(p.collection, func() (interface{}, error) {
		return nil, p.ensure(context.WithoutCancel(ctx), dim)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Forget drops the cached existence flag, for example after the engine
// reported the collection missing.
func (p *Provisioner) Forget() {
	p.known.Store(false)
}

func (p *Provisioner) ensure(ctx context.Context, dim int) (err error) {
	ctx, span := p.tracer.Start(ctx, "Provisioner.Ensure", trace.WithAttributes(
		attribute.String("collection", p.collection),
		attribute.Int("vector.dimensions", dim),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	ctx = logging.WithCollection(ctx, p.collection)

	names, err := p.engine.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	if slices.Contains(names, p.collection) {
		p.known.Store(true)
		return nil
	}

	err = p.engine.CreateCollection(ctx, p.collection, uint64(dim), DistanceCosine)
	switch {
	case err == nil:
		CollectionsCreatedTotal.Inc()
		span.SetAttributes(attribute.Bool("created", true))
		p.logger.Info(ctx, "collection created",
			zap.Int("dimensions", dim),
			zap.String("distance", string(DistanceCosine)))
	case errors.Is(err, ErrCollectionExists):
		p.logger.Debug(ctx, "collection created concurrently")
	default:
		return fmt.Errorf("create collection %q: %w", p.collection, err)
	}

	p.known.Store(true)
	return nil
}
