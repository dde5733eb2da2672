package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vectorgate/internal/gateway"
	"github.com/fyrsmithlabs/vectorgate/internal/logging"
	"github.com/fyrsmithlabs/vectorgate/internal/telemetry"
)

const (
	// payloadKey holds the JSON-encoded payload in document metadata.
	payloadKey = "payload"

	metaDimension = "dimension"
	metaDistance  = "distance"
)

var chromemTracer = otel.Tracer(telemetry.ScopeChromem)

var collectionNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ErrInvalidCollectionName is returned for names outside [A-Za-z0-9_-]{1,64}.
var ErrInvalidCollectionName = errors.New("invalid collection name")

// errTextEmbedding is returned if chromem ever asks to embed text. The
// gateway always supplies vectors.
var errTextEmbedding = errors.New("text embedding is not supported")

// ChromemConfig holds configuration for the embedded engine.
type ChromemConfig struct {
	// Path is the persistence directory. Empty keeps data in memory only.
	// A leading ~ expands to the home directory.
	Path string

	// Compress gzips persisted documents.
	Compress bool
}

// ChromemEngine implements gateway.Engine on chromem-go, an embedded
// exhaustive-search vector database.
//
// Payloads are stored as JSON in document metadata and filters are
// evaluated in Go so that array fields match when any element is equal.
type ChromemEngine struct {
	db     *chromem.DB
	config ChromemConfig
	logger *logging.Logger

	// mu serializes collection creation; chromem's CreateCollection
	// replaces an existing collection.
	mu   sync.Mutex
	dims sync.Map // collection name -> int
}

var _ gateway.Engine = (*ChromemEngine)(nil)

// NewChromemEngine opens or creates the database.
func NewChromemEngine(config ChromemConfig, logger *logging.Logger) (*ChromemEngine, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	var db *chromem.DB
	if config.Path == "" {
		db = chromem.NewDB()
	} else {
		path, err := expandPath(config.Path)
		if err != nil {
			return nil, fmt.Errorf("expanding path: %w", err)
		}
		config.Path = path
		if err := os.MkdirAll(path, 0o700); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", path, err)
		}
		db, err = chromem.NewPersistentDB(path, config.Compress)
		if err != nil {
			return nil, fmt.Errorf("creating chromem DB: %w", err)
		}
	}

	e := &ChromemEngine{db: db, config: config, logger: logger}
	e.logger.Info(context.Background(), "chromem engine initialized",
		zap.String("path", config.Path),
		zap.Bool("persistent", config.Path != ""),
		zap.Bool("compress", config.Compress),
		zap.Int("collections", len(db.ListCollections())),
	)
	return e, nil
}

func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

func embedUnsupported(context.Context, string) ([]float32, error) {
	return nil, errTextEmbedding
}

// ValidateCollectionName checks name against [A-Za-z0-9_-]{1,64}.
func ValidateCollectionName(name string) error {
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: must match %s, got %q", ErrInvalidCollectionName, collectionNamePattern, name)
	}
	return nil
}

// Health always succeeds; the database is in-process.
func (e *ChromemEngine) Health(context.Context) error {
	return nil
}

// ListCollections returns the names of all collections.
func (e *ChromemEngine) ListCollections(ctx context.Context) ([]string, error) {
	collections := e.db.ListCollections()
	names := make([]string, 0, len(collections))
	for name := range collections {
		names = append(names, name)
	}
	return names, nil
}

// CreateCollection creates an empty collection. It fails with
// gateway.ErrCollectionExists if the name is taken.
func (e *ChromemEngine) CreateCollection(ctx context.Context, name string, dim uint64, distance gateway.Distance) (err error) {
	ctx, span := chromemTracer.Start(ctx, "chromem.CreateCollection", trace.WithAttributes(
		attribute.String("collection", name),
		attribute.Int64("vector_size", int64(dim)),
	))
	defer func() { endSpan(span, err) }()

	if err := ValidateCollectionName(name); err != nil {
		return err
	}
	if distance != gateway.DistanceCosine {
		return fmt.Errorf("unsupported distance %q: chromem only supports cosine", distance)
	}
	if dim == 0 {
		return errors.New("dimension must be positive")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.db.GetCollection(name, embedUnsupported) != nil {
		return fmt.Errorf("collection %q: %w", name, gateway.ErrCollectionExists)
	}
	meta := map[string]string{
		metaDimension: fmt.Sprint(dim),
		metaDistance:  string(distance),
	}
	if _, err := e.db.CreateCollection(name, meta, embedUnsupported); err != nil {
		return fmt.Errorf("creating collection %q: %w", name, err)
	}
	e.dims.Store(name, int(dim))

	e.logger.Debug(ctx, "chromem collection created",
		zap.String("collection", name),
		zap.Uint64("dimensions", dim))
	return nil
}

func (e *ChromemEngine) collection(name string) (*chromem.Collection, error) {
	c := e.db.GetCollection(name, embedUnsupported)
	if c == nil {
		return nil, fmt.Errorf("collection %q: %w", name, gateway.ErrCollectionNotFound)
	}
	return c, nil
}

// checkDimension compares n with the collection's dimensionality. A
// collection reopened from disk learns it from the first stored vector.
func (e *ChromemEngine) checkDimension(name string, n int, learn bool) error {
	var known any
	var ok bool
	if learn {
		known, ok = e.dims.LoadOrStore(name, n)
	} else {
		known, ok = e.dims.Load(name)
	}
	if ok && known.(int) != n {
		return fmt.Errorf("wrong vector dimension: expected %d, got %d", known.(int), n)
	}
	return nil
}

// Upsert writes points, replacing documents with the same id.
func (e *ChromemEngine) Upsert(ctx context.Context, collection string, points []gateway.Point) (err error) {
	ctx, span := chromemTracer.Start(ctx, "chromem.Upsert", trace.WithAttributes(
		attribute.String("collection", collection),
		attribute.Int("document_count", len(points)),
	))
	defer func() { endSpan(span, err) }()

	c, err := e.collection(collection)
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, len(points))
	for i, p := range points {
		if err := e.checkDimension(collection, len(p.Vector), true); err != nil {
			return err
		}
		if isZero(p.Vector) {
			return fmt.Errorf("point %s: zero vector has no direction", p.ID)
		}
		raw, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("point %s: encoding payload: %w", p.ID, err)
		}
		docs[i] = chromem.Document{
			ID:        p.ID,
			Metadata:  map[string]string{payloadKey: string(raw)},
			Embedding: append([]float32(nil), p.Vector...),
		}
		e.logger.Trace(ctx, "encoded document",
			zap.String("point_id", p.ID),
			zap.Int("payload_bytes", len(raw)))
	}

	for _, doc := range docs {
		if err := c.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("adding document %s: %w", doc.ID, err)
		}
	}
	return nil
}

// Search scores every document by cosine similarity. Filtered queries rank
// the whole collection and keep the best matches.
func (e *ChromemEngine) Search(ctx context.Context, collection string, q gateway.Query) (_ []gateway.Hit, err error) {
	ctx, span := chromemTracer.Start(ctx, "chromem.Search", trace.WithAttributes(
		attribute.String("collection", collection),
		attribute.Int64("k", int64(q.Limit)),
	))
	defer func() { endSpan(span, err) }()

	c, err := e.collection(collection)
	if err != nil {
		return nil, err
	}
	if q.Limit == 0 {
		return []gateway.Hit{}, nil
	}
	if err := e.checkDimension(collection, len(q.Vector), false); err != nil {
		return nil, err
	}

	count := c.Count()
	if count == 0 {
		return []gateway.Hit{}, nil
	}
	n := count
	if q.Filter.IsEmpty() && uint64(count) > q.Limit {
		n = int(q.Limit)
	}

	results, err := c.QueryEmbedding(ctx, q.Vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying %q: %w", collection, err)
	}

	hits := make([]gateway.Hit, 0, min(len(results), int(q.Limit)))
	for _, r := range results {
		payload, err := decodePayload(r.Metadata)
		if err != nil {
			e.logger.Warn(ctx, "skipping document with unreadable payload",
				zap.String("internal_id", r.ID),
				zap.Error(err))
			continue
		}
		if !Matches(payload, q.Filter) {
			continue
		}
		h := gateway.Hit{ID: r.ID, Score: r.Similarity}
		if q.WithPayload {
			h.Payload = payload
		}
		if q.WithVector {
			h.Vector = r.Embedding
		}
		hits = append(hits, h)
		if uint64(len(hits)) == q.Limit {
			break
		}
	}
	span.SetAttributes(attribute.Int("results_count", len(hits)))
	return hits, nil
}

// Delete removes documents by id. Unknown ids are ignored.
func (e *ChromemEngine) Delete(ctx context.Context, collection string, ids []string) (err error) {
	ctx, span := chromemTracer.Start(ctx, "chromem.Delete", trace.WithAttributes(
		attribute.String("collection", collection),
		attribute.Int("id_count", len(ids)),
	))
	defer func() { endSpan(span, err) }()

	c, err := e.collection(collection)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	if err := c.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("deleting from %q: %w", collection, err)
	}
	return nil
}

// Close is a no-op; persistent writes are synchronous.
func (e *ChromemEngine) Close() error {
	return nil
}

// endSpan marks the span failed unless err is nil or a missing collection,
// which callers treat as an ordinary outcome.
func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, gateway.ErrCollectionNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func decodePayload(meta map[string]string) (gateway.Payload, error) {
	raw, ok := meta[payloadKey]
	if !ok {
		return gateway.Payload{}, nil
	}
	var p gateway.Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, err
	}
	if p == nil {
		p = gateway.Payload{}
	}
	return p, nil
}

func isZero(v []float32) bool {
	var sum float64
	for _, x := range v {
		sum += math.Abs(float64(x))
	}
	return sum == 0
}
