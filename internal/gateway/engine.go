package gateway

import (
	"context"
	"errors"
)

// Distance is the similarity metric of a collection.
type Distance string

// DistanceCosine is the only metric the gateway provisions.
const DistanceCosine Distance = "cosine"

// ErrCollectionExists is returned by Engine.CreateCollection when the
// collection is already present. The provisioner treats it as success.
var ErrCollectionExists = errors.New("collection already exists")

// ErrCollectionNotFound is returned by Search, Upsert and Delete when the
// collection does not exist.
var ErrCollectionNotFound = errors.New("collection not found")

// Engine is the vector-search backend the gateway drives. Implementations
// live in internal/qdrant and internal/vectorstore.
type Engine interface {
	// ListCollections returns the names of all collections.
	ListCollections(ctx context.Context) ([]string, error)

	// CreateCollection creates a collection of fixed dimensionality. It
	// returns an error wrapping ErrCollectionExists if name is taken.
	CreateCollection(ctx context.Context, name string, dim uint64, distance Distance) error

	// Upsert writes points, fully replacing any point with the same ID.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns hits ordered by descending score, at most q.Limit.
	Search(ctx context.Context, collection string, q Query) ([]Hit, error)

	// Delete removes points by ID. Missing IDs are not an error.
	Delete(ctx context.Context, collection string, ids []string) error
}

// Point is a record as written to the engine.
type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// Query describes a similarity search.
type Query struct {
	Vector      []float32
	Limit       uint64
	Filter      *Filter
	WithPayload bool
	WithVector  bool
}

// Hit is a single engine search result.
type Hit struct {
	ID      string
	Score   float32
	Payload Payload
	Vector  []float32
}
