package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/vectorgate/internal/gateway"
	"github.com/fyrsmithlabs/vectorgate/internal/logging"
)

func newMemoryEngine(t *testing.T) *ChromemEngine {
	t.Helper()
	e, err := NewChromemEngine(ChromemConfig{}, logging.NewNop())
	require.NoError(t, err)
	return e
}

func TestChromemEngine_CreateCollection(t *testing.T) {
	ctx := context.Background()
	e := newMemoryEngine(t)

	names, err := e.ListCollections(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, e.CreateCollection(ctx, "embeddings", 3, gateway.DistanceCosine))

	names, err = e.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"embeddings"}, names)

	err = e.CreateCollection(ctx, "embeddings", 3, gateway.DistanceCosine)
	assert.ErrorIs(t, err, gateway.ErrCollectionExists)
}

func TestChromemEngine_CreateCollectionValidation(t *testing.T) {
	ctx := context.Background()
	e := newMemoryEngine(t)

	assert.ErrorIs(t, e.CreateCollection(ctx, "../etc", 3, gateway.DistanceCosine), ErrInvalidCollectionName)
	assert.ErrorIs(t, e.CreateCollection(ctx, "", 3, gateway.DistanceCosine), ErrInvalidCollectionName)
	assert.ErrorContains(t, e.CreateCollection(ctx, "c", 3, gateway.Distance("dot")), "unsupported distance")
	assert.ErrorContains(t, e.CreateCollection(ctx, "c", 0, gateway.DistanceCosine), "dimension must be positive")
}

func TestChromemEngine_MissingCollection(t *testing.T) {
	ctx := context.Background()
	e := newMemoryEngine(t)

	err := e.Upsert(ctx, "nope", []gateway.Point{{ID: "a", Vector: []float32{1}}})
	assert.ErrorIs(t, err, gateway.ErrCollectionNotFound)

	_, err = e.Search(ctx, "nope", gateway.Query{Vector: []float32{1}, Limit: 1})
	assert.ErrorIs(t, err, gateway.ErrCollectionNotFound)

	err = e.Delete(ctx, "nope", []string{"a"})
	assert.ErrorIs(t, err, gateway.ErrCollectionNotFound)
}

func TestChromemEngine_UpsertSearchDelete(t *testing.T) {
	ctx := context.Background()
	e := newMemoryEngine(t)
	require.NoError(t, e.CreateCollection(ctx, "c", 2, gateway.DistanceCosine))

	require.NoError(t, e.Upsert(ctx, "c", []gateway.Point{
		{ID: "x", Vector: []float32{1, 0}, Payload: gateway.Payload{"original_id": "doc-x", "allow_reference": true}},
		{ID: "y", Vector: []float32{0, 1}, Payload: gateway.Payload{"original_id": "doc-y", "allow_reference": true}},
		{ID: "z", Vector: []float32{1, 1}, Payload: gateway.Payload{"original_id": "doc-z", "allow_reference": false}},
	}))

	hits, err := e.Search(ctx, "c", gateway.Query{Vector: []float32{1, 0}, Limit: 10, WithPayload: true})
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "x", hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, "z", hits[1].ID)
	assert.Equal(t, "doc-x", hits[0].Payload["original_id"])
	assert.Nil(t, hits[0].Vector)

	hits, err = e.Search(ctx, "c", gateway.Query{
		Vector: []float32{1, 0},
		Limit:  10,
		Filter: gateway.Equal("allow_reference", true),
	})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, []string{"x", "y"}, []string{hits[0].ID, hits[1].ID})
	assert.Nil(t, hits[0].Payload, "payload omitted unless requested")

	hits, err = e.Search(ctx, "c", gateway.Query{Vector: []float32{1, 0}, Limit: 1, WithVector: true})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Len(t, hits[0].Vector, 2)

	require.NoError(t, e.Delete(ctx, "c", []string{"x", "never-stored"}))
	hits, err = e.Search(ctx, "c", gateway.Query{Vector: []float32{1, 0}, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestChromemEngine_UpsertReplaces(t *testing.T) {
	ctx := context.Background()
	e := newMemoryEngine(t)
	require.NoError(t, e.CreateCollection(ctx, "c", 2, gateway.DistanceCosine))

	require.NoError(t, e.Upsert(ctx, "c", []gateway.Point{{ID: "x", Vector: []float32{1, 0}, Payload: gateway.Payload{"v": "1"}}}))
	require.NoError(t, e.Upsert(ctx, "c", []gateway.Point{{ID: "x", Vector: []float32{0, 1}, Payload: gateway.Payload{"v": "2"}}}))

	hits, err := e.Search(ctx, "c", gateway.Query{Vector: []float32{0, 1}, Limit: 5, WithPayload: true})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, gateway.Payload{"v": "2"}, hits[0].Payload)
}

func TestChromemEngine_DimensionChecks(t *testing.T) {
	ctx := context.Background()
	e := newMemoryEngine(t)
	require.NoError(t, e.CreateCollection(ctx, "c", 3, gateway.DistanceCosine))

	err := e.Upsert(ctx, "c", []gateway.Point{{ID: "x", Vector: []float32{1, 2}}})
	assert.ErrorContains(t, err, "wrong vector dimension: expected 3, got 2")

	_, err = e.Search(ctx, "c", gateway.Query{Vector: []float32{1}, Limit: 1})
	assert.ErrorContains(t, err, "wrong vector dimension")

	err = e.Upsert(ctx, "c", []gateway.Point{{ID: "x", Vector: []float32{0, 0, 0}}})
	assert.ErrorContains(t, err, "zero vector")
}

func TestChromemEngine_SearchEmptyCollection(t *testing.T) {
	ctx := context.Background()
	e := newMemoryEngine(t)
	require.NoError(t, e.CreateCollection(ctx, "c", 2, gateway.DistanceCosine))

	hits, err := e.Search(ctx, "c", gateway.Query{Vector: []float32{1, 0}, Limit: 20})
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestChromemEngine_Persistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	e, err := NewChromemEngine(ChromemConfig{Path: dir, Compress: true}, logging.NewNop())
	require.NoError(t, err)
	require.NoError(t, e.CreateCollection(ctx, "c", 2, gateway.DistanceCosine))
	require.NoError(t, e.Upsert(ctx, "c", []gateway.Point{
		{ID: "x", Vector: []float32{1, 0}, Payload: gateway.Payload{"original_id": "doc-x", "tags": []string{"a"}}},
	}))
	require.NoError(t, e.Close())

	reopened, err := NewChromemEngine(ChromemConfig{Path: dir, Compress: true}, logging.NewNop())
	require.NoError(t, err)

	names, err := reopened.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, names)

	hits, err := reopened.Search(ctx, "c", gateway.Query{
		Vector:      []float32{1, 0},
		Limit:       1,
		Filter:      gateway.Equal("tags", "a"),
		WithPayload: true,
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc-x", hits[0].Payload["original_id"])
	assert.Equal(t, []any{"a"}, hits[0].Payload["tags"])

	assert.ErrorIs(t, reopened.CreateCollection(ctx, "c", 2, gateway.DistanceCosine), gateway.ErrCollectionExists)
}

func TestDecodePayload(t *testing.T) {
	p, err := decodePayload(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, gateway.Payload{}, p)

	p, err = decodePayload(map[string]string{payloadKey: "null"})
	require.NoError(t, err)
	assert.Equal(t, gateway.Payload{}, p)

	_, err = decodePayload(map[string]string{payloadKey: "{"})
	assert.Error(t, err)
}

func TestValidateCollectionName(t *testing.T) {
	for _, ok := range []string{"embeddings", "my-collection_2", "A"} {
		assert.NoError(t, ValidateCollectionName(ok), ok)
	}
	for _, bad := range []string{"", "a/b", "has space", "dots.dots", string(make([]byte, 65))} {
		assert.ErrorIs(t, ValidateCollectionName(bad), ErrInvalidCollectionName, bad)
	}
}
