package gateway

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

// fakeEngine is an in-memory Engine with call counters and failure hooks.
type fakeEngine struct {
	mu          sync.Mutex
	collections map[string]*fakeCollection

	listCalls   int
	createCalls int
	upsertCalls int
	searchCalls int
	deleteCalls int
	lastQuery   Query

	createDelay time.Duration
	listErr     error
	createErr   error
	upsertErr   error
	searchErr   error
	deleteErr   error

	// hits, when set, is returned by Search verbatim.
	hits []Hit

	// listStarted receives once per ListCollections call when listRelease
	// is set; the call then waits for listRelease to close or ctx to end.
	listStarted chan struct{}
	listRelease chan struct{}
}

type fakeCollection struct {
	dim    uint64
	points map[string]Point
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{collections: make(map[string]*fakeCollection)}
}

func (f *fakeEngine) ListCollections(ctx context.Context) ([]string, error) {
	if f.listRelease != nil {
		select {
		case f.listStarted <- struct{}{}:
		default:
		}
		select {
		case <-f.listRelease:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	names := make([]string, 0, len(f.collections))
	for name := range f.collections {
		names = append(names, name)
	}
	return names, nil
}

func (f *fakeEngine) CreateCollection(ctx context.Context, name string, dim uint64, distance Distance) error {
	if f.createDelay > 0 {
		time.Sleep(f.createDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.collections[name]; ok {
		return fmt.Errorf("fake: %q: %w", name, ErrCollectionExists)
	}
	f.collections[name] = &fakeCollection{dim: dim, points: make(map[string]Point)}
	return nil
}

func (f *fakeEngine) Upsert(ctx context.Context, collection string, points []Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	c, ok := f.collections[collection]
	if !ok {
		return fmt.Errorf("fake: %q: %w", collection, ErrCollectionNotFound)
	}
	for _, p := range points {
		if uint64(len(p.Vector)) != c.dim {
			return fmt.Errorf("fake: wrong vector dimension: expected %d, got %d", c.dim, len(p.Vector))
		}
		c.points[p.ID] = p
	}
	return nil
}

func (f *fakeEngine) Search(ctx context.Context, collection string, q Query) ([]Hit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	f.lastQuery = q
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if f.hits != nil {
		return f.hits, nil
	}
	c, ok := f.collections[collection]
	if !ok {
		return nil, fmt.Errorf("fake: %q: %w", collection, ErrCollectionNotFound)
	}

	var hits []Hit
	for _, p := range c.points {
		if !fakeMatches(p.Payload, q.Filter) {
			continue
		}
		h := Hit{ID: p.ID, Score: cosine(p.Vector, q.Vector)}
		if q.WithPayload {
			h.Payload = p.Payload
		}
		hits = append(hits, h)
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if uint64(len(hits)) > q.Limit {
		hits = hits[:q.Limit]
	}
	return hits, nil
}

func (f *fakeEngine) Delete(ctx context.Context, collection string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	c, ok := f.collections[collection]
	if !ok {
		return fmt.Errorf("fake: %q: %w", collection, ErrCollectionNotFound)
	}
	for _, id := range ids {
		delete(c.points, id)
	}
	return nil
}

func (f *fakeEngine) engineCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls + f.createCalls + f.upsertCalls + f.searchCalls + f.deleteCalls
}

func (f *fakeEngine) point(collection, id string) (Point, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.collections[collection]
	if !ok {
		return Point{}, false
	}
	p, ok := c.points[id]
	return p, ok
}

func fakeMatches(p Payload, f *Filter) bool {
	if f == nil {
		return true
	}
	for _, cond := range f.Must {
		if !fakeEqual(p[cond.Field], cond.Value) {
			return false
		}
	}
	return true
}

func fakeEqual(have, want any) bool {
	switch h := have.(type) {
	case []string:
		for _, v := range h {
			if v == want {
				return true
			}
		}
		return false
	case []any:
		for _, v := range h {
			if fakeEqual(v, want) {
				return true
			}
		}
		return false
	case int:
		return int64(h) == want
	}
	return have == want
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
