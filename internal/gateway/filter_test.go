package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name    string
		fields  map[string]any
		want    *Filter
		wantErr string
	}{
		{
			name:   "nil map",
			fields: nil,
			want:   nil,
		},
		{
			name:   "empty map",
			fields: map[string]any{},
			want:   nil,
		},
		{
			name:   "sorted conjunction",
			fields: map[string]any{"location": "berlin", "categories": "a", "allow_reference": false},
			want: &Filter{Must: []Condition{
				{Field: "allow_reference", Value: false},
				{Field: "categories", Value: "a"},
				{Field: "location", Value: "berlin"},
			}},
		},
		{
			name:   "integral json number",
			fields: map[string]any{"rank": float64(3)},
			want:   &Filter{Must: []Condition{{Field: "rank", Value: int64(3)}}},
		},
		{
			name:   "native int",
			fields: map[string]any{"rank": 7},
			want:   &Filter{Must: []Condition{{Field: "rank", Value: int64(7)}}},
		},
		{
			name:   "json.Number",
			fields: map[string]any{"rank": json.Number("12")},
			want:   &Filter{Must: []Condition{{Field: "rank", Value: int64(12)}}},
		},
		{
			name:    "fractional number",
			fields:  map[string]any{"score": 0.5},
			wantErr: "not an integer",
		},
		{
			name:    "null value",
			fields:  map[string]any{"location": nil},
			wantErr: "cannot be null",
		},
		{
			name:    "nested object",
			fields:  map[string]any{"meta": map[string]any{"a": 1}},
			wantErr: "unsupported value type",
		},
		{
			name:    "list value",
			fields:  map[string]any{"categories": []any{"a", "b"}},
			wantErr: "unsupported value type",
		},
		{
			name:    "empty field name",
			fields:  map[string]any{"": "x"},
			wantErr: "field name cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildFilter(tt.fields)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildFilter_OrderIndependent(t *testing.T) {
	a, err := BuildFilter(map[string]any{"x": "1", "y": true, "z": 3})
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		b, err := BuildFilter(map[string]any{"z": 3, "y": true, "x": "1"})
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestFilter_And(t *testing.T) {
	vis := Equal("allow_reference", true)
	custom := &Filter{Must: []Condition{{Field: "categories", Value: "a"}}}

	got := vis.And(custom)
	assert.Equal(t, []Condition{
		{Field: "allow_reference", Value: true},
		{Field: "categories", Value: "a"},
	}, got.Must)
	assert.Len(t, vis.Must, 1, "receiver is not modified")

	var empty *Filter
	assert.Nil(t, empty.And(nil))
	assert.Equal(t, vis.Must, empty.And(vis).Must)
	assert.True(t, empty.IsEmpty())
	assert.True(t, (&Filter{}).IsEmpty())
}

func TestEnrich(t *testing.T) {
	in := Payload{
		"allow_reference": true,
		"categories":      []string{"a"},
		"original_id":     "spoofed",
	}

	out := Enrich(in, "user:42")

	assert.Equal(t, "user:42", out[OriginalIDField], "caller value is overwritten")
	assert.Equal(t, true, out["allow_reference"])
	assert.Equal(t, []string{"a"}, out["categories"])
	assert.Equal(t, "spoofed", in[OriginalIDField], "input is not mutated")

	id, ok := out.OriginalID()
	assert.True(t, ok)
	assert.Equal(t, "user:42", id)

	empty := Enrich(Payload{}, "doc-1")
	assert.Equal(t, Payload{OriginalIDField: "doc-1"}, empty)
}

func TestPayload_OriginalID(t *testing.T) {
	_, ok := Payload{}.OriginalID()
	assert.False(t, ok)
	_, ok = Payload{OriginalIDField: 42}.OriginalID()
	assert.False(t, ok)
	_, ok = Payload{OriginalIDField: ""}.OriginalID()
	assert.False(t, ok)
}

func TestReconcile(t *testing.T) {
	hits := []Hit{
		{ID: "uuid-1", Score: 0.99, Payload: Payload{OriginalIDField: "doc-1"}},
		{ID: "uuid-2", Score: 0.80, Payload: Payload{"location": "x"}},
		{ID: "uuid-3", Score: 0.75, Payload: nil},
		{ID: "uuid-4", Score: 0.70, Payload: Payload{OriginalIDField: ""}},
		{ID: "uuid-5", Score: 0.60, Payload: Payload{OriginalIDField: "doc-5"}},
	}

	results, degraded := Reconcile(hits, OriginalIDField)

	assert.Equal(t, []Result{
		{ID: "doc-1", Score: 0.99},
		{ID: "uuid-2", Score: 0.80},
		{ID: "uuid-3", Score: 0.75},
		{ID: "uuid-4", Score: 0.70},
		{ID: "doc-5", Score: 0.60},
	}, results, "order is preserved")
	assert.Equal(t, []string{"uuid-2", "uuid-3", "uuid-4"}, degraded)
}

func TestReconcile_Empty(t *testing.T) {
	results, degraded := Reconcile(nil, OriginalIDField)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Nil(t, degraded)
}
