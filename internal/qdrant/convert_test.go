package qdrant

import (
	"encoding/json"
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/fyrsmithlabs/vectorgate/internal/gateway"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"string slice", []string{"a", "b"}, []any{"a", "b"}},
		{"int slice", []int{1, 2}, []any{1, 2}},
		{"float slice", []float64{0.5}, []any{0.5}},
		{"bool slice", []bool{true}, []any{true}},
		{"nested", map[string]any{"tags": []string{"x"}}, map[string]any{"tags": []any{"x"}}},
		{"json int", json.Number("42"), int64(42)},
		{"json float", json.Number("0.25"), 0.25},
		{"whole float", float64(2024), int64(2024)},
		{"whole float32", float32(3), int64(3)},
		{"fractional float", 0.5, 0.5},
		{"huge float", 1e20, 1e20},
		{"whole floats in slice", []float64{1, 1.5}, []any{int64(1), 1.5}},
		{"decoded json list", []any{float64(2), "x"}, []any{int64(2), "x"}},
		{"scalar", "berlin", "berlin"},
		{"nil", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalize(tt.in))
		})
	}
}

func TestConvertPayload_RoundTrip(t *testing.T) {
	in := gateway.Payload{
		"original_id":     "user:42",
		"allow_reference": true,
		"categories":      []string{"a", "b"},
		"rank":            7,
		"score":           0.5,
		"meta":            map[string]any{"source": "crawler"},
		"missing":         nil,
	}

	values, err := convertPayload(in)
	require.NoError(t, err)

	out := extractPayload(values)
	assert.Equal(t, gateway.Payload{
		"original_id":     "user:42",
		"allow_reference": true,
		"categories":      []any{"a", "b"},
		"rank":            int64(7),
		"score":           0.5,
		"meta":            map[string]any{"source": "crawler"},
		"missing":         nil,
	}, out)
}

func TestConvert_JSONIntegerStoredAndFiltered(t *testing.T) {
	var body struct {
		Payload map[string]any `json:"payload"`
		Filter  map[string]any `json:"filter"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"payload":{"year":2024},"filter":{"year":2024}}`), &body))
	require.IsType(t, float64(0), body.Payload["year"])

	stored, err := convertPayload(body.Payload)
	require.NoError(t, err)
	assert.Equal(t, int64(2024), stored["year"].GetIntegerValue())
	assert.IsType(t, &qdrant.Value_IntegerValue{}, stored["year"].GetKind())

	built, err := gateway.BuildFilter(body.Filter)
	require.NoError(t, err)
	f := convertFilter(built)
	require.Len(t, f.GetMust(), 1)
	assert.Equal(t, stored["year"].GetIntegerValue(), f.GetMust()[0].GetField().GetMatch().GetInteger())
}

func TestConvertFilter(t *testing.T) {
	assert.Nil(t, convertFilter(nil))
	assert.Nil(t, convertFilter(&gateway.Filter{}))

	f := convertFilter(&gateway.Filter{Must: []gateway.Condition{
		{Field: "allow_reference", Value: false},
		{Field: "n", Value: 9},
	}})
	require.Len(t, f.GetMust(), 2)
	assert.Equal(t, "allow_reference", f.GetMust()[0].GetField().GetKey())
	assert.False(t, f.GetMust()[0].GetField().GetMatch().GetBoolean())
	assert.Equal(t, int64(9), f.GetMust()[1].GetField().GetMatch().GetInteger())
}

func TestConvertFilter_Wire(t *testing.T) {
	got := convertFilter(&gateway.Filter{Must: []gateway.Condition{
		{Field: "allow_reference", Value: true},
		{Field: "categories", Value: "a"},
		{Field: "rank", Value: int64(3)},
	}})
	want := &qdrant.Filter{Must: []*qdrant.Condition{
		qdrant.NewMatchBool("allow_reference", true),
		qdrant.NewMatchKeyword("categories", "a"),
		qdrant.NewMatchInt("rank", 3),
	}}
	assert.True(t, proto.Equal(want, got), "got %v", got)
}

func TestConvertPoint(t *testing.T) {
	got, err := convertPoint(gateway.Point{
		ID:      "ace1adb9-be56-5a62-8062-daf9fda08978",
		Vector:  []float32{0.1, 0.2, 0.3},
		Payload: gateway.Payload{"original_id": "user:42", "categories": []string{"a"}},
	})
	require.NoError(t, err)

	want := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID("ace1adb9-be56-5a62-8062-daf9fda08978"),
		Vectors: qdrant.NewVectors(0.1, 0.2, 0.3),
		Payload: qdrant.NewValueMap(map[string]any{
			"original_id": "user:42",
			"categories":  []any{"a"},
		}),
	}
	assert.True(t, proto.Equal(want, got), "got %v", got)

	_, err = convertPoint(gateway.Point{ID: "x", Payload: gateway.Payload{"ch": make(chan int)}})
	assert.Error(t, err)
}

func TestExtractPointID(t *testing.T) {
	assert.Equal(t, "", extractPointID(nil))
	assert.Equal(t, "4eede6be-fccf-57a5-af33-ec7eeda58d5d", extractPointID(qdrant.NewIDUUID("4eede6be-fccf-57a5-af33-ec7eeda58d5d")))
	assert.Equal(t, "12", extractPointID(qdrant.NewIDNum(12)))
}

func TestExtractVectorOutput(t *testing.T) {
	assert.Nil(t, extractVectorOutput(nil))

	out := &qdrant.VectorsOutput{VectorsOptions: &qdrant.VectorsOutput_Vector{
		Vector: &qdrant.VectorOutput{Vector: &qdrant.VectorOutput_Dense{Dense: &qdrant.DenseVector{Data: []float32{1, 2}}}},
	}}
	assert.Equal(t, []float32{1, 2}, extractVectorOutput(out))
}

func TestConvertDistance(t *testing.T) {
	d, err := convertDistance(gateway.DistanceCosine)
	require.NoError(t, err)
	assert.Equal(t, qdrant.Distance_Cosine, d)

	_, err = convertDistance("dot")
	assert.Error(t, err)
}
