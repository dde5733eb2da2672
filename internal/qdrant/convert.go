package qdrant

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"github.com/fyrsmithlabs/vectorgate/internal/gateway"
)

func convertDistance(d gateway.Distance) (qdrant.Distance, error) {
	switch d {
	case gateway.DistanceCosine, "":
		return qdrant.Distance_Cosine, nil
	default:
		return 0, fmt.Errorf("unsupported distance %q", d)
	}
}

func convertPoint(p gateway.Point) (*qdrant.PointStruct, error) {
	payload, err := convertPayload(p.Payload)
	if err != nil {
		return nil, fmt.Errorf("point %s: %w", p.ID, err)
	}
	return &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(p.ID),
		Vectors: qdrant.NewVectors(p.Vector...),
		Payload: payload,
	}, nil
}

func convertPayload(p gateway.Payload) (map[string]*qdrant.Value, error) {
	out := make(map[string]*qdrant.Value, len(p))
	for k, v := range p {
		val, err := qdrant.NewValue(normalize(v))
		if err != nil {
			return nil, fmt.Errorf("payload field %q: %w", k, err)
		}
		out[k] = val
	}
	return out, nil
}

// normalize rewrites values qdrant.NewValue does not accept into ones it
// does. Typed slices become []any and json.Number becomes int64 or float64.
// Whole floats are stored as integers so that integer match conditions,
// which is what BuildFilter emits for numbers, find them.
func normalize(v any) any {
	switch val := v.(type) {
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = normalize(e)
		}
		return out
	case []float64:
		out := make([]any, len(val))
		for i, f := range val {
			out[i] = wholeNumber(f, f)
		}
		return out
	case []int64:
		out := make([]any, len(val))
		for i, n := range val {
			out[i] = n
		}
		return out
	case []int:
		out := make([]any, len(val))
		for i, n := range val {
			out[i] = n
		}
		return out
	case []bool:
		out := make([]any, len(val))
		for i, b := range val {
			out[i] = b
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = normalize(e)
		}
		return out
	case gateway.Payload:
		return normalize(map[string]any(val))
	case float64:
		return wholeNumber(val, val)
	case float32:
		return wholeNumber(float64(val), val)
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	default:
		return v
	}
}

// wholeNumber returns f as int64 when it has no fractional part and fits
// the exactly representable range, otherwise orig.
func wholeNumber(f float64, orig any) any {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return orig
	}
	return int64(f)
}

// convertFilter maps equality conditions to match conditions. On array
// fields Qdrant matches when any element equals the value.
func convertFilter(f *gateway.Filter) *qdrant.Filter {
	if f.IsEmpty() {
		return nil
	}
	must := make([]*qdrant.Condition, 0, len(f.Must))
	for _, c := range f.Must {
		must = append(must, convertCondition(c))
	}
	return &qdrant.Filter{Must: must}
}

func convertCondition(c gateway.Condition) *qdrant.Condition {
	switch v := c.Value.(type) {
	case bool:
		return qdrant.NewMatchBool(c.Field, v)
	case int64:
		return qdrant.NewMatchInt(c.Field, v)
	case int:
		return qdrant.NewMatchInt(c.Field, int64(v))
	case string:
		return qdrant.NewMatchKeyword(c.Field, v)
	default:
		// BuildFilter only emits the types above.
		return qdrant.NewMatchKeyword(c.Field, fmt.Sprint(v))
	}
}

func convertScoredPoint(p *qdrant.ScoredPoint) gateway.Hit {
	return gateway.Hit{
		ID:      extractPointID(p.GetId()),
		Score:   p.GetScore(),
		Payload: extractPayload(p.GetPayload()),
		Vector:  extractVectorOutput(p.GetVectors()),
	}
}

func extractPointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if u := id.GetUuid(); u != "" {
		return u
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

func extractVectorOutput(vectors *qdrant.VectorsOutput) []float32 {
	vec := vectors.GetVector()
	if vec == nil {
		return nil
	}
	if dense := vec.GetDense(); dense != nil {
		return dense.GetData()
	}
	return vec.GetData() //nolint:staticcheck // older servers fill the flat field
}

func extractPayload(payload map[string]*qdrant.Value) gateway.Payload {
	if payload == nil {
		return nil
	}
	out := make(gateway.Payload, len(payload))
	for k, v := range payload {
		out[k] = extractValue(v)
	}
	return out
}

func extractValue(v *qdrant.Value) any {
	if v == nil {
		return nil
	}
	switch val := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_ListValue:
		values := val.ListValue.GetValues()
		out := make([]any, len(values))
		for i, e := range values {
			out[i] = extractValue(e)
		}
		return out
	case *qdrant.Value_StructValue:
		fields := val.StructValue.GetFields()
		out := make(map[string]any, len(fields))
		for k, e := range fields {
			out[k] = extractValue(e)
		}
		return out
	default:
		return nil
	}
}
