package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
)

// Condition requires payload field Field to equal Value. Value is a string,
// a bool or an int64. For array fields the engines match when any element
// equals Value.
type Condition struct {
	Field string
	Value any
}

// Filter is a conjunction of equality conditions.
type Filter struct {
	Must []Condition
}

// Equal returns a single-condition filter.
func Equal(field string, value any) *Filter {
	return &Filter{Must: []Condition{{Field: field, Value: value}}}
}

// And returns a new filter requiring both f and other. Either may be nil.
func (f *Filter) And(other *Filter) *Filter {
	if f.IsEmpty() && other.IsEmpty() {
		return nil
	}
	out := &Filter{}
	if f != nil {
		out.Must = append(out.Must, f.Must...)
	}
	if other != nil {
		out.Must = append(out.Must, other.Must...)
	}
	return out
}

// IsEmpty reports whether f has no conditions.
func (f *Filter) IsEmpty() bool {
	return f == nil || len(f.Must) == 0
}

// BuildFilter turns a field-to-value map into a conjunction of equality
// conditions sorted by field name. An empty map yields a nil filter.
func BuildFilter(fields map[string]any) (*Filter, error) {
	if len(fields) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "" {
			return nil, errors.New("filter field name cannot be empty")
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	f := &Filter{Must: make([]Condition, 0, len(keys))}
	for _, k := range keys {
		v, err := normalizeValue(fields[k])
		if err != nil {
			return nil, fmt.Errorf("filter field %q: %w", k, err)
		}
		f.Must = append(f.Must, Condition{Field: k, Value: v})
	}
	return f, nil
}

// normalizeValue maps accepted filter values onto string, bool or int64.
// Numbers decoded from JSON arrive as float64 and are accepted when integral.
func normalizeValue(v any) (any, error) {
	switch t := v.(type) {
	case string, bool:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case uint32:
		return int64(t), nil
	case float32:
		return integral(float64(t))
	case float64:
		return integral(t)
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return nil, fmt.Errorf("number %s is not an integer", t)
		}
		return n, nil
	case nil:
		return nil, errors.New("value cannot be null")
	default:
		return nil, fmt.Errorf("unsupported value type %T (want string, bool or integer)", v)
	}
}

func integral(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return nil, fmt.Errorf("number %v is not an integer", f)
	}
	return int64(f), nil
}
