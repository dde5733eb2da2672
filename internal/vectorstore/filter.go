package vectorstore

import (
	"github.com/fyrsmithlabs/vectorgate/internal/gateway"
)

// Matches reports whether payload satisfies every condition of f. A
// condition on an array field matches when any element equals the value,
// mirroring Qdrant's match semantics. Numbers compare by value across int
// and float representations.
func Matches(payload gateway.Payload, f *gateway.Filter) bool {
	if f.IsEmpty() {
		return true
	}
	for _, c := range f.Must {
		v, ok := payload[c.Field]
		if !ok || !matchValue(v, c.Value) {
			return false
		}
	}
	return true
}

func matchValue(have, want any) bool {
	switch h := have.(type) {
	case []any:
		for _, e := range h {
			if scalarEqual(e, want) {
				return true
			}
		}
		return false
	case []string:
		for _, e := range h {
			if scalarEqual(e, want) {
				return true
			}
		}
		return false
	default:
		return scalarEqual(have, want)
	}
}

func scalarEqual(have, want any) bool {
	if hn, ok := number(have); ok {
		wn, ok := number(want)
		return ok && hn == wn
	}
	switch h := have.(type) {
	case string:
		w, ok := want.(string)
		return ok && h == w
	case bool:
		w, ok := want.(bool)
		return ok && h == w
	}
	return false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}
