package gateway

// Result is a search hit in caller terms.
type Result struct {
	ID    string  `json:"id"`
	Score float32 `json:"score"`
}

// Reconcile maps engine hits back to caller ids, preserving order. The id is
// read from payload[idField]; hits without it fall back to the engine id,
// which is also returned in degraded so the caller can report it.
func Reconcile(hits []Hit, idField string) (results []Result, degraded []string) {
	results = make([]Result, 0, len(hits))
	for _, h := range hits {
		id, ok := h.Payload[idField].(string)
		if !ok || id == "" {
			id = h.ID
			degraded = append(degraded, h.ID)
		}
		results = append(results, Result{ID: id, Score: h.Score})
	}
	return results, degraded
}
