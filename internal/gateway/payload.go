package gateway

// OriginalIDField is the payload key carrying the caller's id. It is
// reserved: Enrich overwrites any value the caller put there.
const OriginalIDField = "original_id"

// Payload is the metadata stored with a vector.
type Payload map[string]any

// Enrich returns a copy of p with OriginalIDField set to externalID. p is
// not modified. The copy is shallow.
func Enrich(p Payload, externalID string) Payload {
	out := make(Payload, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	out[OriginalIDField] = externalID
	return out
}

// OriginalID returns the caller id stored in p, if any.
func (p Payload) OriginalID() (string, bool) {
	id, ok := p[OriginalIDField].(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
