package gateway

import (
	"fmt"

	"github.com/google/uuid"
)

// IDMapper derives engine point ids from caller ids. The mapping is a UUID
// version 5 over a fixed namespace: deterministic and not invertible.
type IDMapper struct {
	namespace uuid.UUID
}

// NewIDMapper returns a mapper for the given namespace UUID.
func NewIDMapper(namespace string) (*IDMapper, error) {
	ns, err := uuid.Parse(namespace)
	if err != nil {
		return nil, fmt.Errorf("invalid namespace %q: %w", namespace, err)
	}
	return &IDMapper{namespace: ns}, nil
}

// Map returns the internal id for externalID.
func (m *IDMapper) Map(externalID string) string {
	return uuid.NewSHA1(m.namespace, []byte(externalID)).String()
}
