package qdrant

import (
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fyrsmithlabs/vectorgate/internal/gateway"
)

// mapError tags collection existence failures with the gateway sentinels.
// Qdrant reports both as gRPC status codes, older servers as InvalidArgument
// with a message.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	msg := strings.ToLower(st.Message())
	switch {
	case st.Code() == codes.AlreadyExists,
		st.Code() == codes.InvalidArgument && strings.Contains(msg, "already exists"):
		return fmt.Errorf("%w: %w", gateway.ErrCollectionExists, err)
	case st.Code() == codes.NotFound && strings.Contains(msg, "collection"),
		strings.Contains(msg, "doesn't exist") && strings.Contains(msg, "collection"):
		return fmt.Errorf("%w: %w", gateway.ErrCollectionNotFound, err)
	}
	return err
}
