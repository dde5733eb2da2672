package gateway

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	// ErrValidation marks bad input. The engine was not called.
	ErrValidation = errors.New("validation failed")

	// ErrProvisioning marks a collection that could not be listed or created.
	ErrProvisioning = errors.New("collection provisioning failed")

	// ErrEngine marks a failed upsert, search or delete.
	ErrEngine = errors.New("vector engine error")
)

// Error carries the operation, the kind and the underlying cause.
type Error struct {
	Op   string // store, search, delete
	Kind error  // one of ErrValidation, ErrProvisioning, ErrEngine
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes the cause so engine-specific errors stay inspectable.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the error kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func validationError(op, format string, args ...any) error {
	return &Error{Op: op, Kind: ErrValidation, Err: fmt.Errorf(format, args...)}
}

func provisioningError(op string, err error) error {
	return &Error{Op: op, Kind: ErrProvisioning, Err: err}
}

func engineError(op string, err error) error {
	return &Error{Op: op, Kind: ErrEngine, Err: err}
}
