package framegraph

import (
	"errors"
	"fmt"
)

// Runtime errors returned by Graph.Execute.
var (
	// ErrAllocation is returned when the transient pool cannot provide a
	// backend object.
	ErrAllocation = errors.New("framegraph: transient allocation failed")

	// ErrBackend is returned when a backend call fails.
	ErrBackend = errors.New("framegraph: backend failure")

	// ErrNoBackend is returned when Execute is called on a graph without a
	// backend.
	ErrNoBackend = errors.New("framegraph: no backend configured")

	// ErrNoPool is returned when transient resources are required and the
	// graph has no transient pool.
	ErrNoPool = errors.New("framegraph: no transient pool configured")
)

// ContractError describes a violation of the graph API contract. The graph
// panics with a *ContractError: such violations are bugs in the calling
// code, not conditions to recover from.
type ContractError struct {
	// Op is the operation that detected the violation.
	Op string

	// Msg describes the violation.
	Msg string
}

// Error implements the error interface.
func (e *ContractError) Error() string {
	return "framegraph: " + e.Op + ": " + e.Msg
}

// violation panics with a *ContractError.
func violation(op, format string, args ...any) {
	panic(&ContractError{Op: op, Msg: fmt.Sprintf(format, args...)})
}

// backendError wraps a backend failure with ErrBackend and the operation.
func backendError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrBackend, op, err)
}
