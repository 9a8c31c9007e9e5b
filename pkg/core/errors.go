// Package core provides the engine client tying together intent
// tracking, memory extraction, storage, and context assembly.
package core

import (
	"errors"
	"fmt"
)

// Predefined errors for common failure scenarios.
var (
	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnectionFailed indicates that a storage backend connection failed.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrInvalidInput indicates that the provided input is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorageOperation indicates that a storage operation failed.
	ErrStorageOperation = errors.New("storage operation failed")

	// ErrExtractionFailed indicates that memory extraction failed outright.
	ErrExtractionFailed = errors.New("extraction failed")
)

// EngineError wraps errors with operation context.
//
// Example:
//
//	err := &EngineError{Op: "Remember", Err: ErrStorageOperation}
//	// Error() returns: "cortexmem: Remember: storage operation failed"
type EngineError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
//
// The format is: "cortexmem: <Op>: <Err>"
func (e *EngineError) Error() string {
	return fmt.Sprintf("cortexmem: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error, enabling errors.Is and errors.As.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewEngineError creates an EngineError wrapping the given error.
// Returns nil if err is nil, so it can wrap return values directly.
func NewEngineError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &EngineError{Op: op, Err: err}
}
