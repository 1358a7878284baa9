// Package errors provides error codes and typed errors for the resource core.
// This is a leaf package with no internal dependencies, imported by the cache,
// pool, memory, and prefetch packages without causing circular imports.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents the class of failure that occurred.
type ErrorCode int

const (
	// ErrConfiguration indicates invalid construction parameters.
	// Fatal at startup, never retried.
	ErrConfiguration ErrorCode = iota + 1

	// ErrPoolExhausted indicates a resource acquire timed out.
	// Recoverable: the caller may retry or degrade.
	ErrPoolExhausted

	// ErrCreationFailed indicates a resource factory failed.
	// Retried once internally before being surfaced.
	ErrCreationFailed

	// ErrMappingFailed indicates a file mapping failed.
	// Degrades to "no mapping available", never fatal.
	ErrMappingFailed

	// ErrPrefetchItemFailed indicates a single prefetch attempt failed.
	// Isolated per item and logged; never propagates to foreground callers.
	ErrPrefetchItemFailed

	// ErrClosed indicates an operation on a closed component.
	ErrClosed
)

// String returns a human-readable name for the error code.
func (c ErrorCode) String() string {
	switch c {
	case ErrConfiguration:
		return "Configuration"
	case ErrPoolExhausted:
		return "PoolExhausted"
	case ErrCreationFailed:
		return "CreationFailed"
	case ErrMappingFailed:
		return "MappingFailed"
	case ErrPrefetchItemFailed:
		return "PrefetchItemFailed"
	case ErrClosed:
		return "Closed"
	default:
		return fmt.Sprintf("Unknown(%d)", c)
	}
}

// CoreError is a typed error carrying a code, the failing operation,
// and an optional wrapped cause.
type CoreError struct {
	Code ErrorCode
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *CoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Op)
}

// Unwrap returns the wrapped cause, if any.
func (e *CoreError) Unwrap() error {
	return e.Err
}

// New creates a CoreError with the given code and operation description.
func New(code ErrorCode, op string) *CoreError {
	return &CoreError{Code: code, Op: op}
}

// Newf creates a CoreError with a formatted operation description.
func Newf(code ErrorCode, format string, args ...any) *CoreError {
	return &CoreError{Code: code, Op: fmt.Sprintf(format, args...)}
}

// Wrap creates a CoreError wrapping an underlying cause.
func Wrap(code ErrorCode, op string, err error) *CoreError {
	return &CoreError{Code: code, Op: op, Err: err}
}

// IsCode reports whether err (or any error in its chain) is a CoreError
// with the given code.
func IsCode(err error, code ErrorCode) bool {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// CodeOf returns the error code of err, or 0 if err is not a CoreError.
func CodeOf(err error) ErrorCode {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return 0
}
