// Package core provides the CosmoOS dashboard client and its configuration.
package core

import (
	"errors"
	"fmt"

	"github.com/cosmoos/cosmo-go/pkg/storage"
)

// Predefined errors for common failure scenarios.
var (
	// ErrNotFound indicates that a requested record was not found. It is the
	// storage sentinel, so errors from any backend match it.
	ErrNotFound = storage.ErrNotFound

	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnectionFailed indicates that a connection to the storage backend failed.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrInvalidInput indicates that the provided input is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorageOperation indicates that a storage operation failed.
	ErrStorageOperation = errors.New("storage operation failed")

	// ErrUnknownDimension indicates that a dimension name is not one of
	// cognitive, physiological or reflection.
	ErrUnknownDimension = errors.New("unknown dimension")

	// ErrNoSnapshot indicates that a refresh failed and no previous snapshot
	// exists to fall back on.
	ErrNoSnapshot = errors.New("no snapshot available")
)

// CosmoError wraps errors with operation context.
//
// Example:
//
//	err := &CosmoError{
//	    Op:  "Refresh",
//	    Err: ErrUnknownDimension,
//	}
//	// Error() returns: "cosmo: Refresh: unknown dimension"
type CosmoError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
//
// The format is: "cosmo: <Op>: <Err>"
func (e *CosmoError) Error() string {
	return fmt.Sprintf("cosmo: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *CosmoError) Unwrap() error {
	return e.Err
}

// NewCosmoError creates a new CosmoError wrapping the given error.
//
// If err is nil, returns nil, so it can be used unconditionally:
//
//	return NewCosmoError("NewClient", err)
func NewCosmoError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CosmoError{
		Op:  op,
		Err: err,
	}
}
