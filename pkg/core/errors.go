package core

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors
var (
	// ErrNotFound is returned when an update or relation endpoint
	// references a record that does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConstraint is returned on duplicate ids and broken uniqueness
	// guarantees (duplicate create, strict bulk insert with duplicates).
	ErrConstraint = errors.New("constraint violation")

	// ErrMalformedID is returned when a record id string is not of the
	// form "table:key".
	ErrMalformedID = errors.New("malformed record id")

	// ErrInvalidReference is returned when a value cannot be normalized
	// to a record id.
	ErrInvalidReference = errors.New("invalid record reference")

	// ErrSerialization is returned when a structured field fails to decode.
	ErrSerialization = errors.New("serialization error")

	// ErrQuery is returned on malformed SQL or missing bound parameters.
	ErrQuery = errors.New("query error")

	// ErrConnection is returned when the storage handle is unavailable.
	ErrConnection = errors.New("connection error")

	// ErrStoreClosed is returned when trying to use a closed store.
	ErrStoreClosed = errors.New("store is closed")
)

// StoreError wraps errors with operation context
type StoreError struct {
	Op  string // Operation name
	Err error  // Underlying error
}

// Error implements the error interface
func (e *StoreError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("notebase: %v", e.Err)
	}
	return fmt.Sprintf("notebase: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target
func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// wrapError wraps an error with operation context
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// constraintErr maps a driver error to ErrConstraint when it reports a
// uniqueness or integrity violation, and returns it unchanged otherwise.
func constraintErr(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "constraint") || strings.Contains(msg, "unique") {
		return fmt.Errorf("%w: %v", ErrConstraint, err)
	}
	return err
}
