package workflow

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a requested entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a status change is not allowed
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrValidation is returned when accompanying data is missing or malformed
	ErrValidation = errors.New("validation failed")

	// ErrConcurrencyConflict is returned when an optimistic write lost a race
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrPersistence is returned when the store failed for infrastructure reasons
	ErrPersistence = errors.New("persistence failure")

	// ErrPermissionDenied is returned when a view or edit predicate fails
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidStatus is returned when a status string is not one of the stored values
	ErrInvalidStatus = errors.New("invalid status")
)

// TransitionError describes why a transition was rejected
type TransitionError struct {
	From   Status
	To     Status
	Role   Role
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidTransition, e.Reason)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// ValidationError carries field level reasons
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates a validation error for a single field
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// PersistenceError wraps an infrastructure failure with the operation that failed
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPersistence, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

// WrapPersistence classifies a repository error. Errors already carrying a
// taxonomy sentinel pass through unchanged.
func WrapPersistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConcurrencyConflict) ||
		errors.Is(err, ErrPersistence) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsRetryable reports whether the caller may re-read and try again
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict) || errors.Is(err, ErrPersistence)
}
