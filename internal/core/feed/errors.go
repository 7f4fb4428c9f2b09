package feed

import (
	"context"
	"errors"
	"fmt"

	"Collage/internal/core/collages"
	"Collage/internal/core/viewed"
)

// Errors
var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrViewerNotFound         = errors.New("viewer not found")
	ErrInvalidCursor          = errors.New("invalid cursor")
)

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// StoreError is a storage I/O failure. The whole request may be retried.
type StoreError struct {
	Err error
	Op  string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a retryable storage failure
func IsTransient(err error) bool {
	var target *StoreError
	return errors.As(err, &target)
}

// wrapStoreError passes domain errors through and marks everything else as a store failure
func wrapStoreError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrAuthenticationRequired),
		errors.Is(err, ErrViewerNotFound),
		errors.Is(err, ErrInvalidCursor),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, collages.ErrCollageNotFound),
		errors.Is(err, viewed.ErrViewerRequired),
		IsValidationError(err),
		IsTransient(err):
		return err
	}
	return &StoreError{Op: op, Err: err}
}
