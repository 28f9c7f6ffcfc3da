// Package shared contains common domain types, errors and events used across
// the growth, engagement, baby and notification packages.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrValueOutOfRange = errors.New("value out of range")

	// Lookup errors
	ErrUnsupported = errors.New("unsupported")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// External service errors
	ErrServiceUnavailable = errors.New("service unavailable")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g. "growth", "engagement", "baby"
	Op      string // Operation that failed, e.g. "ReferenceTable", "Load"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is matches both the kind and the wrapped error, and two DomainErrors with
// the same domain and operation and kind.
func (e *DomainError) Is(target error) bool {
	if t, ok := target.(*DomainError); ok {
		return e.Domain == t.Domain && e.Op == t.Op && e.Kind == t.Kind
	}
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Growth domain errors
var (
	ErrUnsupportedCombination = NewDomainError("growth", "ReferenceTable", ErrUnsupported, "no reference table for measurement kind and gender")
	ErrNoReferenceForAge      = NewDomainError("growth", "ReferencePoint", ErrNotFound, "no reference point for age")
	ErrUnknownMeasurementKind = NewDomainError("growth", "Validate", ErrInvalidInput, "unknown measurement kind")
	ErrUnknownGender          = NewDomainError("growth", "Validate", ErrInvalidInput, "unknown gender")
)

// Engagement domain errors
var (
	ErrEngagementNotFound = NewDomainError("engagement", "Load", ErrNotFound, "engagement state not found")
	ErrInvalidUserID      = NewDomainError("engagement", "Validate", ErrInvalidID, "invalid user ID")
	ErrInvalidPoints      = NewDomainError("engagement", "AwardPoints", ErrValidation, "points must be positive")
)

// Baby domain errors
var (
	ErrChildNotFound = NewDomainError("baby", "Find", ErrNotFound, "child not found")
	ErrInvalidChild  = NewDomainError("baby", "Validate", ErrValidation, "invalid child profile")
)

// Notification domain errors
var (
	ErrReminderExists = NewDomainError("notification", "Enqueue", ErrAlreadyExists, "reminder already queued")
)

// IsNotFound reports whether err is any not-found domain error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError reports whether err is a validation failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrInvalidID)
}
