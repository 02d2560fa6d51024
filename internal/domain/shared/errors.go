// Package shared contains common domain types, errors and events
// that are used across all domain packages. This package has zero external dependencies.
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
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "student", "ledger", "roster"
	Op      string // Operation that failed, e.g., "Create", "Update"
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

// Is implements errors.Is() matching. A DomainError matches its Kind,
// its wrapped Err, and any other DomainError with the same Domain and Message,
// so sentinels survive WithOp/Wrap decoration.
func (e *DomainError) Is(target error) bool {
	if t, ok := target.(*DomainError); ok && t.Domain == e.Domain && t.Message == e.Message {
		return true
	}
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// WithOp returns a copy of the error bound to a different operation.
func (e *DomainError) WithOp(op string) *DomainError {
	c := *e
	c.Op = op
	return &c
}

// Wrap returns a copy of the error carrying a detail cause.
func (e *DomainError) Wrap(err error) *DomainError {
	c := *e
	c.Err = err
	return &c
}

// Detail returns a copy of the error with a formatted detail cause.
func (e *DomainError) Detail(format string, args ...any) *DomainError {
	return e.Wrap(fmt.Errorf(format, args...))
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

// Score ledger errors
var (
	ErrInvalidScoreEvent = NewDomainError("ledger", "Validate", ErrValidation, "invalid score event")
	ErrUnknownEventID    = NewDomainError("ledger", "Find", ErrNotFound, "unknown event id")
	ErrDuplicateEventID  = NewDomainError("ledger", "Create", ErrAlreadyExists, "event id already used by this student")
)

// Student domain errors
var (
	ErrUnknownStudentID   = NewDomainError("student", "Find", ErrNotFound, "unknown student id")
	ErrInvalidStudent     = NewDomainError("student", "Validate", ErrValidation, "invalid student")
	ErrInvalidGrade       = NewDomainError("student", "Validate", ErrInvalidInput, "unknown grade")
	ErrStudentExists      = NewDomainError("student", "Add", ErrAlreadyExists, "student id already exists")
	ErrInvalidBadge       = NewDomainError("student", "AddBadge", ErrEmptyValue, "badge name is empty")
	ErrInvalidCredentials = NewDomainError("session", "Login", ErrUnauthorized, "invalid credentials")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsUnauthorized checks if the error is an authorization failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
