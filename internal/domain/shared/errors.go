// Package shared contains common domain types, errors, events, and value objects
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
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrStateTransition  = errors.New("invalid state transition")
	ErrAlreadyProcessed = errors.New("already processed")
	ErrExpired          = errors.New("expired")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "enrollment", "grading", "pricing"
	Op      string // Operation that failed, e.g., "Propose", "Confirm"
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

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
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

// Catalog domain errors
var (
	ErrCourseNotFound   = NewDomainError("catalog", "Find", ErrNotFound, "course not found")
	ErrGroupNotFound    = NewDomainError("catalog", "FindGroup", ErrNotFound, "group not found")
	ErrSectionNotFound  = NewDomainError("catalog", "FindSection", ErrNotFound, "section not found")
	ErrContentNotFound  = NewDomainError("catalog", "FindContent", ErrNotFound, "content not found")
	ErrUnknownContent   = NewDomainError("catalog", "Score", ErrInvalidInput, "unknown content kind")
	ErrSectionInactive  = NewDomainError("catalog", "CheckSection", ErrInvalidState, "section is not active")
	ErrInvalidPrice     = NewDomainError("catalog", "Validate", ErrValueOutOfRange, "price must be positive")
	ErrCurrencyMismatch = NewDomainError("catalog", "Validate", ErrInvalidInput, "currency mismatch")
)

// Enrollment domain errors
var (
	ErrEnrollmentNotFound  = NewDomainError("enrollment", "Find", ErrNotFound, "enrollment not found")
	ErrEnrollmentExists    = NewDomainError("enrollment", "Create", ErrAlreadyExists, "enrollment already exists")
	ErrPaymentNotFound     = NewDomainError("enrollment", "FindPayment", ErrNotFound, "section payment not found")
	ErrPaymentNotPending   = NewDomainError("enrollment", "ProcessPayment", ErrInvalidState, "payment is not pending")
	ErrInvalidPaymentState = NewDomainError("enrollment", "Validate", ErrInvalidState, "invalid payment status")
)

// Grading domain errors
var (
	ErrContentGradeNotFound = NewDomainError("grading", "Find", ErrNotFound, "content grade not found")
	ErrSectionGradeNotFound = NewDomainError("grading", "FindSection", ErrNotFound, "section grade not found")
)

// Certificate domain errors
var (
	ErrCertificateNotFound = NewDomainError("certificate", "Find", ErrNotFound, "certificate not found")
	ErrCertificatePending  = NewDomainError("certificate", "Request", ErrAlreadyExists, "certificate request already pending")
	ErrNotEligible         = NewDomainError("certificate", "Request", ErrInvalidState, "student is not eligible for a certificate")
)

// Pricing domain errors
var (
	ErrPendingChangeNotFound = NewDomainError("pricing", "Find", ErrNotFound, "pending cost change not found")
	ErrPendingChangeExists   = NewDomainError("pricing", "Propose", ErrAlreadyExists, "a pending cost change already exists for this course")
	ErrChangeAlreadyResolved = NewDomainError("pricing", "Resolve", ErrInvalidState, "pending cost change already resolved")
	ErrNotCourseOwner        = NewDomainError("pricing", "Authorize", ErrUnauthorized, "caller is neither course owner nor admin")
)

// Settings domain errors
var (
	ErrSettingsNotFound = NewDomainError("settings", "Find", ErrNotFound, "platform settings not found")
)
