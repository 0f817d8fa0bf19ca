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

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
	ErrSignatureInvalid   = errors.New("signature invalid")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "profile", "billing", "skill"
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

// Profile domain errors
var (
	ErrProfileNotFound      = NewDomainError("profile", "Find", ErrNotFound, "profile not found")
	ErrProfileAlreadyExists = NewDomainError("profile", "Create", ErrAlreadyExists, "profile already exists")
	ErrInvalidEmail         = NewDomainError("profile", "Validate", ErrInvalidFormat, "invalid email address")
	ErrInvalidRole          = NewDomainError("profile", "Validate", ErrInvalidInput, "invalid role")
	ErrInvalidCredentials   = NewDomainError("profile", "Authenticate", ErrUnauthorized, "invalid email or password")
	ErrSessionNotFound      = NewDomainError("profile", "FindSession", ErrNotFound, "session not found or expired")
)

// Billing domain errors
var (
	ErrSubscriptionNotFound  = NewDomainError("billing", "Find", ErrNotFound, "subscription not found")
	ErrCustomerMissing       = NewDomainError("billing", "Lookup", ErrNotFound, "no billing customer for user")
	ErrWebhookSignature      = NewDomainError("billing", "Verify", ErrSignatureInvalid, "webhook signature verification failed")
	ErrEventAlreadyProcessed = NewDomainError("billing", "Reconcile", ErrAlreadyProcessed, "billing event already processed")
	ErrBillingUnavailable    = NewDomainError("billing", "Request", ErrServiceUnavailable, "billing provider is unavailable")
)

// Skill domain errors
var (
	ErrSkillNotFound      = NewDomainError("skill", "Find", ErrNotFound, "skill not found")
	ErrMasterStatNotFound = NewDomainError("skill", "FindStat", ErrNotFound, "master stat not found")
	ErrLevelTableEmpty    = NewDomainError("skill", "Levels", ErrInvalidState, "levels table is empty")
	ErrInvalidXPAmount    = NewDomainError("skill", "AwardXP", ErrNegativeValue, "XP amount must be positive")
)

// Mastery domain errors
var (
	ErrHabitNotFound        = NewDomainError("mastery", "FindHabit", ErrNotFound, "habit not found")
	ErrToolNotFound         = NewDomainError("mastery", "FindTool", ErrNotFound, "toolbox item not found")
	ErrHabitAlreadyAdopted  = NewDomainError("mastery", "AdoptHabit", ErrAlreadyExists, "habit already adopted")
	ErrHabitCompletedToday  = NewDomainError("mastery", "CompleteHabit", ErrAlreadyExists, "habit already completed today")
	ErrHabitNotActive       = NewDomainError("mastery", "CompleteHabit", ErrInvalidState, "habit is not active")
	ErrToolAlreadyInToolbox = NewDomainError("mastery", "AddTool", ErrAlreadyExists, "tool already in toolbox")
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

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}
