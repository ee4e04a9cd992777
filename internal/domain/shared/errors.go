// Package shared contains common domain errors used across the assistant.
// This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base error kinds that can be checked with errors.Is().
var (
	// Lookup errors
	ErrNotFound         = errors.New("not found")
	ErrTableUnavailable = errors.New("table unavailable")

	// Input errors
	ErrInvalidInput   = errors.New("invalid input")
	ErrMalformedInput = errors.New("malformed input")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")

	// External provider errors
	ErrConfigurationMissing = errors.New("configuration missing")
	ErrServiceUnavailable   = errors.New("service unavailable")
	ErrUnintelligible       = errors.New("speech not recognised")
	ErrRateLimited          = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "student", "speech", "lookup"
	Op      string // Operation that failed, e.g., "GetProfile"
	Kind    error  // Base error kind for errors.Is() checking
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

// Is implements errors.Is() matching against both the kind and the cause.
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

// Student record errors
var (
	ErrStudentNotFound     = NewDomainError("student", "Find", ErrNotFound, "student not found")
	ErrInvalidRegistration = NewDomainError("student", "Validate", ErrInvalidInput, "registration number is empty")
	ErrInvalidCredentials  = NewDomainError("auth", "Verify", ErrUnauthorized, "invalid registration number")
	ErrProfilesUnavailable = NewDomainError("student", "LoadProfiles", ErrTableUnavailable, "Failed to load student data")
	ErrCalendarUnavailable = NewDomainError("student", "LoadCalendar", ErrTableUnavailable, "Failed to load tasks data")
	ErrProfileNotFound     = NewDomainError("student", "GetProfile", ErrNotFound, "User profile not found")
)

// External service errors
var (
	ErrSearchUnconfigured     = NewDomainError("websearch", "Search", ErrConfigurationMissing, "web search is not configured")
	ErrGenerativeUnconfigured = NewDomainError("generative", "Generate", ErrConfigurationMissing, "generative AI is not configured")
	ErrSpeechUnconfigured     = NewDomainError("speech", "Transcribe", ErrConfigurationMissing, "speech recognition is not configured")
	ErrAudioMissing           = NewDomainError("speech", "Decode", ErrMalformedInput, "No audio data received")
	ErrAudioMalformed         = NewDomainError("speech", "Decode", ErrMalformedInput, "invalid audio payload")
	ErrAudioUnintelligible    = NewDomainError("speech", "Transcribe", ErrUnintelligible, "could not understand audio")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConfigurationMissing checks if a required external credential is absent.
func IsConfigurationMissing(err error) bool {
	return errors.Is(err, ErrConfigurationMissing)
}

// IsProviderUnavailable checks if the error came from a failing external provider.
func IsProviderUnavailable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrRateLimited)
}

// IsMalformedInput checks if the error was caused by an unparseable payload.
func IsMalformedInput(err error) bool {
	return errors.Is(err, ErrMalformedInput) ||
		errors.Is(err, ErrInvalidInput)
}
