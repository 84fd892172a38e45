package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches domain errors by code so errors.Is works across wrapping with
// NewDomainErrorWithCause.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"

	// Query-engine failure modes. Retrieval unavailability degrades to the
	// no-context path; the two generation codes decide fallback vs surface.
	ErrCodeRetrievalUnavailable = "RETRIEVAL_UNAVAILABLE"
	ErrCodeGenerationStart      = "GENERATION_START_FAILED"
	ErrCodeGenerationStream     = "GENERATION_STREAM_FAILED"
)

// Validation errors
var (
	ErrQuestionRequired = NewDomainError(ErrCodeValidation, "question is required")
	ErrInvalidTopK      = NewDomainError(ErrCodeValidation, "top-k must be at least 1")
	ErrInvalidBudget    = NewDomainError(ErrCodeValidation, "prompt budget must be positive")
	ErrEmptyAnswer      = NewDomainError(ErrCodeValidation, "model returned an empty answer")
	ErrInvalidAPIToken  = NewDomainError(ErrCodeUnauthorized, "invalid api token")
	ErrMissingAPIToken  = NewDomainError(ErrCodeUnauthorized, "missing api token")
)

// Query-engine errors
var (
	// ErrRetrievalUnavailable means the knowledge index could not be
	// consulted. Callers must treat this as "no context available", never as
	// a fatal error.
	ErrRetrievalUnavailable = NewDomainError(ErrCodeRetrievalUnavailable, "knowledge index unavailable")

	// ErrGenerationStart means the model call failed before any fragment was
	// produced; the session may still fall back to a synchronous call.
	ErrGenerationStart = NewDomainError(ErrCodeGenerationStart, "generation failed to start")

	// ErrGenerationStream means the model call failed after fragments were
	// already delivered; the session must surface a terminal error.
	ErrGenerationStream = NewDomainError(ErrCodeGenerationStream, "generation failed mid-stream")
)
