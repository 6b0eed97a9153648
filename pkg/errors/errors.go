package errors

import "fmt"

type baseError struct {
	message string
	cause   error
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

func (e *baseError) Unwrap() error {
	return e.cause
}

// ValidationError represents invalid operator input (HTTP 400)
type ValidationError struct {
	baseError
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{baseError{message: message}}
}

func NewValidationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{baseError{message: fmt.Sprintf(format, args...)}}
}

// NotFoundError represents a missing row or chat (HTTP 404)
type NotFoundError struct {
	baseError
}

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{baseError{message: message}}
}

func NewNotFoundErrorf(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{baseError{message: fmt.Sprintf(format, args...)}}
}

// ConflictError represents a uniqueness violation (HTTP 409)
type ConflictError struct {
	baseError
}

func NewConflictError(message string) *ConflictError {
	return &ConflictError{baseError{message: message}}
}

// InternalError represents a storage or programming failure (HTTP 500)
type InternalError struct {
	baseError
}

func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{baseError{message: message, cause: cause}}
}

// ServiceUnavailableError represents a disconnected platform or store (HTTP 503)
type ServiceUnavailableError struct {
	baseError
}

func NewServiceUnavailableError(message string, cause error) *ServiceUnavailableError {
	return &ServiceUnavailableError{baseError{message: message, cause: cause}}
}
