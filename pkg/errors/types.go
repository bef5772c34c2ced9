package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInternal represents internal server errors
	ErrorTypeInternal ErrorType = "internal"

	// ErrorTypeValidation represents input validation errors
	ErrorTypeValidation ErrorType = "validation"

	// ErrorTypeNotFound represents resource not found errors
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeTimeout represents timeout errors
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeExternal represents upstream platform errors
	ErrorTypeExternal ErrorType = "external"

	// ErrorTypeTransient represents transient errors that can be retried
	ErrorTypeTransient ErrorType = "transient"

	// ErrorTypeCircuitOpen represents calls rejected by an open circuit breaker
	ErrorTypeCircuitOpen ErrorType = "circuit_open"
)

// AppError represents an application error with additional context
type AppError struct {
	Type       ErrorType         `json:"type"`
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	Err        error             `json:"-"`
	Retryable  bool              `json:"retryable"`
	StatusCode int               `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on code so callers can compare against the sentinel values below
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Detail returns a detail value or ""
func (e *AppError) Detail(key string) string {
	if e.Details == nil {
		return ""
	}
	return e.Details[key]
}

// New creates a new AppError
func New(errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:       errType,
		Code:       code,
		Message:    message,
		StatusCode: statusForType(errType),
		Retryable:  IsTransient(errType),
	}
}

// Common error instances
var (
	ErrInternalServer = New(ErrorTypeInternal, CodeInternal, "An internal server error occurred")
	ErrValidation     = New(ErrorTypeValidation, CodeValidation, "Validation failed")
	ErrNotFound       = New(ErrorTypeNotFound, CodeNotFound, "Resource not found")
	ErrTimeout        = New(ErrorTypeTimeout, CodeTimeout, "Request timeout")
	ErrExternal       = New(ErrorTypeExternal, CodeExternal, "External service error")
	ErrCircuitOpen    = New(ErrorTypeCircuitOpen, CodeCircuitOpen, "Circuit breaker open")
)

func statusForType(t ErrorType) int {
	switch t {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	case ErrorTypeExternal, ErrorTypeTransient:
		return http.StatusBadGateway
	case ErrorTypeCircuitOpen:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// GetType returns the error type
func GetType(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// GetCode returns the error code
func GetCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN_ERROR"
}

// GetStatusCode returns the HTTP status code for an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.StatusCode != 0 {
			return appErr.StatusCode
		}
	}
	return http.StatusInternalServerError
}

// As is a passthrough so callers need not import the standard errors package alongside this one
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Is is a passthrough for errors.Is
func Is(err, target error) bool {
	return errors.Is(err, target)
}
