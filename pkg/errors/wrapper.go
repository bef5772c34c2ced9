package errors

import (
	"fmt"
)

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// WrapWithType wraps an error with a specific error type
func WrapWithType(err error, errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:       errType,
		Code:       code,
		Message:    message,
		Err:        err,
		Retryable:  IsTransient(errType),
		StatusCode: statusForType(errType),
	}
}

// WrapInternal wraps an internal error
func WrapInternal(err error, message string) *AppError {
	return WrapWithType(err, ErrorTypeInternal, CodeInternal, message)
}

// WrapValidation wraps a validation error
func WrapValidation(err error, message string) *AppError {
	return WrapWithType(err, ErrorTypeValidation, CodeValidation, message)
}

// WrapExternal wraps an upstream platform error
func WrapExternal(err error, service, message string) *AppError {
	appErr := WrapWithType(err, ErrorTypeExternal, CodeExternal, message)
	appErr.WithDetail("service", service)
	return appErr
}

// WrapTimeout wraps a timeout error
func WrapTimeout(err error, operation string) *AppError {
	appErr := WrapWithType(err, ErrorTypeTimeout, CodeTimeout, "Operation timeout")
	appErr.WithDetail("operation", operation)
	return appErr
}

// IsTransient determines if an error type is transient
func IsTransient(errType ErrorType) bool {
	switch errType {
	case ErrorTypeTransient, ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeExternal:
		return true
	default:
		return false
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return New(ErrorTypeValidation, CodeValidation, message)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) *AppError {
	return New(ErrorTypeNotFound, CodeNotFound, fmt.Sprintf("%s not found", resource))
}
