package errors

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// ClassifyError classifies an error for retry and circuit breaker logic
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ErrorTypeInternal
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrorTypeNotFound
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTypeTimeout
	}

	var syscallErr syscall.Errno
	if errors.As(err, &syscallErr) {
		switch syscallErr {
		case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.ECONNABORTED:
			return ErrorTypeTransient
		case syscall.ETIMEDOUT:
			return ErrorTypeTimeout
		}
	}

	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline exceeded") {
		return ErrorTypeTimeout
	}

	if strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "connection reset") ||
		strings.Contains(errMsg, "broken pipe") {
		return ErrorTypeTransient
	}

	if strings.Contains(errMsg, "rate limit") || strings.Contains(errMsg, "too many requests") {
		return ErrorTypeRateLimit
	}

	if strings.Contains(errMsg, "circuit breaker is open") || strings.Contains(errMsg, "too many requests in half-open") {
		return ErrorTypeCircuitOpen
	}

	if strings.Contains(errMsg, "not found") {
		return ErrorTypeNotFound
	}

	return ErrorTypeInternal
}

// ClassifyHTTPError classifies an upstream platform status code
func ClassifyHTTPError(statusCode int) ErrorType {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return ""
	case statusCode == http.StatusNotFound:
		return ErrorTypeNotFound
	case statusCode == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case statusCode >= 400 && statusCode < 500:
		return ErrorTypeValidation
	case statusCode == http.StatusBadGateway || statusCode == http.StatusServiceUnavailable:
		return ErrorTypeTransient
	case statusCode == http.StatusGatewayTimeout:
		return ErrorTypeTimeout
	case statusCode >= 500:
		return ErrorTypeExternal
	default:
		return ErrorTypeInternal
	}
}

// ShouldRetry determines if an error should be retried
func ShouldRetry(err error) bool {
	return IsTransient(ClassifyError(err))
}

// IsCircuitBreakerError determines if an error should count against a platform's breaker.
// Client errors such as an unknown address are the caller's problem, not the platform's.
func IsCircuitBreakerError(err error) bool {
	switch ClassifyError(err) {
	case ErrorTypeTimeout, ErrorTypeTransient, ErrorTypeExternal, ErrorTypeRateLimit:
		return true
	default:
		return false
	}
}
