package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageErrors(t *testing.T) {
	cause := fmt.Errorf("bad address")

	err := PortfolioFetchFailed("user-1", cause)

	assert.Equal(t, CodePortfolioFetchFailed, err.Code)
	assert.Equal(t, StagePortfolio, err.Detail(DetailStage))
	assert.Equal(t, "user-1", err.Detail(DetailUserID))
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrPortfolioFetchFailed)
	assert.NotErrorIs(t, err, ErrAnalysisFailed)
	assert.False(t, IsRetryable(err))
	assert.Equal(t, http.StatusBadRequest, GetStatusCode(err))
}

func TestAnalysisFailed_CarriesStage(t *testing.T) {
	err := AnalysisFailed(StageRisk, "u", fmt.Errorf("negative amount"))

	wrapped := Wrapf(err, "scoring user")
	var appErr *AppError
	require.True(t, As(wrapped, &appErr))
	assert.Equal(t, StageRisk, appErr.Detail(DetailStage))
	assert.Equal(t, CodeAnalysisFailed, GetCode(wrapped))
}

func TestWrapHelpers(t *testing.T) {
	cause := fmt.Errorf("unexpected end of JSON input")

	v := WrapValidation(cause, "addresses must be a JSON object")
	assert.Equal(t, CodeValidation, v.Code)
	assert.Equal(t, http.StatusBadRequest, GetStatusCode(v))
	assert.ErrorIs(t, v, cause)
	assert.False(t, v.Retryable)

	in := WrapInternal(cause, "failed to load score history")
	assert.Equal(t, CodeInternal, GetCode(in))
	assert.Equal(t, http.StatusInternalServerError, GetStatusCode(in))
	assert.ErrorIs(t, in, cause)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"nil", nil, ""},
		{"deadline", context.DeadlineExceeded, ErrorTypeTimeout},
		{"wrapped deadline", fmt.Errorf("gold: %w", context.DeadlineExceeded), ErrorTypeTimeout},
		{"refused", fmt.Errorf("dial tcp: connection refused"), ErrorTypeTransient},
		{"breaker", fmt.Errorf("circuit breaker is open"), ErrorTypeCircuitOpen},
		{"app error", NewValidationError("x"), ErrorTypeValidation},
		{"other", fmt.Errorf("boom"), ErrorTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestClassifyHTTPError(t *testing.T) {
	assert.Equal(t, ErrorType(""), ClassifyHTTPError(http.StatusOK))
	assert.Equal(t, ErrorTypeNotFound, ClassifyHTTPError(http.StatusNotFound))
	assert.Equal(t, ErrorTypeRateLimit, ClassifyHTTPError(http.StatusTooManyRequests))
	assert.Equal(t, ErrorTypeTransient, ClassifyHTTPError(http.StatusServiceUnavailable))
	assert.Equal(t, ErrorTypeExternal, ClassifyHTTPError(http.StatusInternalServerError))
}

func TestIsCircuitBreakerError(t *testing.T) {
	assert.True(t, IsCircuitBreakerError(WrapExternal(fmt.Errorf("500"), "gold", "upstream")))
	assert.True(t, IsCircuitBreakerError(context.DeadlineExceeded))
	assert.False(t, IsCircuitBreakerError(NewNotFoundError("address")))
}
