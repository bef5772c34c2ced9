package retry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/mcs-service/mcs_service/pkg/errors"
)

func fastConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
}

func TestWithExponentialBackoff_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := WithExponentialBackoff(context.Background(), fastConfig(), func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("dial tcp: connection refused")
		}
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithExponentialBackoff_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := WithExponentialBackoff(context.Background(), fastConfig(), func() error {
		calls++
		return apperrors.NewValidationError("bad row")
	}, nil)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Contains(t, err.Error(), "non-retryable")
}

func TestWithExponentialBackoff_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := WithExponentialBackoff(context.Background(), fastConfig(), func() error {
		calls++
		return context.DeadlineExceeded
	}, func(error) bool { return true })

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithExponentialBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := fastConfig()
	cfg.BaseDelay = time.Second
	err := WithExponentialBackoff(ctx, cfg, func() error {
		return fmt.Errorf("timeout")
	}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalculateExponential(t *testing.T) {
	assert.Equal(t, time.Duration(0), CalculateExponential(time.Second, 2, 0, time.Minute))
	assert.Equal(t, time.Second, CalculateExponential(time.Second, 2, 1, time.Minute))
	assert.Equal(t, 4*time.Second, CalculateExponential(time.Second, 2, 3, time.Minute))
	assert.Equal(t, 5*time.Second, CalculateExponential(time.Second, 2, 10, 5*time.Second))
}
