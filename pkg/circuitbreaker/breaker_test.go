package circuitbreaker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	apperrors "github.com/mcs-service/mcs_service/pkg/errors"
)

func TestBreaker_TripsOnPlatformFailures(t *testing.T) {
	cb := New("gold-test", Config{MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute}, zaptest.NewLogger(t))

	for i := 0; i < 3; i++ {
		_, _ = cb.Execute(func() (interface{}, error) {
			return nil, context.DeadlineExceeded
		})
	}

	assert.Equal(t, gobreaker.StateOpen, cb.State())
	_, err := cb.Execute(func() (interface{}, error) { return nil, nil })
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestBreaker_IgnoresClientErrors(t *testing.T) {
	cb := New("silver-test", DefaultConfig(), zaptest.NewLogger(t))

	for i := 0; i < 5; i++ {
		_, err := cb.Execute(func() (interface{}, error) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("address %d", i))
		})
		assert.Error(t, err)
	}

	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestStateValue(t *testing.T) {
	assert.Equal(t, 0.0, StateValue(gobreaker.StateClosed))
	assert.Equal(t, 1.0, StateValue(gobreaker.StateOpen))
	assert.Equal(t, 2.0, StateValue(gobreaker.StateHalfOpen))
}
