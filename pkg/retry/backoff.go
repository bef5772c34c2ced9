package retry

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Backoff calculates retry delays
type Backoff struct {
	config RetryConfig
	mu     sync.Mutex
	rng    *rand.Rand
}

// NewBackoff creates a new backoff calculator
func NewBackoff(config RetryConfig) *Backoff {
	return &Backoff{
		config: config,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Calculate computes the delay after the given attempt number (1-based)
func (b *Backoff) Calculate(attempt int) time.Duration {
	backoff := float64(CalculateExponential(b.config.BaseDelay, b.config.Multiplier, attempt, b.config.MaxDelay))

	if b.config.Jitter > 0 {
		jitter := backoff * b.config.Jitter
		b.mu.Lock()
		backoff = backoff - jitter + (b.rng.Float64() * 2 * jitter)
		b.mu.Unlock()
	}

	return time.Duration(backoff)
}

// CalculateExponential calculates exponential backoff without jitter
func CalculateExponential(initialBackoff time.Duration, multiplier float64, attempt int, maxBackoff time.Duration) time.Duration {
	if attempt <= 0 {
		return 0
	}
	if multiplier < 1 {
		multiplier = 1
	}

	backoff := float64(initialBackoff) * math.Pow(multiplier, float64(attempt-1))

	if maxBackoff > 0 && backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}

	return time.Duration(backoff)
}
