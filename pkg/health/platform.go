package health

import (
	"context"
	"time"
)

// Prober is anything that can ping an upstream and report its latency
type Prober interface {
	Health(ctx context.Context) (time.Duration, error)
}

// PlatformChecker reports an asset platform's health.
// An offline platform only degrades the service because portfolio fetches absorb it.
type PlatformChecker struct {
	name    string
	prober  Prober
	timeout time.Duration
}

// NewPlatformChecker creates a checker named "platform_<name>"
func NewPlatformChecker(name string, prober Prober, timeout time.Duration) *PlatformChecker {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &PlatformChecker{name: "platform_" + name, prober: prober, timeout: timeout}
}

// Check probes the platform
func (c *PlatformChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	latency, err := c.prober.Health(ctx)
	if err != nil {
		result := NewDegradedResult(c.name, "platform unreachable")
		result.Error = err.Error()
		return result.WithDuration(time.Since(start))
	}

	return NewHealthyResult(c.name, "online").
		WithDuration(time.Since(start)).
		WithMetadata("response_time_ms", latency.Milliseconds())
}

// Name returns the checker name
func (c *PlatformChecker) Name() string {
	return c.name
}
