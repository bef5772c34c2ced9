package health

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisHealthKey = "mcs:__health_check__"

// RedisChecker checks Redis connectivity
type RedisChecker struct {
	client  redis.UniversalClient
	timeout time.Duration
}

// NewRedisChecker creates a new Redis health checker
func NewRedisChecker(client redis.UniversalClient, timeout time.Duration) *RedisChecker {
	if timeout == 0 {
		timeout = 3 * time.Second
	}
	return &RedisChecker{client: client, timeout: timeout}
}

// Check pings Redis and round-trips a short-lived key
func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		return NewUnhealthyResult("redis", err).WithDuration(time.Since(start))
	}

	want := time.Now().UnixNano()
	if err := c.client.Set(ctx, redisHealthKey, want, 10*time.Second).Err(); err != nil {
		return NewUnhealthyResult("redis", err).WithDuration(time.Since(start))
	}
	got, err := c.client.Get(ctx, redisHealthKey).Int64()
	if err != nil {
		return NewUnhealthyResult("redis", err).WithDuration(time.Since(start))
	}
	c.client.Del(ctx, redisHealthKey)

	if got != want {
		return NewDegradedResult("redis", "data integrity check failed").WithDuration(time.Since(start))
	}
	return NewHealthyResult("redis", "connected").WithDuration(time.Since(start))
}

// Name returns the checker name
func (c *RedisChecker) Name() string {
	return "redis"
}
