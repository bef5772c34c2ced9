package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/mcs-service/mcs_service/internal/domain/entities"
	"github.com/mcs-service/mcs_service/pkg/metrics"
	"go.uber.org/zap"
)

const (
	backendRedis        = "redis"
	defaultPortfolioTTL = 5 * time.Minute
)

// RedisPortfolioCache shares assembled portfolios between service instances
type RedisPortfolioCache struct {
	client     redis.UniversalClient
	logger     *zap.Logger
	prefix     string
	defaultTTL time.Duration
}

// NewRedisPortfolioCache creates a cache storing JSON portfolios under prefix
func NewRedisPortfolioCache(client redis.UniversalClient, prefix string, logger *zap.Logger) *RedisPortfolioCache {
	if prefix == "" {
		prefix = "mcs:portfolio:"
	}
	return &RedisPortfolioCache{
		client:     client,
		logger:     logger,
		prefix:     prefix,
		defaultTTL: defaultPortfolioTTL,
	}
}

// Get returns the cached portfolio; expiry is enforced by redis
func (c *RedisPortfolioCache) Get(ctx context.Context, key string) (*entities.Portfolio, bool, error) {
	start := time.Now()
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	metrics.RecordRedisOperation("get", time.Since(start).Seconds())
	if err == redis.Nil {
		metrics.RecordCacheLookup(backendRedis, "miss")
		return nil, false, nil
	}
	if err != nil {
		metrics.RecordCacheLookup(backendRedis, "error")
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var p entities.Portfolio
	if err := json.Unmarshal(val, &p); err != nil {
		metrics.RecordCacheLookup(backendRedis, "error")
		c.logger.Warn("Discarding undecodable cached portfolio", zap.String("key", key), zap.Error(err))
		c.client.Del(ctx, c.prefix+key)
		return nil, false, nil
	}
	metrics.RecordCacheLookup(backendRedis, "hit")
	return &p, true, nil
}

// Set stores the portfolio with ttl, or the default TTL when ttl is zero
func (c *RedisPortfolioCache) Set(ctx context.Context, key string, p *entities.Portfolio, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode portfolio: %w", err)
	}

	start := time.Now()
	err = c.client.Set(ctx, c.prefix+key, payload, ttl).Err()
	metrics.RecordRedisOperation("set", time.Since(start).Seconds())
	return err
}

// DeleteByPrefix removes every key starting with prefix
func (c *RedisPortfolioCache) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	return deleteMatching(ctx, c.client, c.prefix+escapeGlob(prefix)+"*", c.logger)
}
