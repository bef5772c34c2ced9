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

// RedisScoreStore keeps each user's latest score for the length of its validity window
type RedisScoreStore struct {
	client redis.UniversalClient
	logger *zap.Logger
	prefix string
}

// NewRedisScoreStore creates a latest-score store under prefix
func NewRedisScoreStore(client redis.UniversalClient, prefix string, logger *zap.Logger) *RedisScoreStore {
	if prefix == "" {
		prefix = "mcs:score:"
	}
	return &RedisScoreStore{client: client, logger: logger, prefix: prefix}
}

// Name identifies the backend in metrics and logs
func (s *RedisScoreStore) Name() string {
	return backendRedis
}

// Save overwrites the user's latest score; the entry expires with the score's validity
func (s *RedisScoreStore) Save(ctx context.Context, result *entities.ScoreResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode score: %w", err)
	}

	days := result.ValidityDays
	if days <= 0 {
		days = entities.ScoreValidityDays
	}
	ttl := time.Duration(days) * 24 * time.Hour

	start := time.Now()
	err = s.client.Set(ctx, s.prefix+result.UserID, payload, ttl).Err()
	metrics.RecordRedisOperation("set", time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redis set score %s: %w", result.UserID, err)
	}
	return nil
}

// Latest returns the stored score, or false when none is valid
func (s *RedisScoreStore) Latest(ctx context.Context, userID string) (*entities.ScoreResult, bool, error) {
	start := time.Now()
	val, err := s.client.Get(ctx, s.prefix+userID).Bytes()
	metrics.RecordRedisOperation("get", time.Since(start).Seconds())
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get score %s: %w", userID, err)
	}

	var res entities.ScoreResult
	if err := json.Unmarshal(val, &res); err != nil {
		s.logger.Warn("Discarding undecodable stored score", zap.String("user_id", userID), zap.Error(err))
		s.client.Del(ctx, s.prefix+userID)
		return nil, false, nil
	}
	return &res, true, nil
}
