package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/mcs-service/mcs_service/pkg/metrics"
	"go.uber.org/zap"
)

const scanBatch = 100

// deleteMatching scans for pattern and deletes matches in batches
func deleteMatching(ctx context.Context, client redis.UniversalClient, pattern string, logger *zap.Logger) (int, error) {
	start := time.Now()
	defer func() { metrics.RecordRedisOperation("invalidate", time.Since(start).Seconds()) }()

	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to scan keys for pattern %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			n, err := client.Del(ctx, keys...).Result()
			if err != nil {
				logger.Error("Failed to delete cache keys", zap.Strings("keys", keys), zap.Error(err))
				return deleted, err
			}
			deleted += int(n)
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}

// escapeGlob quotes the characters redis MATCH treats specially
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
