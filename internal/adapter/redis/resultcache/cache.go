// package resultcache implements the read-through cache over submission
// store reads. Keys combine the operation name with its serialized
// arguments; a mutation anywhere flushes every key except the stream that
// backs the job queue, which lives in the same Redis database.
package resultcache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"gitlab.com/grader-api/internal/config"
	"gitlab.com/grader-api/internal/core/ports/primary"
	"gitlab.com/grader-api/internal/core/ports/secondary"
)

var _ secondary.ResultCache = (*ResultCache)(nil)

// ResultCache implements the ResultCache interface on Redis
type ResultCache struct {
	redisClient *redis.Client
	cfg         *config.GraderConfig
	logger      primary.Logger
}

// NewResultCache creates a new Redis result cache
func NewResultCache(redisClient *redis.Client, cfg *config.GraderConfig, logger primary.Logger) *ResultCache {
	return &ResultCache{
		redisClient: redisClient,
		cfg:         cfg,
		logger:      logger,
	}
}

// GetOrFill returns the cached value for (op, args). On a miss it runs fill,
// stores the JSON-serialized result with no TTL, and returns it.
func (c *ResultCache) GetOrFill(ctx context.Context, op string, args interface{}, fill func() (interface{}, error)) ([]byte, error) {
	key, err := cacheKey(op, args)
	if err != nil {
		return nil, err
	}

	cached, err := c.redisClient.Get(ctx, key).Bytes()
	if err == nil {
		return cached, nil
	}
	if err != redis.Nil {
		// Degraded cache must not break reads; fall through to the store.
		c.logger.Warn("Cache read failed", "key", key, "error", err)
	}

	result, err := fill()
	if err != nil {
		return nil, err
	}

	serialized, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize cache value for %s: %w", op, err)
	}

	if err := c.redisClient.Set(ctx, key, serialized, 0).Err(); err != nil {
		c.logger.Warn("Cache write failed", "key", key, "error", err)
	}

	return serialized, nil
}

// FlushExcept deletes every cache key except the stream backing the job
// queue. Coarse by design: mutations are rare next to reads and per-key
// invalidation is not worth the bookkeeping.
func (c *ResultCache) FlushExcept(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.redisClient.Scan(ctx, cursor, "*", 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan cache keys: %w", err)
		}

		toDelete := make([]string, 0, len(keys))
		for _, key := range keys {
			if key != c.cfg.StreamName {
				toDelete = append(toDelete, key)
			}
		}
		if len(toDelete) > 0 {
			if err := c.redisClient.Del(ctx, toDelete...).Err(); err != nil {
				return fmt.Errorf("failed to flush cache keys: %w", err)
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func cacheKey(op string, args interface{}) (string, error) {
	serialized, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to serialize cache key args for %s: %w", op, err)
	}
	return fmt.Sprintf("%s:%s", op, serialized), nil
}
