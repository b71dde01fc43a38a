package data

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lk2023060901/filevault/internal/file/types"
	"github.com/lk2023060901/filevault/internal/pkg/logger"
	pkgredis "github.com/lk2023060901/filevault/internal/pkg/redis"
	"go.uber.org/zap"
)

const statsCacheKey = "filevault:stats"

// RedisStatsCache implements biz.StatsCache with a short-TTL Redis key.
// Any Redis failure degrades to a cache miss; the stats read path then
// falls through to the metadata store.
type RedisStatsCache struct {
	client *pkgredis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewRedisStatsCache creates the stats cache
func NewRedisStatsCache(client *pkgredis.Client, ttl time.Duration, log *logger.Logger) *RedisStatsCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisStatsCache{
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

// Get returns the cached stats, if present
func (c *RedisStatsCache) Get(ctx context.Context) (*types.Stats, bool) {
	raw, err := c.client.Get(ctx, statsCacheKey)
	if err != nil {
		return nil, false
	}

	var stats types.Stats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		c.logger.Warn("failed to decode cached stats", zap.Error(err))
		return nil, false
	}

	return &stats, true
}

// Set stores stats with the configured TTL
func (c *RedisStatsCache) Set(ctx context.Context, stats *types.Stats) {
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	// Errors are already logged by the redis wrapper; a failed set just
	// means the next read recomputes.
	_ = c.client.Set(ctx, statsCacheKey, raw, c.ttl)
}

// Invalidate drops the cached stats after uploads change them
func (c *RedisStatsCache) Invalidate(ctx context.Context) {
	_, _ = c.client.Del(ctx, statsCacheKey)
}
