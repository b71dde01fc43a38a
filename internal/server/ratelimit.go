package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/filevault/internal/pkg/logger"
	"github.com/lk2023060901/filevault/internal/pkg/redis"
	"go.uber.org/zap"
)

// RateLimiterConfig configures the per-IP fixed-window limiter
type RateLimiterConfig struct {
	// MaxRequests allowed inside one window
	MaxRequests int
	// WindowSeconds is the window length
	WindowSeconds int
}

// RateLimiter is a Redis-backed fixed-window rate limiter keyed by
// client IP. When Redis is unavailable the limiter fails open.
func RateLimiter(redisClient *redis.Client, cfg RateLimiterConfig, log *logger.Logger) gin.HandlerFunc {
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = 100
	}
	if cfg.WindowSeconds <= 0 {
		cfg.WindowSeconds = 60
	}
	window := time.Duration(cfg.WindowSeconds) * time.Second

	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit:ip:%s", c.ClientIP())
		ctx := c.Request.Context()

		count, err := redisClient.Incr(ctx, key)
		if err != nil {
			log.Error("rate limiter error", zap.Error(err), zap.String("key", key))
			c.Next()
			return
		}

		// First hit in the window owns the TTL.
		if count == 1 {
			if _, err := redisClient.Expire(ctx, key, window); err != nil {
				log.Error("rate limiter expire failed", zap.Error(err), zap.String("key", key))
			}
		}

		remaining := int64(cfg.MaxRequests) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", cfg.MaxRequests))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if count > int64(cfg.MaxRequests) {
			c.Header("Retry-After", fmt.Sprintf("%d", cfg.WindowSeconds))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate limit exceeded",
				"message": fmt.Sprintf("too many requests, please try again in %d seconds", cfg.WindowSeconds),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
