// middleware/rate_limit.go
package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/Payphone-Digital/sprintdesk/internal/constants"
	apperrors "github.com/Payphone-Digital/sprintdesk/internal/errors"
	"github.com/Payphone-Digital/sprintdesk/pkg/cache"
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
	"github.com/Payphone-Digital/sprintdesk/pkg/redis"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CounterStore counts hits in fixed windows.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RedisCounterStore shares windows across instances.
type RedisCounterStore struct {
	client *redis.Client
}

func NewRedisCounterStore(client *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

func (s *RedisCounterStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	return s.client.IncrWindow(ctx, key, window)
}

// MemoryCounterStore keeps windows in process.
type MemoryCounterStore struct {
	cache *cache.Cache
}

func NewMemoryCounterStore(c *cache.Cache) *MemoryCounterStore {
	return &MemoryCounterStore{cache: c}
}

func (s *MemoryCounterStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	count, ttl := s.cache.Incr(key, window)
	return count, ttl, nil
}

// RateLimit allows maxRequest hits per client IP per window under name.
// A failing store lets the request through.
func RateLimit(store CounterStore, name string, maxRequest int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		key := constants.KeyRateLimit + name + ":" + ip

		count, ttl, err := store.Incr(c.Request.Context(), key, window)
		if err != nil {
			logger.GetLogger().Error("Rate limit store unavailable",
				zap.String("limiter", name),
				zap.String("client_ip", ip),
				zap.Error(err))
			c.Next()
			return
		}

		remaining := int64(maxRequest) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequest))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(ttl).Unix(), 10))

		if count > int64(maxRequest) {
			retryAfter := int64(math.Ceil(ttl.Seconds()))
			logger.GetLogger().Warn("Rate limit exceeded",
				zap.String("limiter", name),
				zap.String("client_ip", ip),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Int64("current_requests", count),
				zap.Int("max_requests", maxRequest),
				zap.Duration("window", window),
			)

			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody(constants.MsgRateLimited, apperrors.ErrRateLimited))
			return
		}

		c.Next()
	}
}
