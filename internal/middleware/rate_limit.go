package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rulehub/rulehub-backend/internal/common"
	"github.com/rulehub/rulehub-backend/pkg/logger"
)

const rateLimitTimeout = 500 * time.Millisecond

// RateLimitConfig configures the rate limiter
type RateLimitConfig struct {
	Action    string // metric label and key segment, e.g. "copy"
	Limit     int
	Window    time.Duration
	KeyPrefix string
	Message   string
}

// DefaultRateLimitConfig returns the config for an engagement action
func DefaultRateLimitConfig(action string, limit int, window time.Duration) RateLimitConfig {
	if limit <= 0 {
		limit = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	return RateLimitConfig{
		Action:    action,
		Limit:     limit,
		Window:    window,
		KeyPrefix: "ratelimit:" + action + ":",
		Message:   "Too many requests. Please try again shortly.",
	}
}

// rateLimitScript is an atomic Lua script for sliding window rate limiting
var rateLimitScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local window_start = now - window

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, now .. ':' .. math.random(1000000))
    redis.call('EXPIRE', key, math.ceil(window / 1000) + 1)
    return {1, limit - count - 1, 0}
else
    local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
    local reset_at = 0
    if #oldest >= 2 then
        reset_at = tonumber(oldest[2]) + window
    end
    return {0, 0, reset_at}
end
`)

// RateLimit limits requests per client IP with a Redis sliding window.
// A nil client or a Redis error lets the request through.
func RateLimit(redisClient *redis.Client, cfg RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisClient == nil {
			c.Next()
			return
		}

		key := cfg.KeyPrefix + c.ClientIP()
		now := time.Now().UnixMilli()

		ctx, cancel := context.WithTimeout(c.Request.Context(), rateLimitTimeout)
		defer cancel()

		result, err := rateLimitScript.Run(ctx, redisClient, []string{key},
			cfg.Limit, cfg.Window.Milliseconds(), now,
		).Int64Slice()
		if err != nil || len(result) != 3 {
			logger.GetLogger().Warn().Err(err).Str("action", cfg.Action).Msg("rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		allowed := result[0] == 1
		remaining := result[1]
		resetAt := result[2]

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if !allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfterSeconds(resetAt, now)))
			rateLimitedTotal.WithLabelValues(cfg.Action).Inc()
			common.ErrorResponse(c, http.StatusTooManyRequests, cfg.Message, nil)
			c.Abort()
			return
		}

		c.Next()
	}
}

func retryAfterSeconds(resetAtMs, nowMs int64) int64 {
	retry := (resetAtMs - nowMs) / 1000
	if retry < 1 {
		retry = 1
	}
	return retry
}
