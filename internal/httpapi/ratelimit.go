package httpapi

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	rateLimitKeyPrefix = "cinemad:ratelimit"
	rateLimitTTLFloor  = time.Minute
)

// LimitDecision is the outcome of one token bucket check.
type LimitDecision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
	Capacity   int
}

// Limiter decides whether a keyed request may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (LimitDecision, error)
}

var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local ttl_seconds = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
	tokens = capacity
	last_refill = now_ms
end

if interval_ms > 0 then
	local elapsed = math.max(0, now_ms - last_refill)
	local intervals = math.floor(elapsed / interval_ms)
	if intervals > 0 then
		tokens = math.min(capacity, tokens + intervals)
		last_refill = last_refill + (intervals * interval_ms)
	end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry_after_ms = interval_ms - (now_ms - last_refill)
	if retry_after_ms < 0 then retry_after_ms = 0 end
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

// RedisLimiter is a token bucket stored in redis, refilled one token per interval.
type RedisLimiter struct {
	client         redis.Scripter
	capacity       int
	refillInterval time.Duration
	now            func() time.Time
}

// NewRedisLimiter builds a limiter over client.
func NewRedisLimiter(client redis.Scripter, capacity int, refillInterval time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:         client,
		capacity:       capacity,
		refillInterval: refillInterval,
		now:            time.Now,
	}
}

// Allow consumes one token for key.
func (limiter *RedisLimiter) Allow(ctx context.Context, key string) (LimitDecision, error) {
	ttl := time.Duration(limiter.capacity) * limiter.refillInterval
	if ttl < rateLimitTTLFloor {
		ttl = rateLimitTTLFloor
	}
	values, err := tokenBucketScript.Run(ctx, limiter.client, []string{key},
		limiter.now().UnixMilli(),
		limiter.capacity,
		limiter.refillInterval.Milliseconds(),
		int64(ttl/time.Second),
	).Int64Slice()
	if err != nil {
		return LimitDecision{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(values) != 3 {
		return LimitDecision{}, fmt.Errorf("rate limit script: unexpected result %v", values)
	}
	return LimitDecision{
		Allowed:    values[0] == 1,
		Remaining:  values[1],
		RetryAfter: time.Duration(values[2]) * time.Millisecond,
		Capacity:   limiter.capacity,
	}, nil
}

func rateLimitKey(ctx *gin.Context) string {
	userID := "anon"
	if actor, ok := getActor(ctx); ok {
		userID = actor.UserID.String()
	}
	return strings.Join([]string{rateLimitKeyPrefix, "user", userID, "route", ctx.Request.Method + " " + ctx.FullPath()}, ":")
}

// rateLimit fails open: limiter errors are logged and the request proceeds.
func rateLimit(limiter Limiter, logger *zap.Logger) gin.HandlerFunc {
	if limiter == nil {
		return func(ctx *gin.Context) { ctx.Next() }
	}
	return func(ctx *gin.Context) {
		key := rateLimitKey(ctx)
		decision, err := limiter.Allow(ctx.Request.Context(), key)
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			ctx.Next()
			return
		}
		ctx.Header("X-RateLimit-Limit", strconv.Itoa(decision.Capacity))
		ctx.Header("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
		if !decision.Allowed {
			seconds := int(math.Ceil(decision.RetryAfter.Seconds()))
			ctx.Header("Retry-After", strconv.Itoa(seconds))
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse("too_many_requests", "rate limit exceeded"))
			return
		}
		ctx.Next()
	}
}
