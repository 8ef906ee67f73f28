package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/metrics"
)

// RateLimitConfig defines configuration for rate limiting
type RateLimitConfig struct {
	// Window is the time window for rate limiting
	Window time.Duration
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Key prefix for Redis keys, also the limiter name in metrics
	KeyPrefix string
}

// Decision is the outcome of one rate limit check
type Decision struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Limiter counts requests per key
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// RedisLimiter is a fixed-window counter shared by every API instance
type RedisLimiter struct {
	redis  *redis.Client
	config RateLimitConfig
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client, config RateLimitConfig) *RedisLimiter {
	return &RedisLimiter{redis: client, config: config, now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	windowStart := l.now().Truncate(l.config.Window)
	redisKey := fmt.Sprintf("%s:%s:%d", l.config.KeyPrefix, key, windowStart.Unix())

	// Use Redis pipeline for atomic operations
	pipe := l.redis.Pipeline()
	incrCmd := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.config.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, err
	}

	count := int(incrCmd.Val())
	remaining := l.config.Limit - count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count <= l.config.Limit,
		Remaining: remaining,
		Reset:     windowStart.Add(l.config.Window),
	}, nil
}

// LocalLimiter is a per-process token bucket per key, used when Redis is not configured.
// A full bucket holds Limit tokens and refills over Window. A key idle for a whole window
// has a full bucket again and is forgotten.
type LocalLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*localEntry
	limit     rate.Limit
	burst     int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewLocalLimiter(config RateLimitConfig) *LocalLimiter {
	return &LocalLimiter{
		limiters: make(map[string]*localEntry),
		limit:    rate.Limit(float64(config.Limit) / config.Window.Seconds()),
		burst:    config.Limit,
		window:   config.Window,
		now:      time.Now,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := l.now()
	limiter := l.getLimiter(key, now)

	allowed := limiter.AllowN(now, 1)
	tokens := limiter.TokensAt(now)
	remaining := int(math.Max(0, math.Floor(tokens)))

	// time until the bucket is full again
	missing := float64(l.burst) - tokens
	reset := now
	if missing > 0 && l.limit > 0 {
		reset = now.Add(time.Duration(missing / float64(l.limit) * float64(time.Second)))
	}

	return Decision{Allowed: allowed, Remaining: remaining, Reset: reset}, nil
}

func (l *LocalLimiter) getLimiter(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(now)
	}

	entry, ok := l.limiters[key]
	if !ok {
		entry = &localEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// sweep drops keys that have not been seen for a window. Caller holds mu.
func (l *LocalLimiter) sweep(now time.Time) {
	for key, entry := range l.limiters {
		if now.Sub(entry.lastSeen) >= l.window {
			delete(l.limiters, key)
		}
	}
	l.lastSweep = now
}

// Len reports how many keys are tracked.
func (l *LocalLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// RateLimiter turns a Limiter into gin middleware
type RateLimiter struct {
	limiter Limiter
	config  RateLimitConfig
}

// NewRateLimiter uses Redis when a client is given and an in-process limiter otherwise
func NewRateLimiter(redisClient *redis.Client, config RateLimitConfig) *RateLimiter {
	var limiter Limiter
	if redisClient != nil {
		limiter = NewRedisLimiter(redisClient, config)
	} else {
		limiter = NewLocalLimiter(config)
	}
	return &RateLimiter{limiter: limiter, config: config}
}

// NewRecipeCreationRateLimiter limits recipe creation per user
func NewRecipeCreationRateLimiter(redisClient *redis.Client, limit int, window time.Duration) *RateLimiter {
	return NewRateLimiter(redisClient, RateLimitConfig{
		Window:    window,
		Limit:     limit,
		KeyPrefix: "rate_limit:recipe_creation",
	})
}

// NewRecipeModificationRateLimiter limits updates per user per recipe
func NewRecipeModificationRateLimiter(redisClient *redis.Client, limit int, window time.Duration) *RateLimiter {
	return NewRateLimiter(redisClient, RateLimitConfig{
		Window:    window,
		Limit:     limit,
		KeyPrefix: "rate_limit:recipe_modification",
	})
}

// RateLimitMiddleware returns a Gin middleware that enforces rate limiting per user.
// It must run after AuthMiddleware.
func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserID(c)
		if userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errNoCredentials.Error()})
			return
		}
		rl.enforce(c, strconv.FormatUint(uint64(userID), 10), "requests")
	}
}

// PerRecipeRateLimitMiddleware enforces the limit per user and recipe id
func (rl *RateLimiter) PerRecipeRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserID(c)
		if userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errNoCredentials.Error()})
			return
		}
		key := fmt.Sprintf("%d:%s", userID, c.Param("id"))
		rl.enforce(c, key, "modifications per recipe")
	}
}

func (rl *RateLimiter) enforce(c *gin.Context, key, what string) {
	d, err := rl.limiter.Allow(c.Request.Context(), key)
	if err != nil {
		// fail open
		metrics.RateLimitErrors.WithLabelValues(rl.config.KeyPrefix).Inc()
		logger.Warn("rate limit check failed", zap.String("limiter", rl.config.KeyPrefix), zap.Error(err))
		c.Header("X-RateLimit-Error", "rate limit check failed")
		c.Next()
		return
	}

	c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))

	if !d.Allowed {
		metrics.RateLimitRejections.WithLabelValues(rl.config.KeyPrefix).Inc()
		retryAfter := int(math.Ceil(time.Until(d.Reset).Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":       "rate limit exceeded",
			"message":     fmt.Sprintf("You have exceeded the rate limit of %d %s per %v", rl.config.Limit, what, rl.config.Window),
			"retry_after": retryAfter,
		})
		return
	}

	c.Next()
}
