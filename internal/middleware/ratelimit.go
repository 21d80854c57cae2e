// ratelimit.go provides Gin middleware that enforces per-client rate limits, returning 429
// responses once a client exceeds the configured requests per window. Limits are kept in
// process by a token bucket, or shared across replicas through Redis when it is enabled.
package middleware

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"github.com/sundai/hackathon-api/internal/config"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests a client may make per Window
	RequestsPerWindow int
	// Window is the period RequestsPerWindow applies to
	Window time.Duration
	// BurstSize is the maximum burst of requests allowed
	BurstSize int
	// CleanupInterval is how often to clean up idle in-memory entries
	CleanupInterval time.Duration
}

// DefaultRateLimitConfig returns 100 requests per 15 minutes per client
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerWindow: 100,
		Window:            15 * time.Minute,
		BurstSize:         100,
		CleanupInterval:   5 * time.Minute,
	}
}

// RateLimitConfigFrom converts the security.rate_limiting section
func RateLimitConfigFrom(cfg config.RateLimitingConfig) RateLimitConfig {
	rl := DefaultRateLimitConfig()
	if cfg.RequestsPerWindow > 0 {
		rl.RequestsPerWindow = cfg.RequestsPerWindow
		rl.BurstSize = cfg.RequestsPerWindow
	}
	if cfg.Window > 0 {
		rl.Window = cfg.Window
	}
	if cfg.Burst > 0 {
		rl.BurstSize = cfg.Burst
	}
	return rl
}

// RateLimitDecision is the outcome of one limiter check
type RateLimitDecision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether a request identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (RateLimitDecision, error)
	Limit() int
	Window() time.Duration
}

// NewLimiter returns a Redis-backed limiter when rdb is non-nil, and an in-memory one otherwise
func NewLimiter(cfg RateLimitConfig, rdb *redis.Client) Limiter {
	if rdb != nil {
		return NewRedisRateLimiter(rdb, cfg)
	}
	return NewRateLimiter(cfg)
}

// rateLimitEntry tracks the bucket for a single client
type rateLimitEntry struct {
	tokens     float64
	lastUpdate time.Time
}

// RateLimiter implements an in-memory token bucket rate limiter
type RateLimiter struct {
	config  RateLimitConfig
	entries map[string]*rateLimitEntry
	mu      sync.RWMutex
	stopCh  chan struct{}
	once    sync.Once
	now     func() time.Time
}

// NewRateLimiter creates a new rate limiter with the given config
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	rl := &RateLimiter{
		config:  config,
		entries: make(map[string]*rateLimitEntry),
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}

	// Start cleanup goroutine
	go rl.cleanup()

	return rl
}

// cleanup periodically removes entries idle for longer than a window
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evictIdle()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) evictIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for key, entry := range rl.entries {
		if now.Sub(entry.lastUpdate) > rl.config.Window {
			delete(rl.entries, key)
		}
	}
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stopCh) })
}

// Limit returns the configured requests per window
func (rl *RateLimiter) Limit() int { return rl.config.RequestsPerWindow }

// Window returns the configured window
func (rl *RateLimiter) Window() time.Duration { return rl.config.Window }

func (rl *RateLimiter) tokensPerSecond() float64 {
	return float64(rl.config.RequestsPerWindow) / rl.config.Window.Seconds()
}

// Allow takes one token from key's bucket. It never returns an error.
func (rl *RateLimiter) Allow(_ context.Context, key string) (RateLimitDecision, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entry, exists := rl.entries[key]

	if !exists {
		// New client, give them full burst
		entry = &rateLimitEntry{tokens: float64(rl.config.BurstSize), lastUpdate: now}
		rl.entries[key] = entry
	} else {
		elapsed := now.Sub(entry.lastUpdate)
		entry.tokens = math.Min(float64(rl.config.BurstSize), entry.tokens+elapsed.Seconds()*rl.tokensPerSecond())
		entry.lastUpdate = now
	}

	if entry.tokens >= 1 {
		entry.tokens--
		return RateLimitDecision{Allowed: true, Remaining: int(entry.tokens)}, nil
	}

	wait := time.Duration((1 - entry.tokens) / rl.tokensPerSecond() * float64(time.Second))
	return RateLimitDecision{Allowed: false, Remaining: 0, RetryAfter: wait}, nil
}

// RemainingTokens returns how many tokens are left for a key
func (rl *RateLimiter) RemainingTokens(key string) int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	entry, exists := rl.entries[key]
	if !exists {
		return rl.config.BurstSize
	}

	elapsed := rl.now().Sub(entry.lastUpdate)
	return int(math.Min(float64(rl.config.BurstSize), entry.tokens+elapsed.Seconds()*rl.tokensPerSecond()))
}

// RedisRateLimiter shares limits across replicas using the GCRA implementation in redis_rate
type RedisRateLimiter struct {
	limiter *redis_rate.Limiter
	limit   redis_rate.Limit
}

// NewRedisRateLimiter creates a limiter backed by rdb
func NewRedisRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RedisRateLimiter {
	return &RedisRateLimiter{
		limiter: redis_rate.NewLimiter(rdb),
		limit: redis_rate.Limit{
			Rate:   cfg.RequestsPerWindow,
			Burst:  cfg.BurstSize,
			Period: cfg.Window,
		},
	}
}

// Limit returns the configured requests per window
func (l *RedisRateLimiter) Limit() int { return l.limit.Rate }

// Window returns the configured window
func (l *RedisRateLimiter) Window() time.Duration { return l.limit.Period }

// Allow checks key against Redis
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (RateLimitDecision, error) {
	res, err := l.limiter.Allow(ctx, "ratelimit:"+key, l.limit)
	if err != nil {
		return RateLimitDecision{Allowed: true}, err
	}
	return RateLimitDecision{
		Allowed:    res.Allowed > 0,
		Remaining:  res.Remaining,
		RetryAfter: res.RetryAfter,
	}, nil
}

// RateLimitMiddleware creates a Gin middleware that rate limits requests. Limiter errors
// let the request through.
func RateLimitMiddleware(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := getRateLimitKey(c)

		decision, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			slog.Warn("rate limiter unavailable, allowing request", "key", key, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		if !decision.Allowed {
			retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests from this IP, please try again later.",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}

// getRateLimitKey determines the key to use for rate limiting
// Priority: profile_id > api_key_id > IP address
func getRateLimitKey(c *gin.Context) string {
	if profileID := c.GetString(ProfileIDKey); profileID != "" {
		return "profile:" + profileID
	}

	if apiKeyID := c.GetString(APIKeyIDKey); apiKeyID != "" {
		return "apikey:" + apiKeyID
	}

	// Fall back to IP address
	ip := c.ClientIP()
	if ip == "" {
		ip = c.Request.RemoteAddr
	}
	return "ip:" + ip
}
