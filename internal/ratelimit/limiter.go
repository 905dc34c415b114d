package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/feral-file/ff-ip-ledger/internal/adapter"
	"github.com/feral-file/ff-ip-ledger/internal/logger"
)

// Config holds the per-client request limit
type Config struct {
	// RequestsPerSecond is the sustained per-client rate
	RequestsPerSecond int
	// Burst is the short-term allowance above the sustained rate
	Burst int
	// KeyPrefix namespaces the limiter's Redis keys
	KeyPrefix string
}

// Decision is the outcome of one limit check
type Decision struct {
	Allowed bool
	// RetryAfter is how long the client should wait before retrying,
	// zero when allowed
	RetryAfter time.Duration
}

// Limiter enforces a per-client request rate across all API instances.
//
//go:generate mockgen -source=limiter.go -destination=../mocks/ratelimit.go -package=mocks -mock_names=Limiter=MockLimiter
type Limiter interface {
	// Allow checks whether the client identified by key may proceed
	Allow(ctx context.Context, key string) (Decision, error)
}

// limiter is the Redis-backed implementation. When Redis is unreachable
// it falls back to per-process local limiters so a cache outage cannot
// take the API down with it.
type limiter struct {
	config      Config
	distributed adapter.RedisRateLimiter
	redis       adapter.RedisClient

	redisAvailable atomic.Bool

	mu    sync.Mutex
	local map[string]*rate.Limiter
}

// NewLimiter creates a distributed per-client rate limiter
func NewLimiter(cfg Config, rc adapter.RedisClient) (Limiter, error) {
	if cfg.RequestsPerSecond <= 0 {
		return nil, fmt.Errorf("requests_per_second must be positive, got %d", cfg.RequestsPerSecond)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.RequestsPerSecond
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "ledger:ratelimit:"
	}

	l := &limiter{
		config:      cfg,
		distributed: rc.NewRateLimiter(),
		redis:       rc,
		local:       make(map[string]*rate.Limiter),
	}
	l.redisAvailable.Store(true)

	go l.monitorRedisHealth()

	return l, nil
}

// Allow checks whether the client identified by key may proceed
func (l *limiter) Allow(ctx context.Context, key string) (Decision, error) {
	if l.redisAvailable.Load() {
		res, err := l.distributed.Allow(ctx, l.config.KeyPrefix+key,
			redis_rate.Limit{
				Rate:   l.config.RequestsPerSecond,
				Burst:  l.config.Burst,
				Period: time.Second,
			})
		if err == nil {
			if res.Allowed > 0 {
				return Decision{Allowed: true}, nil
			}
			return Decision{Allowed: false, RetryAfter: res.RetryAfter}, nil
		}
		if ctx.Err() != nil {
			return Decision{}, ctx.Err()
		}

		l.redisAvailable.Store(false)
		logger.Warn("Redis rate limiter error, falling back to local",
			zap.String("key", key),
			zap.Error(err),
		)
	}

	if l.localLimiter(key).Allow() {
		return Decision{Allowed: true}, nil
	}
	return Decision{Allowed: false, RetryAfter: time.Second}, nil
}

// localLimiter returns the per-process fallback limiter for one client
func (l *limiter) localLimiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.local[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.config.RequestsPerSecond), l.config.Burst)
		l.local[key] = lim
	}
	return lim
}

// monitorRedisHealth periodically re-probes Redis so the limiter returns
// to distributed mode once the outage clears
func (l *limiter) monitorRedisHealth() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		if l.redisAvailable.Load() {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := l.redis.Ping(ctx)
		cancel()

		if err == nil {
			l.redisAvailable.Store(true)
			l.mu.Lock()
			l.local = make(map[string]*rate.Limiter)
			l.mu.Unlock()
			logger.Info("Redis connection restored, resuming distributed rate limiting")
		}
	}
}
