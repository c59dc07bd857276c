package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	Prefix     string
	MaxLookups int
	Window     time.Duration
}

// Limiter counts lookups per reference id using Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "3dsrl"
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// AllowLookup records one lookup for referenceID and returns ErrRateLimited
// when the window's budget is exceeded.
func (l *Limiter) AllowLookup(ctx context.Context, referenceID string) error {
	count, err := l.incrementWithTTL(ctx, l.key(referenceID), l.config.Window)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxLookups) {
		return ErrRateLimited
	}
	return nil
}

// Lookups returns the lookups recorded for referenceID in the current window.
func (l *Limiter) Lookups(ctx context.Context, referenceID string) (int, error) {
	count, err := l.redis.Get(ctx, l.key(referenceID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

// Reset clears the counter of referenceID.
func (l *Limiter) Reset(ctx context.Context, referenceID string) error {
	if err := l.redis.Del(ctx, l.key(referenceID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) key(referenceID string) string {
	return l.config.Prefix + ":" + referenceID
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
