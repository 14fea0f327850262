package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores entries in Redis, for API replicas sharing results.
type RedisCache struct {
	client redis.UniversalClient
}

// RedisOptions configures NewRedisCache.
type RedisOptions struct {
	// URL is a redis:// or rediss:// URL. It takes precedence over Addr.
	URL      string
	Addr     string
	Password string
	DB       int
	Backoff  Backoff
}

// NewRedisCache connects to Redis and pings it, retrying with backoff.
func NewRedisCache(ctx context.Context, opts RedisOptions) (*RedisCache, error) {
	ro := &redis.Options{Addr: opts.Addr, Password: opts.Password, DB: opts.DB}
	if opts.URL != "" {
		parsed, err := redis.ParseURL(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		ro = parsed
	}
	if opts.Backoff.Attempts == 0 {
		opts.Backoff = DefaultBackoff
	}

	client := redis.NewClient(ro)
	err := RetryWithBackoff(ctx, opts.Backoff, func() error {
		return Retryable(client.Ping(ctx).Err())
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: redis %s: %w", ErrBackendUnavailable, ro.Addr, err)
	}
	return NewRedisCacheFromClient(client), nil
}

// NewRedisCacheFromClient wraps an existing client. The cache owns the
// client and closes it on Close.
func NewRedisCacheFromClient(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

// Get retrieves a value. redis.Nil is reported as a miss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores a value. A non-positive ttl never expires.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// Delete removes a value.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ Cache = (*RedisCache)(nil)
