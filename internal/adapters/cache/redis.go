// Package cache provides a Redis-backed artifact cache.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/curio/internal/domain/artifact"
)

const defaultPrefix = "curio:artifact:"

// RedisCache implements artifact.Cache on Redis strings with an optional TTL.
type RedisCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

var _ artifact.Cache = (*RedisCache)(nil)

// Option applies a configuration option to the RedisCache.
type Option func(*RedisCache)

// WithTTL expires artifacts after d. Zero keeps them until evicted.
func WithTTL(d time.Duration) Option {
	return func(c *RedisCache) {
		if d >= 0 {
			c.ttl = d
		}
	}
}

// WithPrefix namespaces every key.
func WithPrefix(prefix string) Option {
	return func(c *RedisCache) {
		c.prefix = prefix
	}
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client redis.Cmdable, opts ...Option) *RedisCache {
	c := &RedisCache{client: client, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect opens a client and verifies it with PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	return client, nil
}

// Get returns artifact.ErrCacheMiss when the key is absent.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, artifact.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

// Set stores value under key.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, c.prefix+key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Ping checks connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
