// Package cache provides the Redis access layer: entity read-through
// caching and per-client rate limiting.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// connectTimeout bounds the ping New performs before returning.
const connectTimeout = 5 * time.Second

// Option adjusts the Redis client options parsed from the URL.
type Option func(*redis.Options)

// WithPoolSize overrides the connection pool size.
func WithPoolSize(size int) Option {
	return func(o *redis.Options) {
		o.PoolSize = size
		if o.MinIdleConns > size {
			o.MinIdleConns = size
		}
	}
}

// Cache is a shared Redis client.
type Cache struct {
	client *redis.Client
}

// New connects to redisURL, e.g. "redis://localhost:6379/0", and verifies
// the connection.
func New(ctx context.Context, redisURL string, opts ...Option) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute
	for _, o := range opts {
		o(opt)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return NewFromClient(client), nil
}

// NewFromClient wraps an existing client without pinging it.
func NewFromClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Ping checks Redis connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying client for the alert stream publisher and
// audit worker.
func (c *Cache) Client() *redis.Client {
	return c.client
}
