package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultEntityTTL is the TTL for cached entities.
const DefaultEntityTTL = time.Hour

// scanBatch is the COUNT hint used when scanning keys for invalidation.
const scanBatch = 200

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// EntityCache caches JSON-encoded entities under "<prefix>:<id>".
type EntityCache[T any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewEntityCache creates a cache for one entity type. A non-positive ttl
// falls back to DefaultEntityTTL.
func NewEntityCache[T any](c *Cache, prefix string, ttl time.Duration) *EntityCache[T] {
	if ttl <= 0 {
		ttl = DefaultEntityTTL
	}
	return &EntityCache[T]{client: c.client, prefix: prefix, ttl: ttl}
}

// Key returns the cache key for id.
func (c *EntityCache[T]) Key(id int64) string {
	return entityKey(c.prefix, id)
}

// Get retrieves an entity by id.
// Returns ErrCacheMiss if not found.
func (c *EntityCache[T]) Get(ctx context.Context, id int64) (T, error) {
	var entity T

	data, err := c.client.Get(ctx, c.Key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return entity, ErrCacheMiss
	}
	if err != nil {
		return entity, fmt.Errorf("redis get failed: %w", err)
	}

	if err := json.Unmarshal(data, &entity); err != nil {
		// Drop undecodable entries so the next read repopulates them.
		c.client.Del(ctx, c.Key(id))
		return entity, ErrCacheMiss
	}
	return entity, nil
}

// Set stores an entity.
func (c *EntityCache[T]) Set(ctx context.Context, id int64, entity T) error {
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("encode cached entity: %w", err)
	}
	if err := c.client.Set(ctx, c.Key(id), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete removes one cached entity.
func (c *EntityCache[T]) Delete(ctx context.Context, id int64) error {
	if err := c.client.Del(ctx, c.Key(id)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

// InvalidateAll removes every cached entity of this type.
func (c *EntityCache[T]) InvalidateAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+":*", scanBatch).Iterator()

	keys := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == scanBatch {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del failed: %w", err)
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan failed: %w", err)
	}

	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("redis del failed: %w", err)
		}
	}
	return nil
}

func entityKey(prefix string, id int64) string {
	return prefix + ":" + strconv.FormatInt(id, 10)
}
