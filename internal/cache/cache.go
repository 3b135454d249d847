// Package cache provides a small Redis-backed cache used to absorb repeated
// credit status reads. Values are stored as JSON under namespaced keys.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrMiss is returned when the key is absent.
var ErrMiss = errors.New("cache miss")

// Cache wraps a Redis client with namespaced JSON accessors.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// Config configures the cache connection.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// New creates a cache backed by the given Redis instance. Callers should
// Ping before relying on it.
func New(cfg Config) *Cache {
	return &Cache{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		ttl: cfg.TTL,
	}
}

// Ping verifies connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

func cacheKey(namespace, key string) string {
	return namespace + ":" + key
}

// SetJSON stores value as JSON under namespace:key with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, namespace, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(namespace, key), data, c.ttl).Err()
}

// GetJSON loads namespace:key into dst, returning ErrMiss when absent.
func (c *Cache) GetJSON(ctx context.Context, namespace, key string, dst interface{}) error {
	data, err := c.client.Get(ctx, cacheKey(namespace, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// Delete removes namespace:key. Deleting an absent key is not an error.
func (c *Cache) Delete(ctx context.Context, namespace, key string) error {
	return c.client.Del(ctx, cacheKey(namespace, key)).Err()
}
