package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shoe-uugan/ai-chat/pkg/config"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when a key is not present in the cache
var ErrCacheMiss = errors.New("cache miss")

// Cache is a Redis-backed cache for read-mostly records such as
// character definitions. Values are stored as JSON.
type Cache struct {
	client  *redis.Client
	ttl     time.Duration
	enabled bool
}

// New creates a cache from the application configuration
func New() *Cache {
	cfg := config.Get()

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	return &Cache{
		client:  client,
		ttl:     cfg.Cache.TTL,
		enabled: cfg.Cache.Enabled,
	}
}

// NewWithClient creates a cache around an existing Redis client
func NewWithClient(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl, enabled: true}
}

// Set stores a value under key with the default TTL
func (c *Cache) Set(ctx context.Context, key string, value any) error {
	if !c.enabled {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Get loads the value stored under key into dest. Returns ErrCacheMiss
// when the key is absent or the cache is disabled.
func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	if !c.enabled {
		return ErrCacheMiss
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	}

	return json.Unmarshal(data, dest)
}

// Delete removes a key, e.g. after an admin edit invalidates a record
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if !c.enabled || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Ping verifies the Redis connection for health checks
func (c *Cache) Ping(ctx context.Context) error {
	if !c.enabled {
		return nil
	}
	return c.client.Ping(ctx).Err()
}
