package regcache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures NewRedisCache, grounded on the teacher's
// cache.Options / cache.DefaultOptions.
type RedisOptions struct {
	Address         string
	Password        string
	DB              int
	DefaultDuration time.Duration
}

// DefaultRedisOptions mirrors the teacher's cache.DefaultOptions: localhost,
// no password, DB 0, and a one-day default TTL.
func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Address:         "localhost:6379",
		DB:              0,
		DefaultDuration: 24 * time.Hour,
	}
}

type redisCache struct {
	client  *redis.Client
	options RedisOptions
}

// NewRedisCache returns a Cache backed by github.com/redis/go-redis/v9,
// suitable for sharing memoized Register snapshots across multiple nodes.
func NewRedisCache(options RedisOptions) Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     options.Address,
		Password: options.Password,
		DB:       options.DB,
	})
	return &redisCache{client: client, options: options}
}

func (c *redisCache) SetStruct(ctx context.Context, key string, value any, expiration time.Duration) error {
	ba, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if expiration <= 0 {
		expiration = c.options.DefaultDuration
	}
	return c.client.Set(ctx, key, ba, expiration).Err()
}

func (c *redisCache) GetStruct(ctx context.Context, key string, target any) (bool, error) {
	s, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), target); err != nil {
		return false, err
	}
	return true, nil
}

func (c *redisCache) Delete(ctx context.Context, keys []string) (bool, error) {
	n, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *redisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
