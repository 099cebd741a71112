package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jaennil/guide_helper/backend/tileengine/internal/tile"
	"github.com/redis/go-redis/v9"
)

const redisKeyVersion = "v1"

type RedisLayer struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

var _ Layer = (*RedisLayer)(nil)
var _ Purger = (*RedisLayer)(nil)

func NewRedisLayer(cfg RedisConfig) (*RedisLayer, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newRedisLayer(client, cfg.TTL), nil
}

func newRedisLayer(client *redis.Client, ttl time.Duration) *RedisLayer {
	if ttl == 0 {
		ttl = 24 * time.Hour // default TTL
	}

	return &RedisLayer{
		client: client,
		ttl:    ttl,
	}
}

func (c *RedisLayer) Name() string {
	return "redis"
}

func (c *RedisLayer) keyFor(k tile.Key) string {
	return fmt.Sprintf("%s:tile:%s:%d:%d:%d", redisKeyVersion, k.Source, k.Zoom, k.X, k.Y)
}

func (c *RedisLayer) Get(ctx context.Context, k tile.Key) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.keyFor(k)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get error: %w", err)
	}

	return data, true, nil
}

func (c *RedisLayer) Set(ctx context.Context, k tile.Key, v []byte) error {
	if err := c.client.Set(ctx, c.keyFor(k), v, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}

	return nil
}

func (c *RedisLayer) Purge(ctx context.Context, source string) error {
	pattern := fmt.Sprintf("%s:tile:%s:*", redisKeyVersion, source)
	iter := c.client.Scan(ctx, 0, pattern, 500).Iterator()

	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 500 {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis del error: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan error: %w", err)
	}
	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis del error: %w", err)
		}
	}

	return nil
}

func (c *RedisLayer) Close() error {
	return c.client.Close()
}
