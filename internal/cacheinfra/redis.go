package cacheinfra

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores msgpack encoded values in redis.
// The lifetime is applied to every write as the key expiry; zero means no expiry.
type RedisBackend struct {
	client redis.UniversalClient
	prefix string

	mu  sync.RWMutex
	ttl time.Duration
}

// NewRedisBackend wraps an existing client. prefix is prepended to every key.
func NewRedisBackend(client redis.UniversalClient, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

// DialRedis connects using cfg and verifies the connection with a PING.
func DialRedis(ctx context.Context, cfg RedisConfig) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisBackend(client, cfg.KeyPrefix), nil
}

func (b *RedisBackend) key(key string) string {
	return b.prefix + key
}

func (b *RedisBackend) Get(ctx context.Context, key string) (any, bool, error) {
	data, err := b.client.Get(ctx, b.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	value, err := decodeValue(data)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, value any) error {
	data, err := encodeValue(value)
	if err != nil {
		return err
	}

	if err := b.client.Set(ctx, b.key(key), data, b.Lifetime()).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (b *RedisBackend) Has(ctx context.Context, key string) (bool, error) {
	n, err := b.client.Exists(ctx, b.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", key, err)
	}
	return n > 0, nil
}

func (b *RedisBackend) SetLifetime(ttl time.Duration) {
	b.mu.Lock()
	b.ttl = ttl
	b.mu.Unlock()
}

func (b *RedisBackend) Lifetime() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ttl
}

// Close closes the underlying client.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
