package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-api-otp/internal/config"
	"github.com/go-api-otp/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// compareAndSwap replaces KEYS[1] with ARGV[2] (EX ARGV[3]) only while it still holds ARGV[1].
var compareAndSwap = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[2], "EX", ARGV[3])
	return 1
end
return 0
`)

// compareAndDelete removes KEYS[1] only while it still holds ARGV[1].
var compareAndDelete = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewClient creates a Redis client from cfg.
func NewClient(cfg *config.Config) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// KV implements the passcode cache on top of Redis strings with EX expiry.
type KV struct {
	client goredis.UniversalClient
}

func NewKV(client goredis.UniversalClient) *KV {
	return &KV{client: client}
}

func (k *KV) Get(ctx context.Context, key string) (string, error) {
	v, err := k.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", fmt.Errorf("key %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return v, nil
}

func (k *KV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := k.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (k *KV) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := k.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

func (k *KV) CompareAndSwap(ctx context.Context, key, old, value string, ttl time.Duration) (bool, error) {
	n, err := compareAndSwap.Run(ctx, k.client, []string{key}, old, value, int64(ttl/time.Second)).Int()
	if err != nil {
		return false, fmt.Errorf("redis compare-and-swap: %w", err)
	}
	return n == 1, nil
}

func (k *KV) CompareAndDelete(ctx context.Context, key, old string) (bool, error) {
	n, err := compareAndDelete.Run(ctx, k.client, []string{key}, old).Int()
	if err != nil {
		return false, fmt.Errorf("redis compare-and-delete: %w", err)
	}
	return n == 1, nil
}

func (k *KV) Delete(ctx context.Context, key string) error {
	if err := k.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
