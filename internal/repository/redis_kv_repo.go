package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "moogla:"

type redisKVClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisKVRepository guarda las claves en Redis sin expiración.
type RedisKVRepository struct {
	client redisKVClient
	prefix string
}

func NewRedisKVRepository(client *redis.Client) *RedisKVRepository {
	if client == nil {
		return nil
	}
	return &RedisKVRepository{
		client: client,
		prefix: defaultRedisPrefix,
	}
}

func (r *RedisKVRepository) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	return v, err
}

func (r *RedisKVRepository) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.key(key), value, 0).Err()
}

func (r *RedisKVRepository) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

func (r *RedisKVRepository) key(k string) string {
	return r.prefix + strings.TrimSpace(k)
}
