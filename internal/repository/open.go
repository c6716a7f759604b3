package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"moogla-chat/internal/config"
	"moogla-chat/internal/db"
)

// Open construye el KVRepository indicado por cfg.StoreBackend.
// La función de cierre devuelta nunca es nil.
func Open(ctx context.Context, cfg *config.Config) (KVRepository, func(), error) {
	noop := func() {}

	switch cfg.StoreBackend {
	case "", config.StoreFile:
		repo, err := NewFileKVRepository(cfg.ResolveStorePath())
		if err != nil {
			return nil, noop, err
		}
		return repo, noop, nil

	case config.StoreMemory:
		return NewMemoryKVRepository(), noop, nil

	case config.StoreRedis:
		if cfg.RedisAddr == "" {
			return nil, noop, fmt.Errorf("redis store: REDIS_ADDR not configured")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := client.Ping(ctxPing).Err(); err != nil {
			client.Close()
			return nil, noop, fmt.Errorf("redis ping: %w", err)
		}
		return NewRedisKVRepository(client), func() { client.Close() }, nil

	case config.StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, noop, fmt.Errorf("postgres store: DATABASE_URL not configured")
		}
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return nil, noop, fmt.Errorf("db connect: %w", err)
		}
		if err := db.Ping(ctx, pool); err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("db ping: %w", err)
		}
		repo := NewPgKVRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("ensure schema: %w", err)
		}
		return repo, pool.Close, nil

	case config.StoreSQLite:
		conn, err := db.OpenSQLite(cfg.ResolveSQLitePath())
		if err != nil {
			return nil, noop, err
		}
		repo, err := NewSQLiteKVRepository(ctx, conn)
		if err != nil {
			conn.Close()
			return nil, noop, fmt.Errorf("ensure schema: %w", err)
		}
		return repo, func() { conn.Close() }, nil
	}

	return nil, noop, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
