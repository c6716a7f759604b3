package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"moogla-chat/internal/config"
)

type mockRedisKVClient struct {
	lastGetKey string
	lastSetKey string
	lastSetVal interface{}
	lastSetTTL time.Duration
	lastDel    []string

	getVal string
	getErr error
	setErr error
	delErr error
}

func (m *mockRedisKVClient) Get(ctx context.Context, key string) *redis.StringCmd {
	m.lastGetKey = key
	cmd := redis.NewStringCmd(ctx)
	if m.getErr != nil {
		cmd.SetErr(m.getErr)
		return cmd
	}
	cmd.SetVal(m.getVal)
	return cmd
}

func (m *mockRedisKVClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.lastSetKey = key
	m.lastSetVal = value
	m.lastSetTTL = expiration
	cmd := redis.NewStatusCmd(ctx)
	if m.setErr != nil {
		cmd.SetErr(m.setErr)
		return cmd
	}
	cmd.SetVal("OK")
	return cmd
}

func (m *mockRedisKVClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.lastDel = keys
	cmd := redis.NewIntCmd(ctx)
	if m.delErr != nil {
		cmd.SetErr(m.delErr)
		return cmd
	}
	cmd.SetVal(1)
	return cmd
}

func TestRedisKVRepository_Keys(t *testing.T) {
	mock := &mockRedisKVClient{getVal: "[]"}
	repo := &RedisKVRepository{client: mock, prefix: defaultRedisPrefix}
	ctx := context.Background()

	if err := repo.Set(ctx, " chatHistory ", "[]"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if mock.lastSetKey != "moogla:chatHistory" {
		t.Fatalf("unexpected key, got %q", mock.lastSetKey)
	}
	if mock.lastSetTTL != 0 {
		t.Fatalf("expected no expiration, got %v", mock.lastSetTTL)
	}

	v, err := repo.Get(ctx, "chatHistory")
	if err != nil || v != "[]" {
		t.Fatalf("expected [],nil; got %q,%v", v, err)
	}
	if mock.lastGetKey != "moogla:chatHistory" {
		t.Fatalf("unexpected get key %q", mock.lastGetKey)
	}

	if err := repo.Delete(ctx, "chatHistory"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(mock.lastDel) != 1 || mock.lastDel[0] != "moogla:chatHistory" {
		t.Fatalf("unexpected del keys: %+v", mock.lastDel)
	}
}

func TestRedisKVRepository_ErrorPaths(t *testing.T) {
	mock := &mockRedisKVClient{
		getErr: redis.Nil,
		setErr: errors.New("set failed"),
		delErr: errors.New("del failed"),
	}
	repo := &RedisKVRepository{client: mock, prefix: defaultRedisPrefix}
	ctx := context.Background()

	if _, err := repo.Get(ctx, "model"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected redis.Nil mapped to ErrKeyNotFound, got %v", err)
	}
	mock.getErr = errors.New("redis down")
	if _, err := repo.Get(ctx, "model"); err == nil || errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected raw redis error, got %v", err)
	}
	if err := repo.Set(ctx, "model", "x"); err == nil {
		t.Fatalf("expected set error")
	}
	if err := repo.Delete(ctx, "model"); err == nil {
		t.Fatalf("expected delete error")
	}
}

func TestRedisKVRepository_Miniredis(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	exerciseKV(t, NewRedisKVRepository(client))
}

func TestOpen_Redis(t *testing.T) {
	s := miniredis.RunT(t)
	repo, closeFn, err := Open(context.Background(), &config.Config{
		StoreBackend: config.StoreRedis,
		RedisAddr:    s.Addr(),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer closeFn()

	if err := repo.Set(context.Background(), "model", "llama3"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if got, _ := s.Get("moogla:model"); got != "llama3" {
		t.Fatalf("expected value stored under prefix, got %q", got)
	}
}

func TestNewRedisKVRepository_NilClient(t *testing.T) {
	if NewRedisKVRepository(nil) != nil {
		t.Fatalf("expected nil repository for nil client")
	}
}
