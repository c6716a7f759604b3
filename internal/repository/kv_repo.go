package repository

import (
	"context"
	"errors"
	"sync"
)

// ErrKeyNotFound se devuelve cuando la clave no existe en el almacenamiento.
var ErrKeyNotFound = errors.New("key not found")

// KVRepository define el almacenamiento durable clave/valor donde vive el estado local del chat.
type KVRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// MemoryKVRepository guarda los valores en memoria; útil para tests y sesiones efímeras.
type MemoryKVRepository struct {
	mu    sync.Mutex
	items map[string]string
}

func NewMemoryKVRepository() *MemoryKVRepository {
	return &MemoryKVRepository{items: make(map[string]string)}
}

func (r *MemoryKVRepository) Get(_ context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.items[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return v, nil
}

func (r *MemoryKVRepository) Set(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[key] = value
	return nil
}

func (r *MemoryKVRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, key)
	return nil
}
