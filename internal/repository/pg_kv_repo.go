package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgKVSchema = `
	CREATE TABLE IF NOT EXISTS kv_store (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// PgKVRepository implementa KVRepository usando pgxpool.
type PgKVRepository struct {
	pool *pgxpool.Pool
}

func NewPgKVRepository(pool *pgxpool.Pool) *PgKVRepository {
	return &PgKVRepository{pool: pool}
}

// EnsureSchema crea la tabla kv_store si no existe.
func (r *PgKVRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, pgKVSchema)
	return err
}

func (r *PgKVRepository) Get(ctx context.Context, key string) (string, error) {
	const query = `
		SELECT value
		FROM kv_store
		WHERE key = $1
	`
	var value string
	err := r.pool.QueryRow(ctx, query, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrKeyNotFound
	}
	return value, err
}

func (r *PgKVRepository) Set(ctx context.Context, key, value string) error {
	const query = `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = now()
	`
	_, err := r.pool.Exec(ctx, query, key, value)
	return err
}

func (r *PgKVRepository) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM kv_store WHERE key = $1`
	_, err := r.pool.Exec(ctx, query, key)
	return err
}
