package repository

import (
	"context"
	"database/sql"
	"errors"
)

const sqliteKVSchema = `
	CREATE TABLE IF NOT EXISTS kv_store (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)
`

// SQLiteKVRepository implementa KVRepository sobre database/sql con el driver modernc.
type SQLiteKVRepository struct {
	db *sql.DB
}

func NewSQLiteKVRepository(ctx context.Context, db *sql.DB) (*SQLiteKVRepository, error) {
	if _, err := db.ExecContext(ctx, sqliteKVSchema); err != nil {
		return nil, err
	}
	return &SQLiteKVRepository{db: db}, nil
}

func (r *SQLiteKVRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrKeyNotFound
	}
	return value, err
}

func (r *SQLiteKVRepository) Set(ctx context.Context, key, value string) error {
	const query = `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`
	_, err := r.db.ExecContext(ctx, query, key, value)
	return err
}

func (r *SQLiteKVRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, key)
	return err
}
