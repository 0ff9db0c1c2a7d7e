// Package postgres keeps catalog keys in a single kv_entries table.
//
// Update serialises writers per key with a transaction-scoped advisory lock,
// which also covers the first insert when no row exists yet (a plain
// SELECT ... FOR UPDATE would lock nothing in that case).
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/5w1tchy/book-entry/internal/storage/kv"
	"github.com/5w1tchy/book-entry/internal/store/dbx"
)

const (
	schemaSQL = `CREATE TABLE IF NOT EXISTS kv_entries (
	key        TEXT PRIMARY KEY,
	value      BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	getSQL    = `SELECT value FROM kv_entries WHERE key = $1`
	lockSQL   = `SELECT pg_advisory_xact_lock(hashtext($1))`
	getForSQL = `SELECT value FROM kv_entries WHERE key = $1 FOR UPDATE`
	upsertSQL = `INSERT INTO kv_entries (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
)

// Store is a kv.Store over database/sql with the pgx driver.
type Store struct {
	db      *sql.DB
	retries int
	owned   bool
}

// New wraps db. When owned is true Close also closes db.
func New(db *sql.DB, owned bool) *Store {
	return &Store{db: db, retries: kv.DefaultRetries, owned: owned}
}

// EnsureSchema creates the table if it is missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := dbx.Exec(ctx, s.db, schemaSQL); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := dbx.Get(ctx, s.db, getSQL, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres get %s: %w", key, err)
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if _, err := dbx.Exec(ctx, s.db, upsertSQL, key, value); err != nil {
		return fmt.Errorf("postgres set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, key string, fn kv.UpdateFunc) error {
	for attempt := 0; attempt < s.retries; attempt++ {
		err := dbx.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
			if _, err := dbx.Exec(ctx, tx, lockSQL, key); err != nil {
				return err
			}

			var old []byte
			found := true
			err := dbx.Get(ctx, tx, getForSQL, key).Scan(&old)
			if errors.Is(err, sql.ErrNoRows) {
				found, err = false, nil
			}
			if err != nil {
				return err
			}

			next, err := fn(old, found)
			if err != nil {
				return err
			}
			_, err = dbx.Exec(ctx, tx, upsertSQL, key, next)
			return err
		})
		if err == nil {
			return nil
		}
		if dbx.Retryable(err) {
			log.Printf("[postgres] update %s: %v, retrying (%d/%d)", key, err, attempt+1, s.retries)
			continue
		}
		return fmt.Errorf("postgres update %s: %w", key, err)
	}
	return fmt.Errorf("postgres update %s: %w", key, kv.ErrConflict)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}
