// Package redis stores catalog keys as plain Redis strings. Update uses
// WATCH/MULTI so two processes appending at once cannot drop a write.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/5w1tchy/book-entry/internal/storage/kv"
	goredis "github.com/redis/go-redis/v9"
)

// Store is a kv.Store over a go-redis client.
type Store struct {
	rdb     *goredis.Client
	prefix  string
	opTO    time.Duration // per-command timeout
	retries int
	owned   bool
}

type Option func(*Store)

// WithPrefix namespaces every key, e.g. "catalog:".
func WithPrefix(p string) Option { return func(s *Store) { s.prefix = p } }

// WithTimeout sets the per-operation timeout (default 1s).
func WithTimeout(d time.Duration) Option { return func(s *Store) { s.opTO = d } }

// WithRetries bounds the optimistic retry loop in Update.
func WithRetries(n int) Option { return func(s *Store) { s.retries = n } }

// WithOwnedClient makes Close also close the client.
func WithOwnedClient() Option { return func(s *Store) { s.owned = true } }

func New(rdb *goredis.Client, opts ...Option) *Store {
	s := &Store{
		rdb:     rdb,
		opTO:    time.Second,
		retries: kv.DefaultRetries,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) key(k string) string { return s.prefix + k }

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTO)
	defer cancel()

	v, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTO)
	defer cancel()

	if err := s.rdb.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Update watches the key, runs fn, and commits in MULTI/EXEC. A concurrent
// write to the key aborts EXEC with TxFailedErr and the whole cycle reruns.
// Each attempt, GET and EXEC included, is bounded by the per-op timeout.
func (s *Store) Update(ctx context.Context, key string, fn kv.UpdateFunc) error {
	k := s.key(key)

	txf := func(ctx context.Context) func(tx *goredis.Tx) error {
		return func(tx *goredis.Tx) error {
			old, err := tx.Get(ctx, k).Bytes()
			found := true
			if errors.Is(err, goredis.Nil) {
				found = false
				err = nil
			}
			if err != nil {
				return err
			}

			next, err := fn(old, found)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				pipe.Set(ctx, k, next, 0)
				return nil
			})
			return err
		}
	}

	for attempt := 0; attempt < s.retries; attempt++ {
		octx, cancel := context.WithTimeout(ctx, s.opTO)
		err := s.rdb.Watch(octx, txf(octx), k)
		cancel()

		if err == nil {
			return nil
		}
		if errors.Is(err, goredis.TxFailedErr) {
			log.Printf("[redis] update %s: conflict, retrying (%d/%d)", key, attempt+1, s.retries)
			continue
		}
		return fmt.Errorf("redis update %s: %w", key, err)
	}
	return fmt.Errorf("redis update %s: %w", key, kv.ErrConflict)
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTO)
	defer cancel()
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	if s.owned {
		return s.rdb.Close()
	}
	return nil
}
