// Package kv defines the key-value contract the catalog persists through and
// an in-memory implementation of it. Networked and on-disk implementations
// live in sibling packages under internal/storage.
package kv

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("kv: key not found")
	// ErrConflict is returned by Update when a concurrent writer kept winning
	// and the retry budget ran out.
	ErrConflict = errors.New("kv: concurrent update conflict")
	ErrClosed   = errors.New("kv: store closed")
)

// UpdateFunc receives the current value (found=false when the key is absent)
// and returns the value to store. Returning an error aborts the update and
// leaves the stored value untouched. It may be called more than once when a
// backend retries after a conflict, so it must not have side effects.
type UpdateFunc func(old []byte, found bool) ([]byte, error)

// Store is a flat byte-valued map keyed by string.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Update performs an atomic read-modify-write of one key.
	Update(ctx context.Context, key string, fn UpdateFunc) error
	Close() error
}

// Pinger is implemented by stores that can report backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DefaultRetries bounds optimistic retry loops in backends.
const DefaultRetries = 8
