package books

import (
	"context"
	"errors"
	"fmt"

	"github.com/5w1tchy/book-entry/internal/models"
	"github.com/5w1tchy/book-entry/internal/storage/kv"
)

// List returns every stored book in insertion order. Under PolicyReset a
// corrupt value reads as an empty list; the stored bytes are only replaced
// by the next Append.
func (c *Catalog) List(ctx context.Context) ([]models.Book, error) {
	raw, err := c.store.Get(ctx, c.opts.Key)
	found := true
	if errors.Is(err, kv.ErrNotFound) {
		found, err = false, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog list: %w", err)
	}

	list, err := c.decode(raw, found)
	if err != nil {
		return nil, fmt.Errorf("catalog list: %w", err)
	}
	return list, nil
}

// Len returns the number of stored books.
func (c *Catalog) Len(ctx context.Context) (int, error) {
	list, err := c.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

// Ping checks the backing store when it supports it.
func (c *Catalog) Ping(ctx context.Context) error {
	if p, ok := c.store.(kv.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
