// Package books is the catalog store: an append-only list of books kept as
// one JSON array under a single key of a kv.Store.
//
// Every addition is a whole read-modify-write of that array, executed through
// kv.Store.Update so the backend serialises concurrent writers.
package books

import (
	"errors"
	"fmt"
	"strings"

	"github.com/5w1tchy/book-entry/internal/storage/kv"
)

// DefaultKey is the key the catalog lives under.
const DefaultKey = "Books"

var (
	// ErrCorrupt means the stored value is not a JSON array of books.
	ErrCorrupt       = errors.New("catalog: stored data is corrupt")
	ErrDuplicateISBN = errors.New("catalog: isbn already in catalog")
)

// Policy decides what happens when the stored list cannot be decoded.
type Policy int

const (
	// PolicyFail returns ErrCorrupt and leaves the stored bytes alone.
	PolicyFail Policy = iota
	// PolicyReset discards the stored value and starts a fresh list.
	PolicyReset
)

// ParsePolicy maps "fail" / "reset" (case-insensitive). Empty means fail.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail":
		return PolicyFail, nil
	case "reset":
		return PolicyReset, nil
	}
	return PolicyFail, fmt.Errorf("catalog: unknown corruption policy %q", s)
}

func (p Policy) String() string {
	if p == PolicyReset {
		return "reset"
	}
	return "fail"
}

// Options configures a Catalog.
type Options struct {
	Key        string // storage key; empty means DefaultKey
	OnCorrupt  Policy
	UniqueISBN bool // reject a book whose ISBN is already stored
}

// Catalog is the persisted, insertion-ordered list of books.
type Catalog struct {
	store kv.Store
	opts  Options
}

func New(store kv.Store, opts Options) *Catalog {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	return &Catalog{store: store, opts: opts}
}

// Key returns the storage key in use.
func (c *Catalog) Key() string { return c.opts.Key }
