// Package file keeps each key in its own file under one directory, the
// on-disk stand-in for browser local storage.
//
// Writes go to "<name>.tmp" and are renamed over "<name>.kv", so readers
// see either the old or the new value and never a torn one. All access goes
// through an os.Root so a key can never escape the directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/5w1tchy/book-entry/internal/storage/kv"
)

// Config holds store options.
type Config struct {
	Hash       Alg  // key hash; zero means xxh3
	SyncWrites bool // fsync before rename
}

// Store is a kv.Store rooted at a directory.
type Store struct {
	root   *os.Root
	config Config
	mu     sync.Mutex
	closed bool
}

// Open creates dir if needed and opens the store.
func Open(dir string, config Config) (*Store, error) {
	if config.Hash == 0 {
		config.Hash = AlgXXHash3
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file: mkdir %s: %w", dir, err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("file: open %s: %w", dir, err)
	}
	return &Store{root: root, config: config}, nil
}

func (s *Store) name(key string) string {
	return hash(key, s.config.Hash) + ".kv"
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, kv.ErrClosed
	}
	return s.read(key)
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.Update(ctx, key, func([]byte, bool) ([]byte, error) {
		return value, nil
	})
}

// Update holds the key's flock for the whole read-modify-write.
func (s *Store) Update(ctx context.Context, key string, fn kv.UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kv.ErrClosed
	}

	name := s.name(key)
	lf, err := s.root.OpenFile(name+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("file: lock %s: %w", key, err)
	}
	lock, err := acquire(lf)
	if err != nil {
		lf.Close()
		return fmt.Errorf("file: lock %s: %w", key, err)
	}
	defer lock.release()

	old, err := s.read(key)
	found := true
	if errors.Is(err, kv.ErrNotFound) {
		found, err = false, nil
	}
	if err != nil {
		return err
	}

	next, err := fn(old, found)
	if err != nil {
		return err
	}
	return s.write(name, next)
}

func (s *Store) read(key string) ([]byte, error) {
	data, err := s.root.ReadFile(s.name(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("file: read %s: %w", key, err)
	}
	return data, nil
}

// write replaces name atomically via a temp file and rename.
func (s *Store) write(name string, data []byte) error {
	tmp := name + ".tmp"
	f, err := s.root.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("file: create %s: %w", tmp, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		s.root.Remove(tmp)
		return fmt.Errorf("file: write %s: %w", tmp, err)
	}
	if s.config.SyncWrites {
		if err := f.Sync(); err != nil {
			f.Close()
			s.root.Remove(tmp)
			return fmt.Errorf("file: sync %s: %w", tmp, err)
		}
	}
	if err := f.Close(); err != nil {
		s.root.Remove(tmp)
		return fmt.Errorf("file: close %s: %w", tmp, err)
	}
	if err := s.root.Rename(tmp, name); err != nil {
		return fmt.Errorf("file: rename %s: %w", tmp, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kv.ErrClosed
	}
	_, err := s.root.Stat(".")
	return err
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.root.Close()
}
