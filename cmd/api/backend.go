package main

import (
	"context"
	"fmt"
	"log"

	"github.com/5w1tchy/book-entry/internal/config"
	"github.com/5w1tchy/book-entry/internal/repository/sqlconnect"
	"github.com/5w1tchy/book-entry/internal/storage/file"
	"github.com/5w1tchy/book-entry/internal/storage/kv"
	"github.com/5w1tchy/book-entry/internal/storage/postgres"
	rediskv "github.com/5w1tchy/book-entry/internal/storage/redis"
	s3kv "github.com/5w1tchy/book-entry/internal/storage/s3"
	"github.com/redis/go-redis/v9"
)

// openStore builds the catalog backend named by cfg. rdb is reused when the
// backend is Redis; it may be nil otherwise.
func openStore(ctx context.Context, cfg *config.Config, rdb *redis.Client) (kv.Store, error) {
	switch cfg.Catalog.Backend {
	case config.BackendFile:
		s, err := file.Open(cfg.File.Dir, file.Config{Hash: cfg.File.Hash, SyncWrites: cfg.File.Sync})
		if err != nil {
			return nil, err
		}
		log.Printf("[catalog] file backend at %s", cfg.File.Dir)
		return s, nil

	case config.BackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis backend selected but no client")
		}
		log.Println("[catalog] redis backend")
		return rediskv.New(rdb), nil

	case config.BackendPostgres:
		db, err := sqlconnect.ConnectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		s := postgres.New(db, true)
		if err := s.EnsureSchema(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		log.Println("[catalog] postgres backend")
		return s, nil

	case config.BackendS3:
		client, err := s3kv.NewClient(ctx, cfg.S3.Client)
		if err != nil {
			return nil, err
		}
		s := s3kv.New(client, cfg.S3.Bucket, cfg.S3.Prefix)
		pctx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
		defer cancel()
		if err := s.Ping(pctx); err != nil {
			return nil, fmt.Errorf("s3: bucket %s: %w", cfg.S3.Bucket, err)
		}
		log.Printf("[catalog] s3 backend bucket=%s prefix=%s", cfg.S3.Bucket, cfg.S3.Prefix)
		return s, nil
	}

	log.Println("[catalog] memory backend; the catalog is lost on exit")
	return kv.NewMemory(), nil
}
