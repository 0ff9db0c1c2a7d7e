package redis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ClientConfig selects between a full connection URL and split fields.
type ClientConfig struct {
	URL      string // e.g. rediss://default:<token>@host:port
	Addr     string // host:port (no scheme)
	User     string
	Password string
	// TLS forces TLS on the split-field path. URL connections follow the scheme.
	TLS bool
}

// NewClient builds a client from cfg and fails fast if Redis is unreachable.
func NewClient(ctx context.Context, cfg ClientConfig) (*goredis.Client, error) {
	var opt *goredis.Options

	if cfg.URL != "" {
		parsed, err := goredis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("redis: invalid url: %w", err)
		}
		parsed.DialTimeout = 5 * time.Second
		parsed.ReadTimeout = 1 * time.Second
		parsed.WriteTimeout = 1 * time.Second
		opt = parsed
	} else {
		if cfg.Addr == "" {
			return nil, errors.New("redis: missing address")
		}
		opt = &goredis.Options{
			Addr:         cfg.Addr,
			Username:     cfg.User,
			Password:     cfg.Password,
			DB:           0,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
		}
		if cfg.TLS {
			opt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
	}

	// store and limiter calls carry their own deadlines
	opt.ContextTimeoutEnabled = true

	rdb := goredis.NewClient(opt)

	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return rdb, nil
}
