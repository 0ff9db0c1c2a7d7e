package main

import (
	"context"
	"crypto/tls"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/5w1tchy/book-entry/internal/api/handlers/books"
	mw "github.com/5w1tchy/book-entry/internal/api/middlewares"
	"github.com/5w1tchy/book-entry/internal/api/router"
	"github.com/5w1tchy/book-entry/internal/config"
	"github.com/5w1tchy/book-entry/internal/render"
	rediskv "github.com/5w1tchy/book-entry/internal/storage/redis"
	catalog "github.com/5w1tchy/book-entry/internal/store/books"
	"github.com/5w1tchy/book-entry/internal/validate"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

const defaultPingTimeout = 3 * time.Second

func main() {
	_ = godotenv.Load()

	if err := run(); err != nil {
		log.Fatalf("[server] %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	for _, w := range config.HardeningWarnings(cfg) {
		log.Printf("[config] WARNING: %s", w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis backs the catalog, the write limiter, or both
	var rdb *redis.Client
	if cfg.Redis.URL != "" || cfg.Redis.Addr != "" {
		rdb, err = rediskv.NewClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		log.Println("[server] connected to Redis")
	}

	store, err := openStore(ctx, cfg, rdb)
	if err != nil {
		return err
	}
	defer store.Close()

	c := catalog.New(store, catalog.Options{
		Key:        cfg.Catalog.Key,
		OnCorrupt:  cfg.Catalog.OnCorrupt,
		UniqueISBN: cfg.Catalog.UniqueISBN,
	})

	rnd, err := render.New(cfg.Locale, cfg.Currency)
	if err != nil {
		return err
	}

	var limiter mw.Limiter
	if rdb != nil {
		limiter = mw.NewRedisTokenBucket(rdb, cfg.WriteRate, cfg.WriteBurst, mw.PerIPKey("rl:write"))
	} else {
		tb := mw.NewMemoryTokenBucket(cfg.WriteRate, cfg.WriteBurst, mw.PerIPKey("rl:write"))
		defer tb.Close()
		limiter = tb
	}

	csrf := mw.DefaultCSRFOptions()
	csrf.CookieSecure = cfg.TLS() || cfg.Production()

	handler := mw.Chain(
		router.Router(router.Deps{
			Books:       books.New(validate.Validator{}, c, rnd),
			Ready:       c,
			WriteLimit:  limiter,
			CSRF:        csrf,
			CORSOrigins: cfg.CORSOrigins,
		}),
		mw.RequestID,
		mw.AccessLog,
		mw.Recovery,
		mw.SecurityHeaders(mw.SecurityOptions{Strict: cfg.StrictSecurity}),
		mw.BodySizeLimit(cfg.MaxBodyBytes),
		mw.Compression,
	)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[server] listening on %s (backend=%s, tls=%t)", cfg.Addr, cfg.Catalog.Backend, cfg.TLS())
		if cfg.TLS() {
			errCh <- server.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			errCh <- server.ListenAndServe()
		}
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("[server] shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(sctx); err != nil {
		return err
	}
	log.Println("[server] stopped")
	return nil
}
