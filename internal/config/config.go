// Package config reads the service configuration from the environment.
// Load fails fast on values that cannot work; HardeningWarnings reports the
// ones that work but should not reach production.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/5w1tchy/book-entry/internal/storage/file"
	rediskv "github.com/5w1tchy/book-entry/internal/storage/redis"
	s3kv "github.com/5w1tchy/book-entry/internal/storage/s3"
	"github.com/5w1tchy/book-entry/internal/store/books"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

// ErrInvalid wraps every configuration error returned by Load.
var ErrInvalid = errors.New("config: invalid")

// Catalog backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
)

type Catalog struct {
	Backend    string
	Key        string
	OnCorrupt  books.Policy
	UniqueISBN bool
}

type File struct {
	Dir  string
	Hash file.Alg
	Sync bool
}

type S3 struct {
	Client s3kv.ClientConfig
	Bucket string
	Prefix string
}

type Config struct {
	AppEnv          string
	Addr            string
	ShutdownTimeout time.Duration
	TLSCertFile     string
	TLSKeyFile      string

	Catalog     Catalog
	File        File
	Redis       rediskv.ClientConfig
	DatabaseURL string
	S3          S3

	Locale   string
	Currency string

	MaxBodyBytes   int64
	WriteRate      float64
	WriteBurst     int
	StrictSecurity bool
	CORSOrigins    []string
}

// Load reads and validates the environment.
func Load() (*Config, error) {
	c := &Config{
		AppEnv:      env("APP_ENV", "development"),
		Addr:        env("APP_ADDR", ":3000"),
		TLSCertFile: os.Getenv("TLS_CERT_FILE"),
		TLSKeyFile:  os.Getenv("TLS_KEY_FILE"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Locale:      env("DISPLAY_LOCALE", "en-US"),
		Currency:    env("DISPLAY_CURRENCY", "USD"),
		Redis: rediskv.ClientConfig{
			URL:      os.Getenv("UPSTASH_REDIS_URL"),
			Addr:     os.Getenv("REDIS_ADDR"),
			User:     os.Getenv("REDIS_USER"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		S3: S3{
			Client: s3kv.ClientConfig{
				Endpoint:        os.Getenv("AWS_ENDPOINT"),
				Region:          env("AWS_REGION", "us-east-1"),
				AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
				SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			},
			Bucket: os.Getenv("AWS_BUCKET"),
			Prefix: env("CATALOG_S3_PREFIX", "catalog/"),
		},
		File: File{Dir: env("CATALOG_FILE_DIR", "./data")},
	}

	var err error
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return nil, invalid("TLS_CERT_FILE", errors.New("TLS_CERT_FILE and TLS_KEY_FILE go together"))
	}
	if c.ShutdownTimeout, err = envDuration("SHUTDOWN_TIMEOUT", "10s"); err != nil {
		return nil, invalid("SHUTDOWN_TIMEOUT", err)
	}

	// the client also backs the write limiter, so TLS applies whatever the backend
	if c.Redis.Addr != "" {
		if c.Redis.TLS, err = envBool("REDIS_TLS", true); err != nil {
			return nil, invalid("REDIS_TLS", err)
		}
	}

	c.Catalog.Backend = strings.ToLower(env("CATALOG_BACKEND", BackendMemory))
	c.Catalog.Key = env("CATALOG_KEY", books.DefaultKey)
	if c.Catalog.OnCorrupt, err = books.ParsePolicy(os.Getenv("CATALOG_ON_CORRUPT")); err != nil {
		return nil, invalid("CATALOG_ON_CORRUPT", err)
	}
	if c.Catalog.UniqueISBN, err = envBool("CATALOG_UNIQUE_ISBN", false); err != nil {
		return nil, invalid("CATALOG_UNIQUE_ISBN", err)
	}

	switch c.Catalog.Backend {
	case BackendMemory:
	case BackendFile:
		if c.File.Hash, err = file.ParseAlg(os.Getenv("CATALOG_FILE_HASH")); err != nil {
			return nil, invalid("CATALOG_FILE_HASH", err)
		}
		if c.File.Sync, err = envBool("CATALOG_FILE_SYNC", true); err != nil {
			return nil, invalid("CATALOG_FILE_SYNC", err)
		}
	case BackendRedis:
		if c.Redis.URL == "" && c.Redis.Addr == "" {
			return nil, invalid("UPSTASH_REDIS_URL", errors.New("set UPSTASH_REDIS_URL or REDIS_ADDR/REDIS_USER/REDIS_PASSWORD"))
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return nil, invalid("DATABASE_URL", errors.New("required for the postgres backend"))
		}
	case BackendS3:
		if c.S3.Bucket == "" {
			return nil, invalid("AWS_BUCKET", errors.New("required for the s3 backend"))
		}
		if c.S3.Client.PathStyle, err = envBool("AWS_S3_PATH_STYLE", c.S3.Client.Endpoint != ""); err != nil {
			return nil, invalid("AWS_S3_PATH_STYLE", err)
		}
	default:
		return nil, invalid("CATALOG_BACKEND", fmt.Errorf("unknown backend %q", c.Catalog.Backend))
	}

	if _, err := language.Parse(c.Locale); err != nil {
		return nil, invalid("DISPLAY_LOCALE", err)
	}
	if _, err := currency.ParseISO(c.Currency); err != nil {
		return nil, invalid("DISPLAY_CURRENCY", err)
	}

	if c.MaxBodyBytes, err = envInt64("MAX_BODY_SIZE", 1<<20); err != nil || c.MaxBodyBytes <= 0 {
		return nil, invalid("MAX_BODY_SIZE", positive(err))
	}
	if c.WriteRate, err = envFloat("WRITE_RATE_PER_SEC", 5); err != nil || c.WriteRate <= 0 {
		return nil, invalid("WRITE_RATE_PER_SEC", positive(err))
	}
	burst, err := envInt64("WRITE_BURST", 20)
	if err != nil || burst < 1 {
		return nil, invalid("WRITE_BURST", positive(err))
	}
	c.WriteBurst = int(burst)
	c.StrictSecurity = os.Getenv("STRICT_SECURITY") == "1"
	for _, o := range strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			c.CORSOrigins = append(c.CORSOrigins, o)
		}
	}

	return c, nil
}

// Production reports whether APP_ENV is production.
func (c *Config) Production() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// TLS reports whether the server terminates TLS itself.
func (c *Config) TLS() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// HardeningWarnings returns non-fatal warnings to log on startup.
func HardeningWarnings(c *Config) []string {
	var warns []string

	if strings.HasPrefix(c.Redis.URL, "redis://") {
		warns = append(warns, "UPSTASH_REDIS_URL uses redis:// (no TLS). Prefer rediss:// for TLS")
	}
	if c.Redis.URL == "" && c.Redis.Addr != "" && !c.Redis.TLS {
		warns = append(warns, "REDIS_TLS=false; traffic to Redis is unencrypted")
	}
	if c.Catalog.OnCorrupt == books.PolicyReset {
		warns = append(warns, "CATALOG_ON_CORRUPT=reset discards an unreadable catalog on the next write")
	}

	// Production-specific nudges
	if c.Production() {
		switch c.Catalog.Backend {
		case BackendMemory:
			warns = append(warns, "CATALOG_BACKEND=memory in production; the catalog is lost on restart")
		case BackendRedis:
			if c.Redis.URL == "" && (c.Redis.User == "" || c.Redis.Password == "") {
				warns = append(warns, "REDIS_ADDR provided without REDIS_USER/REDIS_PASSWORD; require auth in production")
			}
		case BackendFile:
			if !c.File.Sync {
				warns = append(warns, "CATALOG_FILE_SYNC=false; a crash can lose the last append")
			}
		}
		if !c.StrictSecurity {
			warns = append(warns, "STRICT_SECURITY not set; COOP/COEP/CORP headers are off")
		}
		if !c.TLS() {
			warns = append(warns, "TLS_CERT_FILE/TLS_KEY_FILE not set; serving plain HTTP (terminate TLS upstream)")
		}
	}

	return warns
}

// --- helpers ---

func invalid(key string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
}

func positive(err error) error {
	if err != nil {
		return err
	}
	return errors.New("must be > 0")
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envDuration(key, def string) (time.Duration, error) {
	s := env(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("not a boolean: %q", v)
	}
	return b, nil
}

func envInt64(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %v", err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %v", err)
	}
	return f, nil
}
