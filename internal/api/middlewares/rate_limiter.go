package middlewares

import (
	"log"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/5w1tchy/book-entry/internal/api/apperr"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// --------- Key helpers ---------

type KeyFunc func(r *http.Request) string

// PerIPKey buckets clients by address.
func PerIPKey(prefix string) KeyFunc {
	return func(r *http.Request) string {
		ip := clientIP(r)
		if ip == "" {
			ip = "unknown"
		}
		return prefix + ":" + ip
	}
}

func clientIP(r *http.Request) string {
	// X-Forwarded-For may have a list: client, proxy1, proxy2...
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return xrip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// Limiter is a rate limit applied as middleware.
type Limiter interface {
	Middleware(next http.Handler) http.Handler
}

func tooManyRequests(w http.ResponseWriter, r *http.Request, policy, key string, retry time.Duration) {
	sec := int64(math.Ceil(retry.Seconds()))
	if sec < 1 {
		sec = 1
	}
	w.Header().Set("Retry-After", strconv.FormatInt(sec, 10))
	log.Printf("[%s] Blocked request from %s (key=%s). Retry after %ds", policy, r.RemoteAddr, key, sec)
	apperr.Write(w, r, apperr.Problem{
		Status:    http.StatusTooManyRequests,
		Title:     "Too Many Requests",
		Detail:    "write rate limit exceeded",
		Retryable: true,
	})
}

// --------- Token Bucket (Redis + Lua) ---------

// RedisTokenBucket shares one bucket per key across every instance using
// the same Redis. It fails open when Redis errors.
type RedisTokenBucket struct {
	rdb      *redis.Client
	keyFn    KeyFunc
	ratePerS float64 // tokens per second
	burst    int     // bucket capacity
	script   *redis.Script
}

const tokenBucketLua = `
-- KEYS[1] = bucket key (hash with fields: tokens, ts)
-- ARGV[1] = ratePerS (float)
-- ARGV[2] = capacity (int)
-- Returns: {allowed (1/0), remaining_tokens, retry_after_ms}
local key   = KEYS[1]
local rate  = tonumber(ARGV[1])
local cap   = tonumber(ARGV[2])

local t = redis.call('TIME')
local now_ms = (tonumber(t[1]) * 1000) + math.floor(tonumber(t[2]) / 1000)

local data = redis.call('HMGET', key, 'tokens', 'ts')
local tokens = tonumber(data[1])
local ts     = tonumber(data[2])

if tokens == nil then
  tokens = cap
  ts = now_ms
end

local delta_ms = now_ms - ts
if delta_ms > 0 then
  tokens = math.min(cap, tokens + (delta_ms / 1000.0) * rate)
end

local allowed = 0
local retry_after_ms = 0

if tokens >= 1.0 then
  tokens = tokens - 1.0
  allowed = 1
else
  retry_after_ms = math.ceil((1.0 - tokens) * 1000.0 / rate)
end

redis.call('HSET', key, 'tokens', tokens, 'ts', now_ms)
redis.call('PEXPIRE', key, math.ceil((cap / rate) * 1000.0))

return {allowed, math.floor(tokens), retry_after_ms}
`

func NewRedisTokenBucket(rdb *redis.Client, ratePerSecond float64, burst int, keyFn KeyFunc) *RedisTokenBucket {
	return &RedisTokenBucket{
		rdb:      rdb,
		keyFn:    keyFn,
		ratePerS: ratePerSecond,
		burst:    burst,
		script:   redis.NewScript(tokenBucketLua),
	}
}

func (tb *RedisTokenBucket) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := tb.keyFn(r)

		res, err := tb.script.Run(r.Context(), tb.rdb, []string{key},
			strconv.FormatFloat(tb.ratePerS, 'f', -1, 64),
			strconv.Itoa(tb.burst),
		).Slice()
		if err != nil || len(res) != 3 {
			log.Printf("[TokenBucket] Redis error: %v (allowing request)", err)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Policy", "token-bucket")
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(tb.burst))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(toInt64(res[1]), 10))

		if toInt64(res[0]) != 1 {
			tooManyRequests(w, r, "TokenBucket", key, time.Duration(toInt64(res[2]))*time.Millisecond)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --------- Token Bucket (in process) ---------

// MemoryTokenBucket keeps one rate.Limiter per key in this process. Idle
// buckets are swept every cleanup interval.
type MemoryTokenBucket struct {
	mu       sync.Mutex
	limiters map[string]*visitor
	keyFn    KeyFunc
	rate     rate.Limit
	burst    int
	cleanup  time.Duration
	stop     chan struct{}
	once     sync.Once
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewMemoryTokenBucket(ratePerSecond float64, burst int, keyFn KeyFunc) *MemoryTokenBucket {
	tb := &MemoryTokenBucket{
		limiters: make(map[string]*visitor),
		keyFn:    keyFn,
		rate:     rate.Limit(ratePerSecond),
		burst:    burst,
		cleanup:  5 * time.Minute,
		stop:     make(chan struct{}),
	}
	go tb.sweep()
	return tb
}

// Close stops the sweeper.
func (tb *MemoryTokenBucket) Close() {
	tb.once.Do(func() { close(tb.stop) })
}

func (tb *MemoryTokenBucket) sweep() {
	ticker := time.NewTicker(tb.cleanup)
	defer ticker.Stop()
	for {
		select {
		case <-tb.stop:
			return
		case <-ticker.C:
			tb.mu.Lock()
			for key, v := range tb.limiters {
				if time.Since(v.lastSeen) > tb.cleanup {
					delete(tb.limiters, key)
				}
			}
			tb.mu.Unlock()
		}
	}
}

func (tb *MemoryTokenBucket) limiter(key string) *rate.Limiter {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	v, ok := tb.limiters[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(tb.rate, tb.burst)}
		tb.limiters[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

func (tb *MemoryTokenBucket) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := tb.keyFn(r)
		lim := tb.limiter(key)

		now := time.Now()
		res := lim.ReserveN(now, 1)
		delay := res.DelayFrom(now)

		w.Header().Set("X-RateLimit-Policy", "token-bucket")
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(tb.burst))

		if !res.OK() || delay > 0 {
			res.CancelAt(now)
			w.Header().Set("X-RateLimit-Remaining", "0")
			tooManyRequests(w, r, "TokenBucket", key, delay)
			return
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(lim.TokensAt(now))))
		next.ServeHTTP(w, r)
	})
}

// --------- utils ---------

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case string:
		i, _ := strconv.ParseInt(t, 10, 64)
		return i
	case []byte:
		i, _ := strconv.ParseInt(string(t), 10, 64)
		return i
	case float64:
		return int64(t)
	default:
		return 0
	}
}
