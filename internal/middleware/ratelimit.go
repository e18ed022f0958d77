package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/honeypot/backend/internal/metrics"
)

// Counter records a hit for key and returns the number of hits inside the trailing
// window, including this one.
type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration, now time.Time) (int64, error)
}

// RateLimiter applies a sliding-window limit per client IP.
type RateLimiter struct {
	counter  Counter
	limit    int
	window   time.Duration
	endpoint string
	now      func() time.Time
	logger   zerolog.Logger
}

// NewRateLimiter limits each client to limit requests per window on the wrapped
// endpoint.
func NewRateLimiter(counter Counter, endpoint string, limit int, window time.Duration, logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		counter:  counter,
		limit:    limit,
		window:   window,
		endpoint: endpoint,
		now:      time.Now,
		logger:   logger,
	}
}

// Middleware returns the rate limiting middleware. Counter failures let the request
// through.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := RealIP(r)
		now := rl.now()

		count, ok := rl.hit(r.Context(), ip, now)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		remaining := rl.limit - int(count)
		if remaining < 0 {
			remaining = 0
		}
		resetAt := now.Add(rl.window)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if rl.exceeded(count, ip, r.URL.Path) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Allow records one hit for clientIP in the same window Middleware uses and reports
// whether it is inside the limit. Counter failures allow.
func (rl *RateLimiter) Allow(ctx context.Context, clientIP string) bool {
	count, ok := rl.hit(ctx, clientIP, rl.now())
	if !ok {
		return true
	}
	return !rl.exceeded(count, clientIP, "frame")
}

// hit returns ok=false when the counter is unavailable.
func (rl *RateLimiter) hit(ctx context.Context, ip string, now time.Time) (int64, bool) {
	key := "ratelimit:" + rl.endpoint + ":" + ip
	count, err := rl.counter.Hit(ctx, key, rl.window, now)
	if err != nil {
		rl.logger.Warn().Err(err).Str("key", key).Msg("rate limit counter unavailable")
		return 0, false
	}
	return count, true
}

func (rl *RateLimiter) exceeded(count int64, ip, endpoint string) bool {
	if count <= int64(rl.limit) {
		return false
	}
	metrics.RateLimitHits.WithLabelValues(rl.endpoint).Inc()
	rl.logger.Warn().
		Str("type", "security").
		Str("event", "rate_limit_exceeded").
		Str("ip", ip).
		Str("endpoint", endpoint).
		Msg("rate limit exceeded")
	return true
}

// RedisCounter keeps one sorted set of hit timestamps per key.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter returns a Counter backed by client.
func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

// Hit implements Counter.
func (c *RedisCounter) Hit(ctx context.Context, key string, window time.Duration, now time.Time) (int64, error) {
	windowStart := now.Add(-window)

	pipe := c.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("(%d", windowStart.UnixMilli()))
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	})
	countCmd := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, window*2)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("rate limit pipeline: %w", err)
	}
	return countCmd.Val(), nil
}

// MemoryCounter is an in-process Counter for single-instance deployments. Keys with
// no hit inside the window are swept at most once per window.
type MemoryCounter struct {
	mu        sync.Mutex
	hits      map[string][]time.Time
	lastSweep time.Time
}

// NewMemoryCounter returns an empty MemoryCounter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{hits: make(map[string][]time.Time)}
}

// Hit implements Counter.
func (c *MemoryCounter) Hit(_ context.Context, key string, window time.Duration, now time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	windowStart := now.Add(-window)
	if now.Sub(c.lastSweep) >= window {
		c.sweep(windowStart)
		c.lastSweep = now
	}

	kept := c.hits[key][:0]
	for _, ts := range c.hits[key] {
		if !ts.Before(windowStart) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	c.hits[key] = kept
	return int64(len(kept)), nil
}

// sweep drops keys whose newest hit is older than windowStart. Callers hold mu.
func (c *MemoryCounter) sweep(windowStart time.Time) {
	for key, hits := range c.hits {
		if len(hits) == 0 || hits[len(hits)-1].Before(windowStart) {
			delete(c.hits, key)
		}
	}
}

// RealIP extracts the client IP from proxy headers or the connection.
func RealIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
