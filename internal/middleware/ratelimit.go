package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter enforces a fixed-window request limit keyed by user or client
// IP, backed by Redis. A nil client or a Redis failure fails open: abuse
// protection is not worth an outage.
type RateLimiter struct {
	redis   *redis.Client
	limit   int64
	window  time.Duration
	prefix  string
	keyFunc func(r *http.Request) string
	byIP    bool
}

// NewRateLimiter creates a rate limiting middleware. keyFunc extracts the
// limit key from the request; when it returns "" and byIP is set, the client
// IP is used instead.
func NewRateLimiter(redisClient *redis.Client, limit int64, window time.Duration, prefix string, keyFunc func(r *http.Request) string, byIP bool) *RateLimiter {
	return &RateLimiter{
		redis:   redisClient,
		limit:   limit,
		window:  window,
		prefix:  prefix,
		keyFunc: keyFunc,
		byIP:    byIP,
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.redis == nil {
			next.ServeHTTP(w, r)
			return
		}

		key := ""
		if rl.keyFunc != nil {
			key = rl.keyFunc(r)
		}
		if key == "" {
			if !rl.byIP {
				next.ServeHTTP(w, r)
				return
			}
			key = getClientIP(r)
		}

		allowed, remaining, resetTime, err := rl.isAllowed(r.Context(), rl.prefix+key)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetTime))

		if !allowed {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", resetTime-time.Now().Unix()))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"Rate limit exceeded. Please try again later.","reason":"rate_limited"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) isAllowed(ctx context.Context, key string) (allowed bool, remaining int64, resetTime int64, err error) {
	now := time.Now()
	windowEnd := now.Truncate(rl.window).Add(rl.window)

	pipe := rl.redis.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, rl.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return true, rl.limit, windowEnd.Unix(), err
	}

	count := incrCmd.Val()
	remaining = rl.limit - count
	if remaining < 0 {
		remaining = 0
	}

	return count <= rl.limit, remaining, windowEnd.Unix(), nil
}

func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (for reverse proxies)
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
