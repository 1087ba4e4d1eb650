package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/openshelf/critique/pkg/httputil"
	"github.com/openshelf/critique/pkg/observability"
)

// RateLimiter throttles requests per client using Redis, so the limit is
// shared across instances. The sign-in endpoints carry it to keep one address
// from hammering the code mailer.
type RateLimiter struct {
	redis   *redis.Client
	limit   int
	window  time.Duration
	prefix  string
	metrics *observability.Metrics
}

// NewRateLimiter creates a Redis-backed rate limiter. metrics may be nil.
func NewRateLimiter(redisClient *redis.Client, limit int, window time.Duration, metrics *observability.Metrics) *RateLimiter {
	return &RateLimiter{
		redis:   redisClient,
		limit:   limit,
		window:  window,
		prefix:  "ratelimit:signin",
		metrics: metrics,
	}
}

// Allow checks whether the given key is under its limit. Redis failures fail
// open so a limiter outage never blocks sign-in.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	pipe := rl.redis.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("redis error: %w", err)
	}
	return incr.Val() <= int64(rl.limit), nil
}

// Reset clears the counter for a key
func (rl *RateLimiter) Reset(ctx context.Context, key string) error {
	return rl.redis.Del(ctx, fmt.Sprintf("%s:%s", rl.prefix, key)).Err()
}

// Handler wraps an HTTP handler with per-client-address rate limiting. A nil
// receiver disables limiting entirely.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	if rl == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, err := rl.Allow(r.Context(), clientIP(r))
		if err != nil {
			// Fail open.
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			if rl.metrics != nil {
				rl.metrics.RateLimitedTotal.Inc()
			}
			httputil.WriteTooManyRequests(w, "too many requests, try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}
