// Package ratelimit throttles unauthenticated endpoints per client IP.
package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/amarastays/backend-villa/internal/common"
)

// New builds a limiter backed by Redis with a fixed-window rate.
func New(rdb *redis.Client, max int64, window time.Duration) (*limiter.Limiter, error) {
	store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{
		Prefix: "ratelimit",
	})
	if err != nil {
		return nil, err
	}
	return limiter.New(store, limiter.Rate{Limit: max, Period: window}), nil
}

// Middleware enforces the limit keyed by client IP and sets the usual
// X-RateLimit headers on every response.
func Middleware(l *limiter.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := l.Get(r.Context(), common.ClientIP(r))
			if err != nil {
				// Fail open when Redis is unavailable.
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(ctx.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(ctx.Remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(ctx.Reset, 10))

			if ctx.Reached {
				common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, slow down", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
