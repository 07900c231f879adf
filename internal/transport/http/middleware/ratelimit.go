package httpmw

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter — fixed-window лимитер на redis, по одному окну на клиентский
// ip. nil-клиент выключает лимитер целиком.
type RateLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

func NewRateLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
	}
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.client == nil {
			next.ServeHTTP(w, r)
			return
		}

		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		key := l.prefix + ":" + ip
		n, err := l.client.Incr(r.Context(), key).Result()
		if err != nil {
			// fail-open: недоступный redis не должен ронять создание комнат
			slog.Warn("ratelimit incr failed", "err", err)
			next.ServeHTTP(w, r)
			return
		}
		if n == 1 {
			l.client.Expire(r.Context(), key, l.window)
		}
		if n > int64(l.limit) {
			w.Header().Set("Retry-After", l.window.String())
			http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
