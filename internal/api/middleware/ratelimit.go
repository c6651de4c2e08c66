package middleware

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/growthinsights/trialscope/internal/api/response"
	"github.com/growthinsights/trialscope/internal/cache"
)

const defaultRequestsPerMinute = 10

// RateLimit provides per-client sliding-window rate limiting via Redis.
// It is applied only to the expensive generation endpoints; when Redis is
// not configured (or errors) requests pass through unthrottled.
type RateLimit struct {
	cache          cache.Cache
	requestsPerMin int
}

func NewRateLimit(c cache.Cache, requestsPerMin int) *RateLimit {
	if requestsPerMin <= 0 {
		requestsPerMin = defaultRequestsPerMinute
	}
	if c == nil {
		c = cache.Noop{}
	}
	return &RateLimit{cache: c, requestsPerMin: requestsPerMin}
}

// Limit throttles by client address. Fail open: a cache error must never
// block the dashboard.
func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.cache.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		key := cache.RateLimitKey(clientAddr(r))
		count, err := rl.cache.IncrWithExpiry(r.Context(), key, 60*time.Second)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		remaining := rl.requestsPerMin - int(count)
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requestsPerMin))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if count > int64(rl.requestsPerMin) {
			w.Header().Set("Retry-After", "60")
			response.Error(w, http.StatusTooManyRequests, "Too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientAddr(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
