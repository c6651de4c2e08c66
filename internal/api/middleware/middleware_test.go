package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID_Assigns(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/trials", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))
}

func TestRequestID_HonorsCallerHeader(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trials", nil)
	req.Header.Set("X-Request-ID", "upstream-7")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "upstream-7", seen)
	assert.Equal(t, "upstream-7", w.Header().Get("X-Request-ID"))
}

func TestRecovery_ConvertsPanicTo500(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/trials", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "unexpected error")
}

func TestLogger_PassesThrough(t *testing.T) {
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}

func TestLogger_KeepsFlusher(t *testing.T) {
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, ok := w.(http.Flusher)
		assert.True(t, ok, "wrapped writer must still flush for SSE")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

// countingCache implements just enough of cache.Cache for rate limit tests.
type countingCache struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newCountingCache() *countingCache { return &countingCache{counts: map[string]int64{}} }

func (c *countingCache) Enabled() bool                                { return true }
func (c *countingCache) Ping(context.Context) error                   { return nil }
func (c *countingCache) Delete(context.Context, string) error         { return nil }
func (c *countingCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (c *countingCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}
func (c *countingCache) IncrWithExpiry(_ context.Context, key string, _ time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	c.counts[key]++
	return c.counts[key], nil
}

func limitedHandler(rl *RateLimit) http.Handler {
	return rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRateLimit_AllowsUnderLimit(t *testing.T) {
	rl := NewRateLimit(newCountingCache(), 3)
	h := limitedHandler(rl)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/meta-summary", nil)
		req.RemoteAddr = "10.1.2.3:5555"
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimit_RejectsOverLimit(t *testing.T) {
	rl := NewRateLimit(newCountingCache(), 2)
	h := limitedHandler(rl)

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/meta-summary", nil)
		req.RemoteAddr = "10.1.2.3:5555"
		h.ServeHTTP(last, req)
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Equal(t, "60", last.Header().Get("Retry-After"))
	assert.Equal(t, "0", last.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimit_SeparateClients(t *testing.T) {
	rl := NewRateLimit(newCountingCache(), 1)
	h := limitedHandler(rl)

	for _, addr := range []string{"10.0.0.1:1111", "10.0.0.2:2222"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/meta-summary", nil)
		req.RemoteAddr = addr
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "first request from %s", addr)
	}
}

func TestRateLimit_FailsOpenOnCacheError(t *testing.T) {
	c := newCountingCache()
	c.err = errors.New("redis down")
	rl := NewRateLimit(c, 1)
	h := limitedHandler(rl)

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/meta-summary", nil)
		req.RemoteAddr = "10.1.2.3:5555"
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimit_DisabledCachePassesThrough(t *testing.T) {
	rl := NewRateLimit(nil, 1)
	h := limitedHandler(rl)

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/meta-summary", nil)
		req.RemoteAddr = "10.1.2.3:5555"
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
