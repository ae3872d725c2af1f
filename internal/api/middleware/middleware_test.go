package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3"

	"github.com/jeevanpath/backend/internal/api/middleware"
	"github.com/jeevanpath/backend/internal/application/loaders"
	"github.com/jeevanpath/backend/internal/domain/providers"
)

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMapCache() *mapCache {
	return &mapCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	return v, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.ttls[key] = ttl
	return nil
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func countingHandler(calls *int, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"success":true}`))
	})
}

func TestCacheMiddleware_CachesResourceLookups(t *testing.T) {
	cache := newMapCache()
	calls := 0
	h := middleware.NewCacheMiddleware(cache, time.Minute, nil).Middleware(countingHandler(&calls, http.StatusOK))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/resources/nearby?lat=28.6&lng=77.2", nil))
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/resources/nearby?lng=77.2&lat=28.6", nil))
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"success":true}`, second.Body.String())

	assert.Equal(t, 1, calls)
	require.Len(t, cache.ttls, 1)
	for _, ttl := range cache.ttls {
		assert.Equal(t, time.Minute, ttl)
	}
}

func TestCacheMiddleware_SkipsOtherRoutesAndFailures(t *testing.T) {
	cache := newMapCache()
	calls := 0
	h := middleware.NewCacheMiddleware(cache, time.Minute, nil).Middleware(countingHandler(&calls, http.StatusOK))

	for i := 0; i < 2; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/emergency/service/u1", nil))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/resources/nearby", nil))
	}
	assert.Equal(t, 4, calls)
	assert.Empty(t, cache.data)

	failing := middleware.NewCacheMiddleware(cache, time.Minute, nil).Middleware(countingHandler(&calls, http.StatusNotFound))
	failing.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/resources/missing", nil))
	assert.Empty(t, cache.data)
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name       string
		allowed    []string
		origin     string
		method     string
		wantOrigin string
		wantStatus int
	}{
		{"wildcard", []string{"*"}, "https://app.example", http.MethodGet, "*", http.StatusOK},
		{"listed origin", []string{"https://app.example"}, "https://app.example", http.MethodGet, "https://app.example", http.StatusOK},
		{"unlisted origin", []string{"https://app.example"}, "https://evil.example", http.MethodGet, "", http.StatusOK},
		{"preflight", []string{"*"}, "https://app.example", http.MethodOptions, "*", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/resources/nearby", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()

			middleware.CORSMiddleware(tt.allowed)(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	mw, err := middleware.RateLimitMiddleware("2-M", false, nil)
	require.NoError(t, err)

	calls := 0
	h := mw(countingHandler(&calls, http.StatusOK))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/resources/nearby", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)

		if rec.Code == http.StatusTooManyRequests {
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
			assert.Equal(t, "RATE_LIMITED", body["code"])
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	health := httptest.NewRequest(http.MethodGet, "/health", nil)
	health.RemoteAddr = "10.0.0.1:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, health)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitMiddleware_InvalidRate(t *testing.T) {
	_, err := middleware.RateLimitMiddleware("lots", false, nil)
	require.Error(t, err)
}

func TestRateLimitMiddleware_IgnoresForwardedForByDefault(t *testing.T) {
	mw, err := middleware.RateLimitMiddleware("1-M", false, nil)
	require.NoError(t, err)

	calls := 0
	h := mw(countingHandler(&calls, http.StatusOK))

	codes := make([]int, 0, 2)
	for _, forwarded := range []string{"203.0.113.1", "203.0.113.2"} {
		req := httptest.NewRequest(http.MethodPost, "/api/emergency/alert", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, 1, calls)
}

func TestRateLimitMiddleware_TrustedForwardedFor(t *testing.T) {
	mw, err := middleware.RateLimitMiddleware("1-M", true, nil)
	require.NoError(t, err)

	calls := 0
	h := mw(countingHandler(&calls, http.StatusOK))

	for _, forwarded := range []string{"203.0.113.1", "203.0.113.2"} {
		req := httptest.NewRequest(http.MethodGet, "/api/resources/nearby", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 2, calls)
}

// brokenStore is a limiter store whose backend is unreachable
type brokenStore struct{}

func (brokenStore) Get(ctx context.Context, key string, rate limiter.Rate) (limiter.Context, error) {
	return limiter.Context{}, errors.New("dial tcp: connection refused")
}

func (brokenStore) Peek(ctx context.Context, key string, rate limiter.Rate) (limiter.Context, error) {
	return limiter.Context{}, errors.New("dial tcp: connection refused")
}

func (brokenStore) Reset(ctx context.Context, key string, rate limiter.Rate) (limiter.Context, error) {
	return limiter.Context{}, errors.New("dial tcp: connection refused")
}

func (brokenStore) Increment(ctx context.Context, key string, count int64, rate limiter.Rate) (limiter.Context, error) {
	return limiter.Context{}, errors.New("dial tcp: connection refused")
}

func TestRateLimitMiddleware_StoreFailureLetsRequestsThrough(t *testing.T) {
	mw, err := middleware.RateLimitMiddleware("1-M", false, brokenStore{})
	require.NoError(t, err)

	calls := 0
	h := mw(countingHandler(&calls, http.StatusCreated))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/emergency/alert", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)
	}
	assert.Equal(t, 3, calls)
}

func TestObservabilityMiddleware_PassesThroughStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/resources/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "r1", r.PathValue("id"))
		w.WriteHeader(http.StatusAccepted)
	})

	rec := httptest.NewRecorder()
	middleware.ObservabilityMiddleware(nil)(mux).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/resources/r1", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestLoggingMiddleware_KeepsFlusher(t *testing.T) {
	var flushable bool
	h := middleware.LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, flushable = w.(http.Flusher)
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.True(t, flushable)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestLoadersMiddleware_AttachesLoaders(t *testing.T) {
	var got *loaders.Loaders
	h := middleware.LoadersMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = loaders.For(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, got)
	assert.NotNil(t, got.ResourceLoader)
}
