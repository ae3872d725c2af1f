package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeevanpath/backend/internal/domain/providers"
	"github.com/jeevanpath/backend/internal/infrastructure/observability"
)

const responseCachePrefix = "http:cache:"

// CacheRule enables response caching for a path prefix
type CacheRule struct {
	Prefix string
	TTL    time.Duration
}

// CacheMiddleware caches successful GET responses for read-only resource routes
type CacheMiddleware struct {
	cache   providers.CacheProvider
	rules   []CacheRule
	metrics *observability.Metrics
}

// NewCacheMiddleware creates a cache middleware for the resource lookup routes
func NewCacheMiddleware(cache providers.CacheProvider, ttl time.Duration, metrics *observability.Metrics) *CacheMiddleware {
	return NewCacheMiddlewareWithRules(cache, metrics,
		CacheRule{Prefix: "/api/resources/", TTL: ttl},
	)
}

// NewCacheMiddlewareWithRules creates a cache middleware with custom rules.
// The first matching prefix wins.
func NewCacheMiddlewareWithRules(cache providers.CacheProvider, metrics *observability.Metrics, rules ...CacheRule) *CacheMiddleware {
	return &CacheMiddleware{cache: cache, rules: rules, metrics: metrics}
}

// Middleware returns the cache middleware handler
func (m *CacheMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || m.cache == nil {
			next.ServeHTTP(w, r)
			return
		}

		ttl, ok := m.ttlFor(r.URL.Path)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		cacheKey := generateCacheKey(r)

		if cached, err := m.cache.Get(ctx, cacheKey); err == nil {
			observability.RecordCacheHit(ctx, m.metrics, "http")
			w.Header().Set("X-Cache", "HIT")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(cached)
			return
		}

		observability.RecordCacheMiss(ctx, m.metrics, "http")
		w.Header().Set("X-Cache", "MISS")

		recorder := &responseRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
			body:           &bytes.Buffer{},
		}
		next.ServeHTTP(recorder, r)

		if recorder.statusCode == http.StatusOK && recorder.body.Len() > 0 {
			if err := m.cache.Set(ctx, cacheKey, recorder.body.Bytes(), ttl); err != nil {
				log.Warn().Err(err).Str("path", r.URL.Path).Msg("failed to cache response")
			}
		}
	})
}

func (m *CacheMiddleware) ttlFor(path string) (time.Duration, bool) {
	for _, rule := range m.rules {
		if strings.HasPrefix(path, rule.Prefix) && rule.TTL > 0 {
			return rule.TTL, true
		}
	}
	return 0, false
}

// generateCacheKey hashes method, path and query into a fixed-length key
func generateCacheKey(r *http.Request) string {
	key := fmt.Sprintf("%s:%s", r.Method, r.URL.Path)
	if r.URL.RawQuery != "" {
		key += "?" + r.URL.Query().Encode()
	}

	hash := sha256.Sum256([]byte(key))
	return responseCachePrefix + hex.EncodeToString(hash[:])
}

// responseRecorder captures the response for caching
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
	written    bool
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	if !r.written {
		r.statusCode = statusCode
		r.ResponseWriter.WriteHeader(statusCode)
		r.written = true
	}
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	if !r.written {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(data)
	return r.ResponseWriter.Write(data)
}
