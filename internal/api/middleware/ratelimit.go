package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	apperrors "github.com/jeevanpath/backend/pkg/errors"
)

// RateLimitMiddleware limits /api requests per client IP. rate uses the
// limiter's formatted notation, e.g. "60-M". A nil store uses process memory.
// The client IP comes from X-Forwarded-For / X-Real-IP only when
// trustForwardHeader is set, which is safe only behind a proxy that
// overwrites those headers. When the store fails, requests are let through.
func RateLimitMiddleware(rate string, trustForwardHeader bool, store limiter.Store) (func(http.Handler) http.Handler, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", rate, err)
	}
	if store == nil {
		store = memory.NewStore()
	}

	limited := stdlib.NewMiddleware(
		limiter.New(store, parsed, limiter.WithTrustForwardHeader(trustForwardHeader)),
		stdlib.WithLimitReachedHandler(limitReached),
	)

	return func(next http.Handler) http.Handler {
		failOpen := *limited
		failOpen.OnError = func(w http.ResponseWriter, r *http.Request, err error) {
			log.Error().Err(err).Str("path", r.URL.Path).Msg("rate limiter store failed, request allowed")
			next.ServeHTTP(w, r)
		}
		guarded := failOpen.Handler(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				next.ServeHTTP(w, r)
				return
			}
			guarded.ServeHTTP(w, r)
		})
	}, nil
}

func limitReached(w http.ResponseWriter, r *http.Request) {
	log.Warn().Str("path", r.URL.Path).Str("remote_addr", r.RemoteAddr).Msg("rate limit reached")
	writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded", apperrors.ErrorTypeRateLimited)
}

func writeJSONError(w http.ResponseWriter, status int, message string, code apperrors.ErrorType) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
		"code":    code,
	})
}
