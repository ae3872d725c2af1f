package middleware

import (
	"net/http"

	"github.com/jeevanpath/backend/internal/application/loaders"
	"github.com/jeevanpath/backend/internal/domain/repositories"
)

// LoadersMiddleware gives each request its own batching loaders
func LoadersMiddleware(resources repositories.ResourceRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := loaders.WithLoaders(r.Context(), loaders.NewLoaders(resources))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
