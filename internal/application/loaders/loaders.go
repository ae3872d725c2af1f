package loaders

import (
	"context"
	"fmt"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/jeevanpath/backend/internal/domain/entities"
	"github.com/jeevanpath/backend/internal/domain/repositories"
	apperrors "github.com/jeevanpath/backend/pkg/errors"
)

type ctxKey string

const loadersKey ctxKey = "dataloaders"

// Loaders contains the request-scoped dataloaders
type Loaders struct {
	ResourceLoader *dataloader.Loader[string, *entities.Resource]
}

// NewLoaders creates a new instance of Loaders
func NewLoaders(resourceRepo repositories.ResourceRepository) *Loaders {
	return &Loaders{
		ResourceLoader: dataloader.NewBatchedLoader(func(ctx context.Context, keys []string) []*dataloader.Result[*entities.Resource] {
			results := make([]*dataloader.Result[*entities.Resource], len(keys))
			resources, err := resourceRepo.GetByIDs(ctx, keys)

			byID := make(map[string]*entities.Resource, len(resources))
			if err == nil {
				for _, r := range resources {
					byID[r.ID] = r
				}
			}

			for i, key := range keys {
				if err != nil {
					results[i] = &dataloader.Result[*entities.Resource]{Error: err}
				} else if r, ok := byID[key]; ok {
					results[i] = &dataloader.Result[*entities.Resource]{Data: r}
				} else {
					results[i] = &dataloader.Result[*entities.Resource]{Error: apperrors.NewNotFoundError(fmt.Sprintf("resource %s not found", key))}
				}
			}
			return results
		}),
	}
}

// For returns the loaders attached to ctx, or nil
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(loadersKey).(*Loaders)
	return l
}

// WithLoaders returns a new context with the loaders attached
func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, loaders)
}
