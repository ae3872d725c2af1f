package providers

import (
	"context"

	"github.com/jeevanpath/backend/internal/domain/entities"
)

// ResourceSearchParams is a geo search against the resource index
type ResourceSearchParams struct {
	Center   entities.GeoPoint
	RadiusKm float64
	Category entities.ResourceCategory
	Limit    int
}

// ResourceSearchProvider is a secondary index over resources used for
// requester-facing lookups. Results carry the fields the index stores.
type ResourceSearchProvider interface {
	InitSchema(ctx context.Context) error
	Index(ctx context.Context, resource *entities.Resource) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, params ResourceSearchParams) ([]*entities.Resource, error)
}
