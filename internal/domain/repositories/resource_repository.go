package repositories

import (
	"context"

	"github.com/jeevanpath/backend/internal/domain/entities"
)

// NearQuery selects resources within RadiusMeters of Center, nearest first
type NearQuery struct {
	Center       entities.GeoPoint
	RadiusMeters float64
	Limit        int
	Category     entities.ResourceCategory
}

// ResourceRepository defines the interface for resource data operations
type ResourceRepository interface {
	// Create creates a new resource
	Create(ctx context.Context, resource *entities.Resource) error

	// GetByID retrieves a resource by ID
	GetByID(ctx context.Context, id string) (*entities.Resource, error)

	// GetByIDs retrieves several resources; missing ids are skipped
	GetByIDs(ctx context.Context, ids []string) ([]*entities.Resource, error)

	// FindNear returns resources inside the radius ordered by distance
	FindNear(ctx context.Context, query NearQuery) ([]*entities.Resource, error)

	// List pages through all resources ordered by creation time
	List(ctx context.Context, limit, offset int) ([]*entities.Resource, error)
}
