package repositories

import (
	"context"

	"github.com/jeevanpath/backend/internal/domain/entities"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *entities.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*entities.User, error)

	// FindByIdentifier looks a user up by id, external id or phone number
	FindByIdentifier(ctx context.Context, identifier string) (*entities.User, error)

	// FindByPhone retrieves a user by phone number
	FindByPhone(ctx context.Context, phone string) (*entities.User, error)

	// ListProvidersForResources returns active service providers with
	// emergency notifications enabled whose assigned resource is in ids
	ListProvidersForResources(ctx context.Context, resourceIDs []string) ([]*entities.User, error)

	// AssignResource attaches a user to a resource. The resource must exist.
	AssignResource(ctx context.Context, userID, resourceID string) error
}
