package services

import (
	"context"

	"github.com/jeevanpath/backend/internal/domain/entities"
	"github.com/jeevanpath/backend/internal/domain/repositories"
	apperrors "github.com/jeevanpath/backend/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ProviderStatus answers whether a phone number belongs to a service provider
type ProviderStatus struct {
	IsServiceProvider bool
	User              *entities.User
	Resource          *entities.Resource
}

// ProviderDirectory looks providers up and links them to resources
type ProviderDirectory struct {
	users     repositories.UserRepository
	resources repositories.ResourceRepository
}

// NewProviderDirectory creates a new provider directory
func NewProviderDirectory(users repositories.UserRepository, resources repositories.ResourceRepository) *ProviderDirectory {
	return &ProviderDirectory{users: users, resources: resources}
}

// CheckProvider reports whether phone belongs to a provider. Unknown numbers
// are not an error.
func (d *ProviderDirectory) CheckProvider(ctx context.Context, phone string) (*ProviderStatus, error) {
	u, err := d.users.FindByPhone(ctx, phone)
	if apperrors.IsNotFound(err) {
		return &ProviderStatus{}, nil
	}
	if err != nil {
		return nil, err
	}
	if !u.IsServiceProvider {
		return &ProviderStatus{User: u}, nil
	}

	status := &ProviderStatus{IsServiceProvider: true, User: u}
	if u.AssignedResourceID != nil {
		res, err := d.resources.GetByID(ctx, *u.AssignedResourceID)
		if err != nil {
			log.Warn().Err(err).Str("user_id", u.ID).Msg("assigned resource unavailable")
		} else {
			status.Resource = res
		}
	}
	return status, nil
}

// Assign links a provider to a resource; the resource must exist.
func (d *ProviderDirectory) Assign(ctx context.Context, userID, resourceID string) error {
	return d.users.AssignResource(ctx, userID, resourceID)
}
