package services

import (
	"context"

	"github.com/jeevanpath/backend/internal/domain/repositories"
	apperrors "github.com/jeevanpath/backend/pkg/errors"
)

// IdentityResolver maps whatever identifier a client sends (internal id,
// external id or phone) to the user id that keys registry records, contacts,
// notifications and event channels.
type IdentityResolver struct {
	users repositories.UserRepository
}

// NewIdentityResolver creates a resolver backed by the user repository
func NewIdentityResolver(users repositories.UserRepository) *IdentityResolver {
	return &IdentityResolver{users: users}
}

// ResolveUserID returns the internal id of the matching user. Unknown
// identifiers are returned unchanged so anonymous requesters keep one key.
// A nil resolver passes identifiers through.
func (r *IdentityResolver) ResolveUserID(ctx context.Context, identifier string) (string, error) {
	if r == nil || r.users == nil || identifier == "" {
		return identifier, nil
	}

	u, err := r.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return identifier, nil
		}
		return "", err
	}
	return u.ID, nil
}
