package repositories

import (
	"context"

	"github.com/jeevanpath/backend/internal/domain/entities"
)

// ContactRepository defines the interface for emergency contacts
type ContactRepository interface {
	Create(ctx context.Context, contact *entities.EmergencyContact) error
	ListByUser(ctx context.Context, userID string) ([]*entities.EmergencyContact, error)
	Delete(ctx context.Context, id string) error
}
