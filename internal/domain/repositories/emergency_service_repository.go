package repositories

import (
	"context"

	"github.com/jeevanpath/backend/internal/domain/entities"
)

// EmergencyServiceRepository stores per-user emergency preferences
type EmergencyServiceRepository interface {
	GetByUserID(ctx context.Context, userID string) (*entities.EmergencyService, error)

	// Upsert inserts the record or replaces the existing one for the same user
	Upsert(ctx context.Context, service *entities.EmergencyService) error
}
