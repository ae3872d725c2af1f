package repositories

import (
	"context"
	"time"

	"github.com/jeevanpath/backend/internal/domain/entities"
)

// AlertFilter narrows a provider's alert listing
type AlertFilter struct {
	ProviderUserID string
	Status         entities.AlertStatus
	Limit          int
	Now            time.Time
}

// AlertCounts summarises a provider's unexpired alerts
type AlertCounts struct {
	Total  int
	Unread int
}

// AlertRepository defines the interface for emergency alert storage
type AlertRepository interface {
	// CreateBatch persists all alerts of one dispatch pass atomically
	CreateBatch(ctx context.Context, alerts []*entities.UserEmergencyAlert) error

	// GetByID retrieves an alert by ID
	GetByID(ctx context.Context, id string) (*entities.UserEmergencyAlert, error)

	// UpdateResponse saves status, read flag and provider response fields
	UpdateResponse(ctx context.Context, alert *entities.UserEmergencyAlert) error

	// RecordDelivery saves the outcome of the call and SMS legs
	RecordDelivery(ctx context.Context, alertID string, outcome entities.DeliveryOutcome) error

	// ListByProvider returns unexpired alerts for a provider, newest first
	ListByProvider(ctx context.Context, filter AlertFilter) ([]*entities.UserEmergencyAlert, error)

	// CountByProvider counts unexpired alerts for a provider, ignoring status and limit
	CountByProvider(ctx context.Context, filter AlertFilter) (AlertCounts, error)

	// DeleteExpired removes alerts whose expiry is at or before now
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
