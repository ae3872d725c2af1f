package repositories

import (
	"context"
	"time"

	"github.com/jeevanpath/backend/internal/domain/entities"
)

// NotificationRepository defines the interface for requester notifications
type NotificationRepository interface {
	Create(ctx context.Context, notification *entities.EmergencyNotification) error

	// ListByUser returns unexpired notifications, newest first
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*entities.EmergencyNotification, error)

	MarkRead(ctx context.Context, id string) error

	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
