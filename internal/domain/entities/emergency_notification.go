package entities

import (
	"time"
)

// NotificationType categorises requester-facing notifications
type NotificationType string

const (
	NotificationTypeEmergencyAlert   NotificationType = "emergency_alert"
	NotificationTypeResourcesFound   NotificationType = "resources_found"
	NotificationTypeProviderResponse NotificationType = "provider_response"
	NotificationTypeSystem           NotificationType = "system"
)

// TTL returns how long a notification of this type stays visible
func (t NotificationType) TTL() time.Duration {
	switch t {
	case NotificationTypeEmergencyAlert, NotificationTypeProviderResponse:
		return 24 * time.Hour
	case NotificationTypeResourcesFound:
		return 12 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}

// NotificationPriority orders notifications in the feed
type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "low"
	NotificationPriorityNormal NotificationPriority = "normal"
	NotificationPriorityHigh   NotificationPriority = "high"
	NotificationPriorityUrgent NotificationPriority = "urgent"
)

// EmergencyNotification is shown to the requester in their feed
type EmergencyNotification struct {
	ID        string                 `json:"id" db:"id"`
	UserID    string                 `json:"userId" db:"user_id"`
	Type      NotificationType       `json:"type" db:"type"`
	Title     string                 `json:"title" db:"title"`
	Message   string                 `json:"message" db:"message"`
	Data      map[string]interface{} `json:"data,omitempty" db:"-"`
	Priority  NotificationPriority   `json:"priority" db:"priority"`
	IsRead    bool                   `json:"isRead" db:"is_read"`
	ExpiresAt time.Time              `json:"expiresAt" db:"expires_at"`
	CreatedAt time.Time              `json:"createdAt" db:"created_at"`
}
