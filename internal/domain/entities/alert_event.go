package entities

import (
	"time"

	"github.com/google/uuid"
)

// AlertEventType represents the type of realtime alert event
type AlertEventType string

const (
	AlertEventCreated             AlertEventType = "alert_created"
	AlertEventDelivery            AlertEventType = "alert_delivery"
	AlertEventResponded           AlertEventType = "alert_responded"
	AlertEventNotificationCreated AlertEventType = "notification_created"
)

// AlertEvent is pushed to providers and requesters over the event bus
type AlertEvent struct {
	ID        string                 `json:"id"`
	Type      AlertEventType         `json:"type"`
	UserID    string                 `json:"userId"`
	AlertID   string                 `json:"alertId,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewAlertEvent creates a new alert event
func NewAlertEvent(eventType AlertEventType, userID, alertID string, payload map[string]interface{}) *AlertEvent {
	return &AlertEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		AlertID:   alertID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}
