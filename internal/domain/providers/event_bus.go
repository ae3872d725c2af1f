package providers

import (
	"context"

	"github.com/jeevanpath/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to alert events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.AlertEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.AlertEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelProviderPrefix prefixes the per-provider alert channels
	EventChannelProviderPrefix = "provider:"

	// EventChannelRequesterPrefix prefixes the per-requester update channels
	EventChannelRequesterPrefix = "requester:"
)

// GetProviderChannel returns the channel name for a provider user
func GetProviderChannel(userID string) string {
	return EventChannelProviderPrefix + userID
}

// GetRequesterChannel returns the channel name for a requester
func GetRequesterChannel(userID string) string {
	return EventChannelRequesterPrefix + userID
}
