package events

import (
	"context"

	"github.com/jeevanpath/backend/internal/domain/entities"
	"github.com/jeevanpath/backend/internal/domain/providers"
)

// MemoryEventBus is an in-process EventBus for single-instance deployments
// and tests. Delivery is non-blocking; slow subscribers lose events.
type MemoryEventBus struct {
	local *fanout
}

// NewMemoryEventBus creates an empty in-process bus
func NewMemoryEventBus() *MemoryEventBus {
	return &MemoryEventBus{local: newFanout()}
}

var _ providers.EventBus = (*MemoryEventBus)(nil)

// Publish delivers the event to current subscribers of channel
func (b *MemoryEventBus) Publish(ctx context.Context, channel string, event *entities.AlertEvent) error {
	if b.local.isClosed() {
		return errBusClosed
	}
	b.local.deliver(channel, event)
	return nil
}

// Subscribe registers a subscriber until ctx is cancelled
func (b *MemoryEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.AlertEvent, error) {
	ch, _, err := b.local.add(channel)
	if err != nil {
		return nil, err
	}
	go func() {
		<-ctx.Done()
		b.local.remove(channel, ch)
	}()
	return ch, nil
}

// Unsubscribe drops every subscriber of channel
func (b *MemoryEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.local.drop(channel)
	return nil
}

// Close drops all subscribers and rejects further use
func (b *MemoryEventBus) Close() error {
	b.local.shutdown()
	return nil
}
