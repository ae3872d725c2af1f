package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/jeevanpath/backend/internal/domain/entities"
	"github.com/jeevanpath/backend/internal/domain/providers"
)

// RedisEventBus implements EventBus on Redis Pub/Sub so that alerts dispatched
// by one API instance reach streams held open by another. Each process keeps a
// single Redis subscription per channel and fans messages out locally.
type RedisEventBus struct {
	client *redis.Client
	local  *fanout

	// mu serialises subscription setup and teardown
	mu            sync.Mutex
	subscriptions map[string]*redis.PubSub

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redis.Client) providers.EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client:        client,
		local:         newFanout(),
		subscriptions: make(map[string]*redis.PubSub),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Publish sends the event to every process subscribed to channel
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.AlertEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	receivers, err := b.client.Publish(ctx, channel, data).Result()
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Debug().
		Str("channel", channel).
		Str("event_id", event.ID).
		Str("type", string(event.Type)).
		Int64("receivers", receivers).
		Msg("published alert event")
	return nil
}

// Subscribe subscribes to channel until ctx is cancelled. It returns once Redis
// has confirmed the subscription, so events published afterwards are not missed.
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.AlertEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx.Err() != nil {
		return nil, errBusClosed
	}

	ch, first, err := b.local.add(channel)
	if err != nil {
		return nil, err
	}

	if first {
		pubsub := b.client.Subscribe(b.ctx, channel)
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			b.local.remove(channel, ch)
			return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
		}
		b.subscriptions[channel] = pubsub
		go b.receive(channel, pubsub)
	}

	log.Debug().Str("channel", channel).Int("subscribers", b.local.count(channel)).Msg("subscribed")

	go func() {
		<-ctx.Done()
		b.release(channel, ch)
	}()
	return ch, nil
}

// receive forwards Redis messages until the subscription is closed
func (b *RedisEventBus) receive(channel string, pubsub *redis.PubSub) {
	for msg := range pubsub.Channel() {
		var event entities.AlertEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Warn().Err(err).Str("channel", channel).Msg("dropping malformed event")
			continue
		}
		b.local.deliver(channel, &event)
	}
}

func (b *RedisEventBus) release(channel string, ch chan *entities.AlertEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.local.remove(channel, ch) {
		return
	}
	if err := b.closeSubscription(channel); err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("failed to close subscription")
	}
}

// closeSubscription must be called with mu held
func (b *RedisEventBus) closeSubscription(channel string) error {
	pubsub, ok := b.subscriptions[channel]
	if !ok {
		return nil
	}
	delete(b.subscriptions, channel)
	if err := pubsub.Close(); err != nil {
		return fmt.Errorf("failed to close subscription %s: %w", channel, err)
	}
	return nil
}

// Unsubscribe drops every local subscriber of a channel
func (b *RedisEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.local.drop(channel)
	return b.closeSubscription(channel)
}

// Close closes the event bus and all subscriptions
func (b *RedisEventBus) Close() error {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for channel := range b.subscriptions {
		if err := b.closeSubscription(channel); err != nil {
			errs = append(errs, err)
		}
	}
	b.local.shutdown()
	return errors.Join(errs...)
}
