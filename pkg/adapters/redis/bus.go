package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/conductor/internal/logging"
	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/ports"
)

// Bus implements ports.EventBus over a Redis pub/sub channel. Delivery is
// fire-and-forget: subscribers only see events published while connected.
type Bus struct {
	client  *backend.Client
	channel string
	logger  *slog.Logger
}

// BusOption configures the Bus.
type BusOption func(*Bus)

// WithBusLogger sets a logger for decode warnings on the receive loop.
func WithBusLogger(logger *slog.Logger) BusOption {
	return func(b *Bus) {
		b.logger = logger
	}
}

// NewBus creates an event bus on <prefix>events.
func NewBus(client *backend.Client, prefix string, opts ...BusOption) *Bus {
	b := &Bus{
		client:  client,
		channel: prefix + "events",
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish emits the JSON encoding of the event on the channel.
func (b *Bus) Publish(ctx context.Context, event domain.EventPayload) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event %s: %w", event.EventType, err)
	}

	if err := b.client.Publish(ctx, b.channel, raw).Err(); err != nil {
		return fmt.Errorf("publishing event %s: %w", event.EventType, err)
	}
	return nil
}

// Subscribe starts a receive loop feeding decoded events to the handler.
// It returns once the subscription is confirmed; the loop runs until ctx
// is canceled. Undecodable messages are logged and dropped.
func (b *Bus) Subscribe(ctx context.Context, handler ports.EventHandler) error {
	sub := b.client.Subscribe(ctx, b.channel)

	// Wait for the subscription to be established before returning, so
	// callers can publish immediately after Subscribe.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribing to %s: %w", b.channel, err)
	}

	ch := sub.Channel()
	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event domain.EventPayload
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.logger.Warn("dropping undecodable event", "err", err)
					continue
				}
				handler(ctx, event)
			}
		}
	}()

	return nil
}
