package ports

import (
	"context"

	"github.com/aretw0/conductor/pkg/domain"
)

// EventHandler consumes one inbound domain event.
type EventHandler func(ctx context.Context, event domain.EventPayload)

// EventBus is the pub/sub transport collaborator. Outbound publishing is
// fire-and-forget notification of state changes; delivery is at-most-once
// from the core's point of view.
type EventBus interface {
	// Publish emits an event to the rest of the system.
	Publish(ctx context.Context, event domain.EventPayload) error

	// Subscribe registers a handler for inbound events and returns once
	// the subscription is established. The handler is invoked from the
	// bus's receive loop until ctx is canceled.
	Subscribe(ctx context.Context, handler EventHandler) error
}
