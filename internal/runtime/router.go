package runtime

import (
	"context"
	"log/slog"

	"github.com/aretw0/conductor/internal/logging"
	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/observability"
	"github.com/aretw0/conductor/pkg/ports"
)

// Router translates inbound domain events into engine dispatch calls and
// re-emits events outward through the optional EventBus collaborator.
type Router struct {
	engine  *Engine
	bus     ports.EventBus
	logger  *slog.Logger
	metrics *observability.Metrics
}

// RouterOption configures the Router.
type RouterOption func(*Router)

// WithBus attaches the outbound/inbound event transport.
func WithBus(bus ports.EventBus) RouterOption {
	return func(r *Router) {
		r.bus = bus
	}
}

// WithRouterLogger sets a structured logger for the router.
func WithRouterLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithRouterMetrics enables prometheus instrumentation.
func WithRouterMetrics(m *observability.Metrics) RouterOption {
	return func(r *Router) {
		r.metrics = m
	}
}

// NewRouter creates a router bound to the engine.
func NewRouter(engine *Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine: engine,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RouteEvent delegates one inbound event to the engine and reports which
// instances were touched. Per-instance failures are already swallowed
// inside HandleEvent, so routing never fails halfway.
func (r *Router) RouteEvent(ctx context.Context, event domain.EventPayload) (*domain.RouteResult, error) {
	r.metrics.ObserveEvent()

	instances, err := r.engine.HandleEvent(ctx, event.EventType, event.Tenant, event.Data)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(instances))
	for _, inst := range instances {
		ids = append(ids, inst.ID)
	}

	r.logger.InfoContext(ctx, "event routed",
		"event", event.EventType, "tenant", event.Tenant,
		"affected", len(ids), "correlation_id", event.CorrelationID)

	return &domain.RouteResult{
		EventType:         event.EventType,
		Tenant:            event.Tenant,
		AffectedInstances: ids,
		Count:             len(ids),
	}, nil
}

// EmitEvent announces a state change to the rest of the system. With no
// bus configured it degrades to a debug log, never an error.
func (r *Router) EmitEvent(ctx context.Context, eventType, tenant string, data map[string]any) error {
	event := domain.EventPayload{
		EventType: eventType,
		Tenant:    tenant,
		Data:      data,
	}

	if r.bus == nil {
		r.logger.DebugContext(ctx, "no event bus configured, dropping outbound event",
			"event", eventType, "tenant", tenant)
		return nil
	}

	return r.bus.Publish(ctx, event)
}

// Bind subscribes the router to the bus so inbound messages feed
// RouteEvent. It is a no-op without a configured bus.
func (r *Router) Bind(ctx context.Context) error {
	if r.bus == nil {
		return nil
	}

	return r.bus.Subscribe(ctx, func(ctx context.Context, event domain.EventPayload) {
		if _, err := r.RouteEvent(ctx, event); err != nil {
			r.logger.WarnContext(ctx, "inbound event routing failed",
				"event", event.EventType, "error", err)
		}
	})
}
