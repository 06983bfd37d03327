// Package conductor is a workflow orchestration core: finite-state
// workflows with guarded transitions, a pluggable policy/hook registry,
// a saga coordinator with compensation, and an event router mapping
// domain events onto transition triggers.
//
// The Orchestrator ties the pieces together for embedding applications;
// the individual components live in internal/runtime and pkg/policy and
// collaborate through the interfaces in pkg/ports.
package conductor

import (
	"context"
	"log/slog"

	"github.com/aretw0/conductor/internal/logging"
	"github.com/aretw0/conductor/internal/runtime"
	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/observability"
	"github.com/aretw0/conductor/pkg/policy"
	"github.com/aretw0/conductor/pkg/ports"
)

// Orchestrator is the high-level entry point for the library. It owns one
// policy registry, one workflow engine, one saga coordinator, and one
// event router, constructed once at process start and passed to every
// handler; there is no hidden global state.
type Orchestrator struct {
	policies *policy.Registry
	engine   *runtime.Engine
	sagas    *runtime.Coordinator
	router   *runtime.Router

	repo    ports.Repository
	bus     ports.EventBus
	metrics *observability.Metrics
	logger  *slog.Logger
}

// Option defines a functional option for configuring the Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets a structured logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithRepository enables durability through the given persistence adapter.
func WithRepository(repo ports.Repository) Option {
	return func(o *Orchestrator) {
		o.repo = repo
	}
}

// WithEventBus attaches the pub/sub transport for inbound and outbound
// domain events.
func WithEventBus(bus ports.EventBus) Option {
	return func(o *Orchestrator) {
		o.bus = bus
	}
}

// WithMetrics enables prometheus instrumentation across components.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// New initializes an Orchestrator. Without options it runs purely
// in-memory: no durability, outbound events logged and dropped.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	o.policies = policy.NewRegistry(policy.WithLogger(o.logger))

	engineOpts := []runtime.EngineOption{
		runtime.WithLogger(o.logger),
		runtime.WithMetrics(o.metrics),
	}
	if o.repo != nil {
		engineOpts = append(engineOpts, runtime.WithRepository(o.repo))
	}
	o.engine = runtime.NewEngine(o.policies, engineOpts...)

	o.sagas = runtime.NewCoordinator(
		runtime.WithCoordinatorLogger(o.logger),
		runtime.WithCoordinatorMetrics(o.metrics),
	)

	routerOpts := []runtime.RouterOption{
		runtime.WithRouterLogger(o.logger),
		runtime.WithRouterMetrics(o.metrics),
	}
	if o.bus != nil {
		routerOpts = append(routerOpts, runtime.WithBus(o.bus))
	}
	o.router = runtime.NewRouter(o.engine, routerOpts...)

	return o
}

// Policies exposes the registry so the embedding application can plug in
// its named predicates and effects.
func (o *Orchestrator) Policies() *policy.Registry { return o.policies }

// Start replays persisted definitions and binds the router to the event
// bus. It is optional: a purely in-memory orchestrator works without it.
func (o *Orchestrator) Start(ctx context.Context) error {
	if err := o.engine.LoadPersisted(ctx); err != nil {
		return err
	}
	return o.router.Bind(ctx)
}

// Drain blocks until every in-flight saga has finished.
func (o *Orchestrator) Drain() { o.sagas.Wait() }

// Workflow engine surface.

func (o *Orchestrator) RegisterDefinition(ctx context.Context, def *domain.WorkflowDefinition) (*domain.WorkflowDefinition, error) {
	return o.engine.RegisterDefinition(ctx, def)
}

func (o *Orchestrator) GetDefinition(ctx context.Context, name, version, tenant string) (*domain.WorkflowDefinition, error) {
	return o.engine.GetDefinition(ctx, name, version, tenant)
}

func (o *Orchestrator) CreateInstance(ctx context.Context, def *domain.WorkflowDefinition, initCtx map[string]any) (*domain.WorkflowInstance, error) {
	return o.engine.CreateInstance(ctx, def, initCtx)
}

func (o *Orchestrator) GetInstance(ctx context.Context, id string) (*domain.WorkflowInstance, error) {
	return o.engine.GetInstance(ctx, id)
}

func (o *Orchestrator) TriggerTransition(ctx context.Context, instanceID, transitionName string, payload map[string]any) (*domain.WorkflowInstance, error) {
	return o.engine.TriggerTransition(ctx, instanceID, transitionName, payload)
}

func (o *Orchestrator) HandleEvent(ctx context.Context, eventType, tenant string, data map[string]any) ([]*domain.WorkflowInstance, error) {
	return o.engine.HandleEvent(ctx, eventType, tenant, data)
}

func (o *Orchestrator) Simulate(ctx context.Context, def *domain.WorkflowDefinition, initCtx map[string]any, transitionNames []string) (*domain.SimulationResult, error) {
	return o.engine.Simulate(ctx, def, initCtx, transitionNames)
}

// Saga coordinator surface.

func (o *Orchestrator) RegisterSaga(def *domain.SagaDefinition) {
	o.sagas.Register(def)
}

func (o *Orchestrator) StartSaga(ctx context.Context, name string, sagaCtx map[string]any) (*domain.SagaInstance, error) {
	return o.sagas.Start(ctx, name, sagaCtx)
}

func (o *Orchestrator) SagaStatus(instanceID string) (*domain.SagaInstance, error) {
	return o.sagas.Status(instanceID)
}

// Event router surface.

func (o *Orchestrator) RouteEvent(ctx context.Context, event domain.EventPayload) (*domain.RouteResult, error) {
	return o.router.RouteEvent(ctx, event)
}

func (o *Orchestrator) EmitEvent(ctx context.Context, eventType, tenant string, data map[string]any) error {
	return o.router.EmitEvent(ctx, eventType, tenant, data)
}
