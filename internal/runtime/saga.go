package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/conductor/internal/logging"
	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/observability"
)

// Coordinator runs saga instances to completion or compensated rollback.
// Each started instance executes in its own goroutine; steps within one
// instance are strictly sequential because compensation order depends on
// the recorded completion order.
type Coordinator struct {
	mu          sync.Mutex
	definitions map[string]*domain.SagaDefinition
	instances   map[string]*domain.SagaInstance

	logger  *slog.Logger
	metrics *observability.Metrics

	// wg tracks in-flight executions so tests and shutdown can drain.
	wg sync.WaitGroup
}

// CoordinatorOption configures the Coordinator.
type CoordinatorOption func(*Coordinator)

// WithCoordinatorLogger sets a structured logger for the coordinator.
func WithCoordinatorLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithCoordinatorMetrics enables prometheus instrumentation.
func WithCoordinatorMetrics(m *observability.Metrics) CoordinatorOption {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// NewCoordinator creates an empty saga coordinator.
func NewCoordinator(opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		definitions: make(map[string]*domain.SagaDefinition),
		instances:   make(map[string]*domain.SagaInstance),
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register stores a saga definition by name, overwriting any prior
// definition with the same name.
func (c *Coordinator) Register(def *domain.SagaDefinition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.definitions[def.Name] = def
}

// Start creates a running instance of the named saga and schedules its
// execution in a detached goroutine. It returns the instance handle
// immediately; completion is observed through Status.
func (c *Coordinator) Start(ctx context.Context, name string, sagaCtx map[string]any) (*domain.SagaInstance, error) {
	c.mu.Lock()
	def, ok := c.definitions[name]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("saga %q: %w", name, domain.ErrNotFound)
	}

	inst := domain.NewSagaInstance(name, sagaCtx)
	c.instances[inst.ID] = inst
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "saga started", "saga", name, "instance", inst.ID)

	// Snapshot the handle before execution can mutate the instance.
	handle := inst.Clone()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		// The execution outlives the caller's request context.
		c.run(context.WithoutCancel(ctx), def, inst)
	}()

	return handle, nil
}

// Status returns a copy of the instance's current state.
func (c *Coordinator) Status(instanceID string) (*domain.SagaInstance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	inst, ok := c.instances[instanceID]
	if !ok {
		return nil, fmt.Errorf("saga instance %s: %w", instanceID, domain.ErrNotFound)
	}
	return inst.Clone(), nil
}

// Wait blocks until every in-flight saga execution has finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// run executes the saga's steps in declared order. The first failing
// action flips the instance to compensating and unwinds the completed
// steps in reverse; a failing compensation is logged and skipped, never
// re-raised. run executes once per instance and is not re-entrant.
func (c *Coordinator) run(ctx context.Context, def *domain.SagaDefinition, inst *domain.SagaInstance) {
	// The goroutine owns a private context map; snapshots are synced into
	// the instance under lock so Status never races a mutating step.
	c.mu.Lock()
	sagaCtx := domain.CloneContext(inst.Context)
	c.mu.Unlock()

	for _, step := range def.Steps {
		err := c.invoke(ctx, step.Action, sagaCtx)
		if err == nil {
			c.mu.Lock()
			inst.CompletedSteps = append(inst.CompletedSteps, step.Name)
			inst.Context = domain.CloneContext(sagaCtx)
			inst.UpdatedAt = time.Now().UTC()
			c.mu.Unlock()
			continue
		}

		c.logger.WarnContext(ctx, "saga step failed, compensating",
			"saga", def.Name, "instance", inst.ID, "step", step.Name, "error", err)

		c.mu.Lock()
		inst.Status = domain.SagaCompensating
		inst.Error = fmt.Sprintf("step %s: %v", step.Name, err)
		completed := append([]string{}, inst.CompletedSteps...)
		inst.UpdatedAt = time.Now().UTC()
		c.mu.Unlock()

		c.compensate(ctx, def, inst, completed, sagaCtx)

		c.mu.Lock()
		inst.Status = domain.SagaCompensated
		inst.Context = domain.CloneContext(sagaCtx)
		inst.UpdatedAt = time.Now().UTC()
		c.mu.Unlock()

		c.metrics.ObserveSaga(string(domain.SagaCompensated))
		return
	}

	c.mu.Lock()
	inst.Status = domain.SagaCompleted
	inst.Context = domain.CloneContext(sagaCtx)
	inst.UpdatedAt = time.Now().UTC()
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "saga completed", "saga", def.Name, "instance", inst.ID)
	c.metrics.ObserveSaga(string(domain.SagaCompleted))
}

// compensate invokes each completed step's compensation in reverse
// completion order, skipping steps without one.
func (c *Coordinator) compensate(ctx context.Context, def *domain.SagaDefinition, inst *domain.SagaInstance, completed []string, sagaCtx map[string]any) {
	steps := make(map[string]domain.SagaStep, len(def.Steps))
	for _, s := range def.Steps {
		steps[s.Name] = s
	}

	for i := len(completed) - 1; i >= 0; i-- {
		step, ok := steps[completed[i]]
		if !ok || step.Compensation == nil {
			continue
		}
		if err := c.invoke(ctx, step.Compensation, sagaCtx); err != nil {
			c.logger.WarnContext(ctx, "saga compensation failed, continuing",
				"saga", def.Name, "instance", inst.ID, "step", step.Name, "error", err)
		}
	}
}

// invoke shields the run loop from panicking step callables.
func (c *Coordinator) invoke(ctx context.Context, fn domain.StepFunc, sagaCtx map[string]any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step panicked: %v", r)
		}
	}()
	return fn(ctx, sagaCtx)
}
