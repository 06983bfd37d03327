// Package runtime implements the orchestration core: the workflow engine,
// the saga coordinator, and the event router. State here is in-memory and
// mutex-guarded; durability and transport are optional collaborators
// injected through pkg/ports.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/aretw0/conductor/internal/logging"
	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/observability"
	"github.com/aretw0/conductor/pkg/ports"
)

// defKey identifies a definition in the catalog. Tenant scopes isolation:
// same-named definitions in different tenants are unrelated.
type defKey struct {
	tenant  string
	name    string
	version string
}

// Engine owns the definition catalog and the live instance set, and drives
// instances through guarded transitions.
type Engine struct {
	mu          sync.Mutex
	definitions map[defKey]*domain.WorkflowDefinition
	instances   map[string]*domain.WorkflowInstance

	policies ports.PolicyProvider
	repo     ports.Repository
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithRepository enables opportunistic persistence of definitions and
// instances. Save failures are logged, never fatal.
func WithRepository(repo ports.Repository) EngineOption {
	return func(e *Engine) {
		e.repo = repo
	}
}

// WithLogger sets a structured logger for the engine.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics enables prometheus instrumentation.
func WithMetrics(m *observability.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine creates an engine backed by the given policy provider.
func NewEngine(policies ports.PolicyProvider, opts ...EngineOption) *Engine {
	e := &Engine{
		definitions: make(map[defKey]*domain.WorkflowDefinition),
		instances:   make(map[string]*domain.WorkflowInstance),
		policies:    policies,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterDefinition validates and stores a definition keyed by
// (tenant, name, version), overwriting a prior registration with the same
// key. The stored definition is immutable from then on.
func (e *Engine) RegisterDefinition(ctx context.Context, def *domain.WorkflowDefinition) (*domain.WorkflowDefinition, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	// The catalog keeps its own copy; later caller mutation of def must
	// not reach a registered definition.
	stored := def.Clone()

	e.mu.Lock()
	e.definitions[defKey{def.Tenant, def.Name, def.Version}] = stored
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "definition registered",
		"workflow", def.Name, "version", def.Version, "tenant", def.Tenant)

	if e.repo != nil {
		if err := e.repo.SaveDefinition(ctx, def); err != nil {
			e.logger.WarnContext(ctx, "definition persistence failed",
				"workflow", def.Name, "version", def.Version, "error", err)
		}
	}

	return def, nil
}

// GetDefinition returns an exact (name, version, tenant) match when version
// is non-empty, otherwise the highest registered version for name/tenant.
// Versions are ordered as semver when they parse; otherwise lexically.
func (e *Engine) GetDefinition(ctx context.Context, name, version, tenant string) (*domain.WorkflowDefinition, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if version != "" {
		if def, ok := e.definitions[defKey{tenant, name, version}]; ok {
			return def.Clone(), nil
		}
		return nil, fmt.Errorf("definition %s@%s (tenant %q): %w", name, version, tenant, domain.ErrNotFound)
	}

	var best *domain.WorkflowDefinition
	for key, def := range e.definitions {
		if key.tenant != tenant || key.name != name {
			continue
		}
		if best == nil || versionLess(best.Version, def.Version) {
			best = def
		}
	}
	if best == nil {
		return nil, fmt.Errorf("definition %s (tenant %q): %w", name, tenant, domain.ErrNotFound)
	}
	return best.Clone(), nil
}

// versionLess reports whether a orders before b.
func versionLess(a, b string) bool {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA != nil || errB != nil {
		return a < b
	}
	return va.LessThan(vb)
}

// CreateInstance creates a live instance of the definition, seeded at its
// initial state. The supplied context is copied, not aliased.
func (e *Engine) CreateInstance(ctx context.Context, def *domain.WorkflowDefinition, initCtx map[string]any) (*domain.WorkflowInstance, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	inst := domain.NewWorkflowInstance(def, initCtx)

	e.mu.Lock()
	e.instances[inst.ID] = inst
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "instance created",
		"instance", inst.ID, "workflow", def.Name, "state", inst.State)

	e.persistInstance(ctx, inst.Clone())

	return inst.Clone(), nil
}

// GetInstance returns a copy of the instance, falling back to the
// repository for instances not resident in memory.
func (e *Engine) GetInstance(ctx context.Context, id string) (*domain.WorkflowInstance, error) {
	e.mu.Lock()
	inst, ok := e.instances[id]
	var cp *domain.WorkflowInstance
	if ok {
		cp = inst.Clone()
	}
	e.mu.Unlock()

	if ok {
		return cp, nil
	}

	if e.repo != nil {
		loaded, err := e.repo.GetInstance(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("loading instance %s: %w", id, err)
		}
		if loaded != nil {
			e.mu.Lock()
			// Keep the resident copy if a concurrent load beat us here.
			if existing, exists := e.instances[id]; exists {
				loaded = existing
			} else {
				e.instances[id] = loaded
			}
			cp = loaded.Clone()
			e.mu.Unlock()
			return cp, nil
		}
	}

	return nil, fmt.Errorf("instance %s: %w", id, domain.ErrNotFound)
}

// LoadPersisted replays stored definitions into the catalog. Invalid
// definitions are skipped with a warning rather than aborting startup.
func (e *Engine) LoadPersisted(ctx context.Context) error {
	if e.repo == nil {
		return nil
	}

	defs, err := e.repo.LoadDefinitions(ctx)
	if err != nil {
		return fmt.Errorf("loading definitions: %w", err)
	}

	loaded := 0
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			e.logger.WarnContext(ctx, "skipping invalid persisted definition",
				"workflow", def.Name, "version", def.Version, "error", err)
			continue
		}
		e.mu.Lock()
		e.definitions[defKey{def.Tenant, def.Name, def.Version}] = def
		e.mu.Unlock()
		loaded++
	}

	e.logger.InfoContext(ctx, "definitions loaded from repository", "count", loaded)
	return nil
}

func (e *Engine) persistInstance(ctx context.Context, inst *domain.WorkflowInstance) {
	if e.repo == nil {
		return
	}
	if err := e.repo.SaveInstance(ctx, inst); err != nil {
		e.logger.WarnContext(ctx, "instance persistence failed",
			"instance", inst.ID, "error", err)
	}
}
