// Package policy implements the process-wide registry of named predicates
// (policy checks) and effects (actions) referenced by workflow hooks.
package policy

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aretw0/conductor/internal/logging"
)

// Predicate is a policy check. It receives the instance context and the
// hook's opaque config, and returns whether the transition is allowed.
type Predicate func(ctx context.Context, instCtx, cfg map[string]any) (bool, error)

// Effect is a side-effecting action with no return value beyond failure.
type Effect func(ctx context.Context, instCtx, cfg map[string]any) error

// Registry manages the available predicates and effects.
// Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	checks  map[string]Predicate
	effects map[string]Effect
	logger  *slog.Logger
}

// Option configures the Registry.
type Option func(*Registry)

// WithLogger sets the logger used for missing-name and failure warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates a registry pre-populated with the built-in hooks
// (always_allow, threshold_check).
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		checks:  make(map[string]Predicate),
		effects: make(map[string]Effect),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	registerBuiltins(r)
	return r
}

// RegisterPolicy adds a predicate to the registry.
// If a predicate with the same name exists, it is overwritten.
func (r *Registry) RegisterPolicy(name string, p Predicate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks[name] = p
}

// RegisterAction adds an effect to the registry.
// If an effect with the same name exists, it is overwritten.
func (r *Registry) RegisterAction(name string, e Effect) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.effects[name] = e
}

// Evaluate runs the named predicate. An unregistered name or a predicate
// error evaluates to false rather than failing, so a malformed definition
// cannot crash a live instance.
func (r *Registry) Evaluate(ctx context.Context, name string, instCtx, cfg map[string]any) bool {
	r.mu.RLock()
	p, ok := r.checks[name]
	r.mu.RUnlock()

	if !ok {
		r.logger.WarnContext(ctx, "policy not registered, denying", "policy", name)
		return false
	}

	allowed, err := p(ctx, instCtx, cfg)
	if err != nil {
		r.logger.WarnContext(ctx, "policy evaluation failed, denying", "policy", name, "error", err)
		return false
	}
	return allowed
}

// Execute runs the named effect. An unregistered name is a logged no-op;
// an effect error is logged and swallowed (effects are best-effort).
func (r *Registry) Execute(ctx context.Context, name string, instCtx, cfg map[string]any) {
	r.mu.RLock()
	e, ok := r.effects[name]
	r.mu.RUnlock()

	if !ok {
		r.logger.WarnContext(ctx, "action not registered, skipping", "action", name)
		return
	}

	if err := e(ctx, instCtx, cfg); err != nil {
		r.logger.WarnContext(ctx, "action failed", "action", name, "error", err)
	}
}
