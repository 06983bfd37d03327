package ports

import "context"

// PolicyProvider resolves named predicates and effects at transition time.
// Both calls are total: an unknown name evaluates to a safe default
// (false / no-op) rather than an error, so a malformed definition cannot
// crash a live instance.
type PolicyProvider interface {
	// Evaluate runs the named predicate against the instance context.
	Evaluate(ctx context.Context, name string, instCtx, cfg map[string]any) bool

	// Execute runs the named effect against the instance context.
	Execute(ctx context.Context, name string, instCtx, cfg map[string]any)
}
