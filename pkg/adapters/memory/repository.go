// Package memory implements ports.Repository in process memory.
package memory

import (
	"context"
	"sync"

	"github.com/aretw0/conductor/pkg/domain"
)

type defKey struct {
	tenant  string
	name    string
	version string
}

// Repository implements ports.Repository in memory.
// Safe for concurrent use.
type Repository struct {
	mu          sync.RWMutex
	definitions map[defKey]*domain.WorkflowDefinition
	instances   map[string]*domain.WorkflowInstance
}

// NewRepository creates a new in-memory repository.
func NewRepository() *Repository {
	return &Repository{
		definitions: make(map[defKey]*domain.WorkflowDefinition),
		instances:   make(map[string]*domain.WorkflowInstance),
	}
}

// SaveDefinition upserts a definition by (tenant, name, version).
func (r *Repository) SaveDefinition(ctx context.Context, def *domain.WorkflowDefinition) error {
	cp := def.Clone()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.definitions[defKey{def.Tenant, def.Name, def.Version}] = cp
	return nil
}

// LoadDefinitions returns every stored definition.
func (r *Repository) LoadDefinitions(ctx context.Context) ([]*domain.WorkflowDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]*domain.WorkflowDefinition, 0, len(r.definitions))
	for _, def := range r.definitions {
		defs = append(defs, def.Clone())
	}
	return defs, nil
}

// SaveInstance persists the instance in memory.
func (r *Repository) SaveInstance(ctx context.Context, inst *domain.WorkflowInstance) error {
	// Deep copy so later caller mutation cannot leak into the store.
	cp := inst.Clone()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[inst.ID] = cp
	return nil
}

// GetInstance retrieves the instance, or (nil, nil) if unknown.
func (r *Repository) GetInstance(ctx context.Context, id string) (*domain.WorkflowInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, ok := r.instances[id]
	if !ok {
		return nil, nil
	}

	// Copy on read so the caller can't mutate store state by pointer.
	return inst.Clone(), nil
}
