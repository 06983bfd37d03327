package ports

import (
	"context"

	"github.com/aretw0/conductor/pkg/domain"
)

// Repository persists workflow definitions and instances for durability.
// The engine calls it opportunistically after in-memory mutation; a save
// failure is logged, never fatal to the triggering operation.
type Repository interface {
	// SaveDefinition upserts a definition keyed by (tenant, name, version).
	SaveDefinition(ctx context.Context, def *domain.WorkflowDefinition) error

	// LoadDefinitions returns every stored definition, for startup replay.
	LoadDefinitions(ctx context.Context) ([]*domain.WorkflowDefinition, error)

	// SaveInstance upserts an instance by ID.
	SaveInstance(ctx context.Context, inst *domain.WorkflowInstance) error

	// GetInstance returns the instance, or (nil, nil) if it is unknown.
	GetInstance(ctx context.Context, id string) (*domain.WorkflowInstance, error)
}
