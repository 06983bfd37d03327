// Package redis implements the Repository and EventBus collaborators on
// top of Redis, for durability and cross-process event transport.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/conductor/pkg/domain"
)

// Repository implements ports.Repository using Redis hashes of JSON
// documents. Definitions live under <prefix>definitions, instances under
// <prefix>instances.
type Repository struct {
	client *backend.Client
	prefix string
}

// NewRepository creates a Redis-backed repository.
func NewRepository(client *backend.Client, prefix string) *Repository {
	return &Repository{
		client: client,
		prefix: prefix,
	}
}

func (r *Repository) definitionsKey() string {
	return r.prefix + "definitions"
}

func (r *Repository) instancesKey() string {
	return r.prefix + "instances"
}

// SaveDefinition upserts the JSON encoding of the definition in the
// definitions hash, field-keyed by tenant/name/version.
func (r *Repository) SaveDefinition(ctx context.Context, def *domain.WorkflowDefinition) error {
	raw, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("encoding definition %s@%s: %w", def.Name, def.Version, err)
	}

	field := def.Tenant + "/" + def.Name + "/" + def.Version
	if err := r.client.HSet(ctx, r.definitionsKey(), field, raw).Err(); err != nil {
		return fmt.Errorf("saving definition %s@%s: %w", def.Name, def.Version, err)
	}
	return nil
}

// LoadDefinitions returns every stored definition.
func (r *Repository) LoadDefinitions(ctx context.Context) ([]*domain.WorkflowDefinition, error) {
	entries, err := r.client.HGetAll(ctx, r.definitionsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("loading definitions: %w", err)
	}

	defs := make([]*domain.WorkflowDefinition, 0, len(entries))
	for field, raw := range entries {
		var def domain.WorkflowDefinition
		if err := json.Unmarshal([]byte(raw), &def); err != nil {
			return nil, fmt.Errorf("decoding definition %s: %w", field, err)
		}
		defs = append(defs, &def)
	}
	return defs, nil
}

// SaveInstance upserts the JSON encoding of the instance by ID.
func (r *Repository) SaveInstance(ctx context.Context, inst *domain.WorkflowInstance) error {
	raw, err := json.Marshal(inst)
	if err != nil {
		return fmt.Errorf("encoding instance %s: %w", inst.ID, err)
	}

	if err := r.client.HSet(ctx, r.instancesKey(), inst.ID, raw).Err(); err != nil {
		return fmt.Errorf("saving instance %s: %w", inst.ID, err)
	}
	return nil
}

// GetInstance retrieves the instance, or (nil, nil) if unknown.
func (r *Repository) GetInstance(ctx context.Context, id string) (*domain.WorkflowInstance, error) {
	raw, err := r.client.HGet(ctx, r.instancesKey(), id).Result()
	if errors.Is(err, backend.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading instance %s: %w", id, err)
	}

	var inst domain.WorkflowInstance
	if err := json.Unmarshal([]byte(raw), &inst); err != nil {
		return nil, fmt.Errorf("decoding instance %s: %w", id, err)
	}
	return &inst, nil
}
