package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SagaStatus is the lifecycle state of a saga instance.
type SagaStatus string

const (
	SagaRunning      SagaStatus = "running"
	SagaCompleted    SagaStatus = "completed"
	SagaCompensating SagaStatus = "compensating"
	SagaCompensated  SagaStatus = "compensated"
	// SagaRolledBack is reserved for a rollback that runs without a
	// recorded step error. The current execution loop never produces it.
	SagaRolledBack SagaStatus = "rolled_back"
)

// StepFunc is a saga step callable. It receives the instance context bag
// and may mutate it; later steps and compensations see the mutations.
type StepFunc func(ctx context.Context, sagaCtx map[string]any) error

// SagaStep is one unit of work in a saga, optionally paired with a
// compensation that undoes it during rollback.
type SagaStep struct {
	Name         string
	Action       StepFunc
	Compensation StepFunc
}

// SagaDefinition is an ordered list of steps registered under a name.
type SagaDefinition struct {
	Name  string
	Steps []SagaStep
}

// SagaInstance is one run of a SagaDefinition. It is mutated only by the
// coordinator's execution loop, never directly by callers.
type SagaInstance struct {
	ID         string         `json:"id"`
	Definition string         `json:"definition"`
	Context    map[string]any `json:"context,omitempty"`

	// CompletedSteps is append-only and doubles as the compensation
	// order: rollback walks it in reverse.
	CompletedSteps []string `json:"completed_steps"`

	Status    SagaStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewSagaInstance creates a running instance for the named definition.
func NewSagaInstance(definition string, sagaCtx map[string]any) *SagaInstance {
	now := time.Now().UTC()
	return &SagaInstance{
		ID:             uuid.NewString(),
		Definition:     definition,
		Context:        CloneContext(sagaCtx),
		CompletedSteps: []string{},
		Status:         SagaRunning,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Clone returns a copy safe to hand to callers while the execution loop
// keeps mutating the original.
func (s *SagaInstance) Clone() *SagaInstance {
	cp := *s
	cp.Context = CloneContext(s.Context)
	cp.CompletedSteps = append([]string{}, s.CompletedSteps...)
	return &cp
}
