package domain_test

import (
	"errors"
	"testing"

	"github.com/aretw0/conductor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDefinition() *domain.WorkflowDefinition {
	return &domain.WorkflowDefinition{
		Name:         "order",
		Version:      "1.0.0",
		Tenant:       "acme",
		States:       []string{"draft", "review", "approved"},
		InitialState: "draft",
		Transitions: []domain.Transition{
			{Name: "submit", Source: "draft", Target: "review"},
			{Name: "approve", Source: "review", Target: "approved"},
		},
	}
}

func TestDefinition_ValidateOK(t *testing.T) {
	assert.NoError(t, validDefinition().Validate())
}

func TestDefinition_ValidateFailures(t *testing.T) {
	cases := []struct {
		name       string
		mutate     func(*domain.WorkflowDefinition)
		transition string
	}{
		{"missing name", func(d *domain.WorkflowDefinition) { d.Name = "" }, ""},
		{"no states", func(d *domain.WorkflowDefinition) { d.States = nil }, ""},
		{"initial state unknown", func(d *domain.WorkflowDefinition) { d.InitialState = "limbo" }, ""},
		{"unknown source", func(d *domain.WorkflowDefinition) { d.Transitions[0].Source = "limbo" }, "submit"},
		{"unknown target", func(d *domain.WorkflowDefinition) { d.Transitions[1].Target = "limbo" }, "approve"},
		{"unnamed transition", func(d *domain.WorkflowDefinition) { d.Transitions[0].Name = "" }, ""},
		{"duplicate transition", func(d *domain.WorkflowDefinition) { d.Transitions[1].Name = "submit" }, "submit"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			def := validDefinition()
			tc.mutate(def)

			err := def.Validate()
			require.ErrorIs(t, err, domain.ErrValidation)

			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.transition, verr.Transition)
		})
	}
}

func TestDefinition_FindTransition(t *testing.T) {
	def := validDefinition()

	tr := def.FindTransition("approve")
	require.NotNil(t, tr)
	assert.Equal(t, "review", tr.Source)

	assert.Nil(t, def.FindTransition("reject"))
}

func TestInstance_CloneIsolatesContext(t *testing.T) {
	def := validDefinition()
	inst := domain.NewWorkflowInstance(def, map[string]any{
		"amount": 10,
		"nested": map[string]any{"k": "v"},
	})

	cp := inst.Clone()
	cp.Context["amount"] = 999
	cp.Context["nested"].(map[string]any)["k"] = "mutated"

	assert.EqualValues(t, 10, inst.Context["amount"])
	assert.Equal(t, "v", inst.Context["nested"].(map[string]any)["k"])
}

func TestNewWorkflowInstance_SeedsInitialState(t *testing.T) {
	def := validDefinition()
	inst := domain.NewWorkflowInstance(def, nil)

	assert.NotEmpty(t, inst.ID)
	assert.Equal(t, "draft", inst.State)
	assert.Equal(t, def.Name, inst.WorkflowName)
	assert.Equal(t, def.Version, inst.WorkflowVersion)
	assert.Equal(t, def.Tenant, inst.Tenant)
	assert.NotNil(t, inst.Context)

	other := domain.NewWorkflowInstance(def, nil)
	assert.NotEqual(t, inst.ID, other.ID)
}
