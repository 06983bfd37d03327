package dsl

import "github.com/aretw0/conductor/pkg/domain"

// Builder manages the construction of one workflow definition.
type Builder struct {
	def         domain.WorkflowDefinition
	transitions []*TransitionBuilder
}

// NewWorkflow creates a builder for the named definition version.
func NewWorkflow(name, version string) *Builder {
	return &Builder{
		def: domain.WorkflowDefinition{
			Name:    name,
			Version: version,
		},
	}
}

// Tenant sets the isolation scope.
func (b *Builder) Tenant(tenant string) *Builder {
	b.def.Tenant = tenant
	return b
}

// States declares the state set.
func (b *Builder) States(states ...string) *Builder {
	b.def.States = states
	return b
}

// Initial sets the initial state.
func (b *Builder) Initial(state string) *Builder {
	b.def.InitialState = state
	return b
}

// Meta attaches a metadata entry.
func (b *Builder) Meta(key string, value any) *Builder {
	if b.def.Metadata == nil {
		b.def.Metadata = make(map[string]any)
	}
	b.def.Metadata[key] = value
	return b
}

// Transition opens a new transition in declared order.
func (b *Builder) Transition(name string) *TransitionBuilder {
	tb := &TransitionBuilder{
		tr:      domain.Transition{Name: name},
		builder: b,
	}
	b.transitions = append(b.transitions, tb)
	return tb
}

// Build compiles and validates the definition.
func (b *Builder) Build() (*domain.WorkflowDefinition, error) {
	def := b.def
	def.Transitions = make([]domain.Transition, 0, len(b.transitions))
	for _, tb := range b.transitions {
		def.Transitions = append(def.Transitions, tb.tr)
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// TransitionBuilder configures a single transition.
type TransitionBuilder struct {
	tr      domain.Transition
	builder *Builder
}

// From sets the source state.
func (tb *TransitionBuilder) From(state string) *TransitionBuilder {
	tb.tr.Source = state
	return tb
}

// To sets the target state.
func (tb *TransitionBuilder) To(state string) *TransitionBuilder {
	tb.tr.Target = state
	return tb
}

// OnEvent allows the transition to be auto-fired by a domain event.
func (tb *TransitionBuilder) OnEvent(eventType string) *TransitionBuilder {
	tb.tr.EventType = eventType
	return tb
}

// When appends a condition hook.
func (tb *TransitionBuilder) When(policy string, config map[string]any) *TransitionBuilder {
	tb.tr.Conditions = append(tb.tr.Conditions, domain.Hook{
		Type:   domain.HookCondition,
		Name:   policy,
		Config: config,
	})
	return tb
}

// Then appends an action hook.
func (tb *TransitionBuilder) Then(action string, config map[string]any) *TransitionBuilder {
	tb.tr.Actions = append(tb.tr.Actions, domain.Hook{
		Type:   domain.HookAction,
		Name:   action,
		Config: config,
	})
	return tb
}

// End returns to the parent builder for further chaining.
func (tb *TransitionBuilder) End() *Builder {
	return tb.builder
}
