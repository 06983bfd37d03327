package domain

import "fmt"

// HookType classifies how a Hook reference is used at a transition.
type HookType string

const (
	// HookCondition is a predicate evaluated before the state change.
	// All conditions of a transition must pass for it to fire.
	HookCondition HookType = "condition"
	// HookAction is a side effect executed after the state change commits.
	HookAction HookType = "action"
	// HookBefore and HookAfter are reserved effect slots around the
	// state change. The engine currently treats them like HookAction.
	HookBefore HookType = "before"
	HookAfter  HookType = "after"
)

// Hook is a reference to a named callable in the policy registry,
// not a function body. Config is passed opaquely to the callable.
type Hook struct {
	Type   HookType       `json:"type" yaml:"type"`
	Name   string         `json:"name" yaml:"name"`
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// Transition defines a guarded edge between two states of a definition.
type Transition struct {
	// Name is unique within the owning definition.
	Name string `json:"name" yaml:"name"`

	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`

	// EventType, when set, allows this transition to be auto-fired by a
	// matching domain event routed through the engine.
	EventType string `json:"event_type,omitempty" yaml:"event_type,omitempty"`

	// Conditions are evaluated in declared order; the first failing
	// predicate denies the transition and the rest are skipped.
	Conditions []Hook `json:"conditions,omitempty" yaml:"conditions,omitempty"`

	// Actions run in declared order after the state change commits.
	Actions []Hook `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// WorkflowDefinition is the static, versioned description of a workflow.
// It is immutable once registered: behavior changes are made by
// registering a new version, never by mutating in place.
type WorkflowDefinition struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`

	// Tenant is the isolation scope. Definitions with the same name in
	// different tenants are unrelated.
	Tenant string `json:"tenant,omitempty" yaml:"tenant,omitempty"`

	States       []string     `json:"states" yaml:"states"`
	InitialState string       `json:"initial_state" yaml:"initial_state"`
	Transitions  []Transition `json:"transitions" yaml:"transitions"`

	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Validate checks the structural invariants of the definition.
// A definition that fails validation is never stored by the engine.
func (d *WorkflowDefinition) Validate() error {
	if d.Name == "" {
		return &ValidationError{Definition: d.Name, Reason: "definition name is required"}
	}
	if len(d.States) == 0 {
		return &ValidationError{Definition: d.Name, Reason: "definition must declare at least one state"}
	}

	states := make(map[string]struct{}, len(d.States))
	for _, s := range d.States {
		states[s] = struct{}{}
	}

	if _, ok := states[d.InitialState]; !ok {
		return &ValidationError{
			Definition: d.Name,
			Reason:     fmt.Sprintf("initial state %q is not a member of states", d.InitialState),
		}
	}

	seen := make(map[string]struct{}, len(d.Transitions))
	for _, t := range d.Transitions {
		if t.Name == "" {
			return &ValidationError{Definition: d.Name, Reason: "transition name is required"}
		}
		if _, dup := seen[t.Name]; dup {
			return &ValidationError{
				Definition: d.Name,
				Transition: t.Name,
				Reason:     "duplicate transition name",
			}
		}
		seen[t.Name] = struct{}{}

		if _, ok := states[t.Source]; !ok {
			return &ValidationError{
				Definition: d.Name,
				Transition: t.Name,
				Reason:     fmt.Sprintf("source state %q is not a member of states", t.Source),
			}
		}
		if _, ok := states[t.Target]; !ok {
			return &ValidationError{
				Definition: d.Name,
				Transition: t.Name,
				Reason:     fmt.Sprintf("target state %q is not a member of states", t.Target),
			}
		}
	}

	return nil
}

// Clone returns a deep copy of the definition. The engine hands out and
// stores clones so callers cannot mutate a registered definition through
// a retained pointer.
func (d *WorkflowDefinition) Clone() *WorkflowDefinition {
	cp := *d
	cp.States = append([]string(nil), d.States...)
	if d.Metadata != nil {
		cp.Metadata = CloneContext(d.Metadata)
	}

	cp.Transitions = make([]Transition, len(d.Transitions))
	for i, t := range d.Transitions {
		t.Conditions = cloneHooks(t.Conditions)
		t.Actions = cloneHooks(t.Actions)
		cp.Transitions[i] = t
	}
	return &cp
}

func cloneHooks(hooks []Hook) []Hook {
	if hooks == nil {
		return nil
	}
	out := make([]Hook, len(hooks))
	for i, h := range hooks {
		if h.Config != nil {
			h.Config = CloneContext(h.Config)
		}
		out[i] = h
	}
	return out
}

// FindTransition returns the transition with the given name, or nil.
func (d *WorkflowDefinition) FindTransition(name string) *Transition {
	for i := range d.Transitions {
		if d.Transitions[i].Name == name {
			return &d.Transitions[i]
		}
	}
	return nil
}

// HasState reports whether s is a declared state of the definition.
func (d *WorkflowDefinition) HasState(s string) bool {
	for _, st := range d.States {
		if st == s {
			return true
		}
	}
	return false
}
