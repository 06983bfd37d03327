package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/conductor/pkg/domain"
)

// TriggerTransition attempts the named transition on the instance.
//
// Conditions are evaluated in declared order against a snapshot of the
// instance context with the payload merged in; the first failing predicate
// denies the whole call and nothing mutates. The source-state check and the
// state write happen inside a single lock acquisition, so two concurrent
// attempts against the same instance cannot both commit from the same
// source state. Actions run after the commit and are best-effort: a failing
// action is logged, never rolled back.
func (e *Engine) TriggerTransition(ctx context.Context, instanceID, transitionName string, payload map[string]any) (*domain.WorkflowInstance, error) {
	e.mu.Lock()
	inst, ok := e.instances[instanceID]
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("instance %s: %w", instanceID, domain.ErrNotFound)
	}
	def, ok := e.definitions[defKey{inst.Tenant, inst.WorkflowName, inst.WorkflowVersion}]
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("definition %s@%s for instance %s: %w",
			inst.WorkflowName, inst.WorkflowVersion, instanceID, domain.ErrNotFound)
	}
	snapshot := inst.Clone()
	e.mu.Unlock()

	tr := def.FindTransition(transitionName)
	if tr == nil {
		return nil, fmt.Errorf("transition %q in %s@%s: %w",
			transitionName, def.Name, def.Version, domain.ErrInvalidTransition)
	}

	if tr.Source != snapshot.State {
		e.observe("illegal_state")
		return nil, &domain.IllegalStateError{
			InstanceID: instanceID,
			Transition: transitionName,
			Current:    snapshot.State,
			Expected:   tr.Source,
		}
	}

	// Predicates see the instance context with the pending payload merged,
	// evaluated outside the lock so slow hooks do not stall other instances.
	evalCtx := snapshot.Context
	domain.MergeContext(evalCtx, payload)

	if denied := e.checkConditions(ctx, tr, instanceID, evalCtx); denied != nil {
		return nil, denied
	}

	// Atomic check-and-commit: re-verify the source state under the same
	// lock that writes the new state, so a concurrent commit between our
	// snapshot and now surfaces as IllegalState instead of a lost update.
	e.mu.Lock()
	if inst.State != tr.Source {
		current := inst.State
		e.mu.Unlock()
		e.observe("illegal_state")
		return nil, &domain.IllegalStateError{
			InstanceID: instanceID,
			Transition: transitionName,
			Current:    current,
			Expected:   tr.Source,
		}
	}
	// The payload is cloned before the merge so event fan-out cannot end
	// up sharing one nested map across every matched instance.
	domain.MergeContext(inst.Context, domain.CloneContext(payload))
	inst.State = tr.Target
	inst.UpdatedAt = time.Now().UTC()
	actBase := domain.CloneContext(inst.Context)
	actCtx := domain.CloneContext(inst.Context)
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "transition applied",
		"instance", instanceID, "transition", transitionName,
		"from", tr.Source, "to", tr.Target)
	e.observe("applied")

	// Actions fire after the state change is final. They run against a
	// copy of the context; only the keys they actually changed are merged
	// back, so a slow action cannot revert a transition that committed on
	// this instance in the meantime.
	for _, action := range tr.Actions {
		e.policies.Execute(ctx, action.Name, actCtx, action.Config)
	}

	e.mu.Lock()
	domain.MergeContext(inst.Context, domain.DiffContext(actBase, actCtx))
	updated := inst.Clone()
	e.mu.Unlock()

	e.persistInstance(ctx, updated)
	return updated, nil
}

// checkConditions evaluates the transition's predicates in order,
// short-circuiting on the first denial.
func (e *Engine) checkConditions(ctx context.Context, tr *domain.Transition, instanceID string, evalCtx map[string]any) error {
	for _, cond := range tr.Conditions {
		if e.policies.Evaluate(ctx, cond.Name, evalCtx, cond.Config) {
			continue
		}
		e.logger.InfoContext(ctx, "transition denied",
			"instance", instanceID, "transition", tr.Name, "condition", cond.Name)
		e.observe("denied")
		e.metrics.ObserveDenial()
		return &domain.PolicyDeniedError{
			InstanceID: instanceID,
			Transition: tr.Name,
			Condition:  cond.Name,
		}
	}
	return nil
}

// HandleEvent fans an inbound domain event out to every live instance that
// can react to it: instances of tenant definitions containing a transition
// with a matching event type, currently sitting in that transition's source
// state. Per-instance failures are logged and swallowed; event dispatch is
// best-effort, not all-or-nothing.
func (e *Engine) HandleEvent(ctx context.Context, eventType, tenant string, data map[string]any) ([]*domain.WorkflowInstance, error) {
	type attempt struct {
		instanceID string
		transition string
	}

	e.mu.Lock()
	var attempts []attempt
	for key, def := range e.definitions {
		if key.tenant != tenant {
			continue
		}
		for _, tr := range def.Transitions {
			if tr.EventType != eventType {
				continue
			}
			for _, inst := range e.instances {
				if inst.Tenant != tenant ||
					inst.WorkflowName != def.Name ||
					inst.WorkflowVersion != def.Version {
					continue
				}
				if inst.State == tr.Source {
					attempts = append(attempts, attempt{inst.ID, tr.Name})
				}
			}
		}
	}
	e.mu.Unlock()

	var transitioned []*domain.WorkflowInstance
	for _, a := range attempts {
		inst, err := e.TriggerTransition(ctx, a.instanceID, a.transition, data)
		if err != nil {
			e.logger.WarnContext(ctx, "event-driven transition skipped",
				"event", eventType, "instance", a.instanceID,
				"transition", a.transition, "error", err)
			continue
		}
		transitioned = append(transitioned, inst)
	}

	return transitioned, nil
}

func (e *Engine) observe(result string) {
	e.metrics.ObserveTransition(result)
}
