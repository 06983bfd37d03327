package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/conductor/pkg/domain"
)

// Simulate replays the ordered transition names against a scratch context,
// evaluating conditions and running actions exactly as TriggerTransition
// would, without touching any stored definition or instance. It stops at
// the first transition whose source does not match the simulated state or
// whose conditions fail, recording the partial history and the blocking
// error.
func (e *Engine) Simulate(ctx context.Context, def *domain.WorkflowDefinition, initCtx map[string]any, transitionNames []string) (*domain.SimulationResult, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	result := &domain.SimulationResult{
		Succeeded:  true,
		FinalState: def.InitialState,
		History:    []domain.SimulationStep{},
	}
	scratch := domain.CloneContext(initCtx)
	state := def.InitialState

	for _, name := range transitionNames {
		tr := def.FindTransition(name)
		if tr == nil {
			result.Succeeded = false
			result.Errors = append(result.Errors,
				fmt.Sprintf("transition %q not found in %s@%s", name, def.Name, def.Version))
			break
		}

		if tr.Source != state {
			result.Succeeded = false
			result.Errors = append(result.Errors,
				fmt.Sprintf("transition %q requires state %q, simulation is in %q", name, tr.Source, state))
			break
		}

		denied := false
		for _, cond := range tr.Conditions {
			if e.policies.Evaluate(ctx, cond.Name, scratch, cond.Config) {
				continue
			}
			result.Succeeded = false
			result.Errors = append(result.Errors,
				fmt.Sprintf("transition %q denied by condition %q", name, cond.Name))
			denied = true
			break
		}
		if denied {
			break
		}

		state = tr.Target
		result.History = append(result.History, domain.SimulationStep{
			Transition: name,
			From:       tr.Source,
			To:         tr.Target,
		})

		for _, action := range tr.Actions {
			e.policies.Execute(ctx, action.Name, scratch, action.Config)
		}
	}

	result.FinalState = state
	return result, nil
}
