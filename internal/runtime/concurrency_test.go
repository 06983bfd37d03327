package runtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/conductor/internal/runtime"
	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/policy"
)

// Two concurrent attempts of the same transition must resolve to exactly
// one commit; the loser sees IllegalState instead of a lost update, even
// when a slow condition hook keeps both attempts in flight at once.
func TestTriggerTransition_ConcurrentAttemptsSingleCommit(t *testing.T) {
	ctx := context.Background()

	gate := make(chan struct{})
	reg := policy.NewRegistry()
	reg.RegisterPolicy("slow_allow", func(ctx context.Context, instCtx, cfg map[string]any) (bool, error) {
		<-gate
		return true, nil
	})

	e := runtime.NewEngine(reg)
	def := approvalDefinition()
	def.Transitions[0].Conditions = []domain.Hook{
		{Type: domain.HookCondition, Name: "slow_allow"},
	}
	_, err := e.RegisterDefinition(ctx, def)
	require.NoError(t, err)

	inst, err := e.CreateInstance(ctx, def, nil)
	require.NoError(t, err)

	const attempts = 8
	errs := make([]error, attempts)

	var start, done sync.WaitGroup
	start.Add(attempts)
	done.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func(i int) {
			defer done.Done()
			start.Done()
			_, errs[i] = e.TriggerTransition(ctx, inst.ID, "submit", nil)
		}(i)
	}

	// Release every in-flight condition evaluation at once.
	start.Wait()
	close(gate)
	done.Wait()

	committed, illegal := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			committed++
		case errors.Is(err, domain.ErrIllegalState):
			illegal++
		default:
			t.Fatalf("unexpected error class: %v", err)
		}
	}

	assert.Equal(t, 1, committed, "exactly one attempt may commit")
	assert.Equal(t, attempts-1, illegal)

	got, err := e.GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, "review", got.State)
}

// A transition that commits while an earlier transition's action is still
// running must not have its payload reverted when the action's context copy
// is merged back: only the keys the action changed flow back.
func TestTriggerTransition_SlowActionDoesNotRevertLaterCommit(t *testing.T) {
	ctx := context.Background()

	entered := make(chan struct{})
	gate := make(chan struct{})
	reg := policy.NewRegistry()
	reg.RegisterAction("slow_note", func(ctx context.Context, instCtx, cfg map[string]any) error {
		close(entered)
		<-gate
		instCtx["noted"] = true
		return nil
	})

	e := runtime.NewEngine(reg)
	def := approvalDefinition()
	def.Transitions[0].Actions = []domain.Hook{
		{Type: domain.HookAction, Name: "slow_note"},
	}
	_, err := e.RegisterDefinition(ctx, def)
	require.NoError(t, err)

	inst, err := e.CreateInstance(ctx, def, nil)
	require.NoError(t, err)

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_, _ = e.TriggerTransition(ctx, inst.ID, "submit", map[string]any{"amount": 1})
	}()

	// Commit a second transition while the first is stuck in its action.
	<-entered
	second, err := e.TriggerTransition(ctx, inst.ID, "approve", map[string]any{"amount": 2})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Context["amount"])

	close(gate)
	<-firstDone

	got, err := e.GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, "approved", got.State)
	assert.Equal(t, 2, got.Context["amount"],
		"the approve payload must survive the submit action's merge-back")
	assert.Equal(t, true, got.Context["noted"], "the action's own change is kept")
}

// Hook evaluation must not hold the engine lock: while one instance is
// stuck in a slow condition, transitions on other instances proceed.
func TestTriggerTransition_SlowHookDoesNotBlockOtherInstances(t *testing.T) {
	ctx := context.Background()

	gate := make(chan struct{})
	reg := policy.NewRegistry()
	reg.RegisterPolicy("blocking", func(ctx context.Context, instCtx, cfg map[string]any) (bool, error) {
		<-gate
		return true, nil
	})

	e := runtime.NewEngine(reg)

	guarded := approvalDefinition()
	guarded.Name = "guarded"
	guarded.Transitions[0].Conditions = []domain.Hook{
		{Type: domain.HookCondition, Name: "blocking"},
	}
	_, err := e.RegisterDefinition(ctx, guarded)
	require.NoError(t, err)

	free := approvalDefinition()
	free.Name = "free"
	_, err = e.RegisterDefinition(ctx, free)
	require.NoError(t, err)

	stuck, err := e.CreateInstance(ctx, guarded, nil)
	require.NoError(t, err)
	quick, err := e.CreateInstance(ctx, free, nil)
	require.NoError(t, err)

	stuckDone := make(chan struct{})
	go func() {
		defer close(stuckDone)
		_, _ = e.TriggerTransition(ctx, stuck.ID, "submit", nil)
	}()

	// The unrelated instance advances while the hook is blocked.
	got, err := e.TriggerTransition(ctx, quick.ID, "submit", nil)
	require.NoError(t, err)
	assert.Equal(t, "review", got.State)

	close(gate)
	<-stuckDone
}
