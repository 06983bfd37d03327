package policy_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/conductor/pkg/policy"
	"github.com/stretchr/testify/assert"
)

func TestRegistry_EvaluateUnknownPolicyDenies(t *testing.T) {
	r := policy.NewRegistry()

	allowed := r.Evaluate(context.Background(), "no_such_policy", nil, nil)
	assert.False(t, allowed, "unknown policy must deny, not panic")
}

func TestRegistry_ExecuteUnknownActionIsNoop(t *testing.T) {
	r := policy.NewRegistry()

	// Must not panic or error.
	r.Execute(context.Background(), "no_such_action", nil, nil)
}

func TestRegistry_EvaluateErrorDenies(t *testing.T) {
	r := policy.NewRegistry()
	r.RegisterPolicy("broken", func(ctx context.Context, instCtx, cfg map[string]any) (bool, error) {
		return true, errors.New("backend unavailable")
	})

	assert.False(t, r.Evaluate(context.Background(), "broken", nil, nil))
}

func TestRegistry_RegisterOverwrites(t *testing.T) {
	r := policy.NewRegistry()
	r.RegisterPolicy("flip", func(ctx context.Context, instCtx, cfg map[string]any) (bool, error) {
		return false, nil
	})
	r.RegisterPolicy("flip", func(ctx context.Context, instCtx, cfg map[string]any) (bool, error) {
		return true, nil
	})

	assert.True(t, r.Evaluate(context.Background(), "flip", nil, nil))
}

func TestRegistry_ExecuteMutatesContext(t *testing.T) {
	r := policy.NewRegistry()
	r.RegisterAction("stamp", func(ctx context.Context, instCtx, cfg map[string]any) error {
		instCtx["stamped"] = true
		return nil
	})

	instCtx := map[string]any{}
	r.Execute(context.Background(), "stamp", instCtx, nil)
	assert.Equal(t, true, instCtx["stamped"])
}

func TestBuiltin_AlwaysAllow(t *testing.T) {
	r := policy.NewRegistry()
	assert.True(t, r.Evaluate(context.Background(), policy.AlwaysAllow, nil, nil))
}

func TestBuiltin_ThresholdCheck(t *testing.T) {
	r := policy.NewRegistry()
	ctx := context.Background()
	cfg := map[string]any{"key": "amount", "threshold": 100}

	cases := []struct {
		name    string
		instCtx map[string]any
		want    bool
	}{
		{"under threshold", map[string]any{"amount": 50}, true},
		{"at threshold", map[string]any{"amount": 100.0}, true},
		{"over threshold", map[string]any{"amount": 100.01}, false},
		{"numeric string coerces", map[string]any{"amount": "75"}, true},
		{"missing key denies", map[string]any{}, false},
		{"non-numeric denies", map[string]any{"amount": "lots"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, r.Evaluate(ctx, policy.ThresholdCheck, tc.instCtx, cfg))
		})
	}
}
