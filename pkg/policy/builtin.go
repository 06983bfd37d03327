package policy

import (
	"context"

	"github.com/spf13/cast"
)

// Built-in hook names available to every definition.
const (
	AlwaysAllow    = "always_allow"
	ThresholdCheck = "threshold_check"
)

func registerBuiltins(r *Registry) {
	r.RegisterPolicy(AlwaysAllow, func(ctx context.Context, instCtx, cfg map[string]any) (bool, error) {
		return true, nil
	})

	// threshold_check passes when context[cfg.key] <= cfg.threshold,
	// coercing both sides to float. A missing key or a non-numeric value
	// denies instead of erroring.
	r.RegisterPolicy(ThresholdCheck, func(ctx context.Context, instCtx, cfg map[string]any) (bool, error) {
		key := cast.ToString(cfg["key"])
		raw, ok := instCtx[key]
		if !ok {
			return false, nil
		}

		value, err := cast.ToFloat64E(raw)
		if err != nil {
			return false, nil
		}
		threshold, err := cast.ToFloat64E(cfg["threshold"])
		if err != nil {
			return false, nil
		}

		return value <= threshold, nil
	})
}
