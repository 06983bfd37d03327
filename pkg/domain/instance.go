package domain

import (
	"reflect"
	"time"

	"github.com/google/uuid"
)

// WorkflowInstance is one live execution of a WorkflowDefinition.
// State only ever changes through a successful transition evaluation
// inside the engine; callers never set it directly.
type WorkflowInstance struct {
	ID              string         `json:"id" yaml:"id"`
	WorkflowName    string         `json:"workflow_name" yaml:"workflow_name"`
	WorkflowVersion string         `json:"workflow_version" yaml:"workflow_version"`
	Tenant          string         `json:"tenant,omitempty" yaml:"tenant,omitempty"`
	State           string         `json:"state" yaml:"state"`
	Context         map[string]any `json:"context,omitempty" yaml:"context,omitempty"`
	CreatedAt       time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" yaml:"updated_at"`
}

// NewWorkflowInstance creates an instance seeded at the definition's
// initial state. The supplied context is copied, not aliased.
func NewWorkflowInstance(def *WorkflowDefinition, initCtx map[string]any) *WorkflowInstance {
	now := time.Now().UTC()
	return &WorkflowInstance{
		ID:              uuid.NewString(),
		WorkflowName:    def.Name,
		WorkflowVersion: def.Version,
		Tenant:          def.Tenant,
		State:           def.InitialState,
		Context:         CloneContext(initCtx),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Clone returns a copy of the instance with its own context map, so the
// caller cannot mutate engine-owned state through the returned pointer.
func (i *WorkflowInstance) Clone() *WorkflowInstance {
	cp := *i
	cp.Context = CloneContext(i.Context)
	return &cp
}

// CloneContext copies a context bag. Values are copied shallowly; nested
// maps and slices are copied one level deep, which covers decoded JSON.
func CloneContext(ctx map[string]any) map[string]any {
	out := make(map[string]any, len(ctx))
	for k, v := range ctx {
		switch val := v.(type) {
		case map[string]any:
			inner := make(map[string]any, len(val))
			for ik, iv := range val {
				inner[ik] = iv
			}
			out[k] = inner
		case []any:
			inner := make([]any, len(val))
			copy(inner, val)
			out[k] = inner
		default:
			out[k] = v
		}
	}
	return out
}

// MergeContext merges src into dst in place, overwriting existing keys.
func MergeContext(dst, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}

// DiffContext returns the keys of next whose values differ from base,
// with next's values. Keys removed by next are ignored.
func DiffContext(base, next map[string]any) map[string]any {
	delta := make(map[string]any)
	for k, v := range next {
		if old, ok := base[k]; !ok || !reflect.DeepEqual(old, v) {
			delta[k] = v
		}
	}
	return delta
}
