package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors classify every failure a public operation may return.
// Callers branch with errors.Is; the typed wrappers below carry detail.
var (
	// ErrValidation marks a malformed definition rejected at registration.
	ErrValidation = errors.New("definition validation failed")

	// ErrNotFound marks an unknown definition, instance, saga, or name.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition marks a transition name absent from the
	// instance's definition.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrIllegalState marks a transition attempted from the wrong
	// current state.
	ErrIllegalState = errors.New("illegal state for transition")

	// ErrPolicyDenied marks a transition rejected by a condition hook.
	// It is an expected business outcome, not a defect.
	ErrPolicyDenied = errors.New("transition denied by policy")
)

// ValidationError names the offending definition and transition.
type ValidationError struct {
	Definition string
	Transition string
	Reason     string
}

func (e *ValidationError) Error() string {
	if e.Transition != "" {
		return fmt.Sprintf("definition %q: transition %q: %s", e.Definition, e.Transition, e.Reason)
	}
	return fmt.Sprintf("definition %q: %s", e.Definition, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// IllegalStateError reports a source/state mismatch on a trigger attempt.
type IllegalStateError struct {
	InstanceID string
	Transition string
	Current    string
	Expected   string
}

func (e *IllegalStateError) Error() string {
	return fmt.Sprintf("instance %s: transition %q requires state %q, instance is in %q",
		e.InstanceID, e.Transition, e.Expected, e.Current)
}

func (e *IllegalStateError) Unwrap() error { return ErrIllegalState }

// PolicyDeniedError names the condition that rejected the transition.
type PolicyDeniedError struct {
	InstanceID string
	Transition string
	Condition  string
}

func (e *PolicyDeniedError) Error() string {
	return fmt.Sprintf("instance %s: transition %q denied by condition %q",
		e.InstanceID, e.Transition, e.Condition)
}

func (e *PolicyDeniedError) Unwrap() error { return ErrPolicyDenied }
