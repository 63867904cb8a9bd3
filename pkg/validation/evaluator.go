package validation

import (
	"github.com/goliatone/go-formcheck/internal/coerce"
	"github.com/goliatone/go-formcheck/pkg/constraint"
)

// State is the observable outcome of the last evaluation that ran for an
// element. Dirty only ever goes from false to true; a reset removes the whole
// record instead of clearing it.
type State struct {
	Dirty   bool               `json:"dirty"`
	Valid   bool               `json:"valid"`
	Reason  string             `json:"reason"`
	Status  constraint.Status  `json:"status"`
	Options constraint.Options `json:"options"`
}

// Failed reports whether the named constraint (state key or declaration
// token) failed in this state.
func (s State) Failed(name string) bool {
	k, ok := constraint.Lookup(name)
	if !ok {
		return false
	}
	passed, ok := s.Status.Passed(k)
	return ok && !passed
}

// Skipped reports whether an evaluation with these inputs would be skipped by
// the dirty gate: the value is falsy, the element has never been evaluated
// and the caller did not force it.
func Skipped(current *State, value any, force bool) bool {
	if force {
		return false
	}
	if coerce.Truthy(value) {
		return false
	}
	return current == nil || !current.Dirty
}

// Evaluate computes the next state for an element. It returns false, and a
// zero State, when the dirty gate skips the evaluation; the caller must then
// leave the current state untouched. current may be nil when the element has
// no state yet. Evaluate never fails: malformed constraints are dropped.
func Evaluate(current *State, decl constraint.Declaration, value any, force bool) (State, bool) {
	if Skipped(current, value, force) {
		return State{}, false
	}

	opts := constraint.Resolve(decl)
	status := constraint.Evaluate(opts, value)

	next := State{
		Dirty:   true,
		Valid:   status.Valid(),
		Status:  status,
		Options: opts,
	}
	if k, failed := status.FirstFailure(); failed {
		next.Reason = k.Key()
	}
	return next, true
}
