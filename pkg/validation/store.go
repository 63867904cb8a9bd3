package validation

import (
	"sort"
	"sync"

	"github.com/goliatone/go-formcheck/pkg/constraint"
)

// Observer receives every state change a Store applies. Evaluated always
// carries the complete new state of one evaluation cycle. Observers run
// synchronously while the store serialises writes, so they must not call
// back into the same Store.
type Observer interface {
	Evaluated(id string, state State)
	Reset(id string)
}

// ObserverFuncs adapts a pair of functions into an Observer. Nil functions
// are skipped.
type ObserverFuncs struct {
	OnEvaluated func(id string, state State)
	OnReset     func(id string)
}

// Evaluated implements Observer.
func (o ObserverFuncs) Evaluated(id string, state State) {
	if o.OnEvaluated != nil {
		o.OnEvaluated(id, state)
	}
}

// Reset implements Observer.
func (o ObserverFuncs) Reset(id string) {
	if o.OnReset != nil {
		o.OnReset(id)
	}
}

// Store owns the validation state of a set of elements keyed by element id.
// Every write replaces or removes a record wholesale under one lock, so
// readers never see a mix of two evaluation cycles.
type Store struct {
	mu        sync.RWMutex
	states    map[string]State
	observers []Observer
}

// NewStore constructs an empty store notifying the supplied observers.
func NewStore(observers ...Observer) *Store {
	s := &Store{states: make(map[string]State)}
	for _, o := range observers {
		s.Observe(o)
	}
	return s
}

// Observe registers an observer for subsequent changes.
func (s *Store) Observe(o Observer) {
	if s == nil || o == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Get returns the state of id. The second result is false when the element
// has never been evaluated or was reset.
func (s *Store) Get(id string) (State, bool) {
	if s == nil {
		return State{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[id]
	return st, ok
}

// Evaluate runs the evaluator against the current state of id and stores the
// result. It returns false when the dirty gate skipped the evaluation, in
// which case nothing was written and no observer was notified.
func (s *Store) Evaluate(id string, decl constraint.Declaration, value any, force bool) (State, bool) {
	if s == nil {
		return State{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var current *State
	if st, ok := s.states[id]; ok {
		current = &st
	}

	next, ran := Evaluate(current, decl, value, force)
	if !ran {
		return State{}, false
	}
	if s.states == nil {
		s.states = make(map[string]State)
	}
	s.states[id] = next
	for _, o := range s.observers {
		o.Evaluated(id, next)
	}
	return next, true
}

// Reset removes every field of id's state. Resetting an element without state
// leaves the store unchanged; observers are still told so projections can
// clear themselves.
func (s *Store) Reset(id string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, id)
	for _, o := range s.observers {
		o.Reset(id)
	}
}

// Len returns the number of elements holding state.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}

// IDs returns the ids holding state, sorted.
func (s *Store) IDs() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	ids := make([]string, 0, len(s.states))
	for id := range s.states {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Snapshot copies every stored state.
func (s *Store) Snapshot() map[string]State {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]State, len(s.states))
	for id, st := range s.states {
		out[id] = st
	}
	return out
}
