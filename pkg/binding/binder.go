package binding

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-formcheck/pkg/constraint"
	"github.com/goliatone/go-formcheck/pkg/validation"
)

var (
	ErrDuplicateElement = errors.New("binding: element already bound")
	ErrNilSource        = errors.New("binding: source is nil")
	ErrUnknownSignal    = errors.New("binding: unknown signal")
)

// Element identifies a bound form control. Scopes lists the ids of the
// containers it sits in, innermost first (fieldset, form, page).
type Element struct {
	ID     string
	Scopes []string
}

// Containment decides whether el lies within scope.
type Containment func(scope string, el Element) bool

// InScope is the default Containment: the empty scope addresses every
// element, otherwise the scope must be the element itself or one of its
// containers.
func InScope(scope string, el Element) bool {
	scope = strings.TrimSpace(scope)
	if scope == "" || scope == el.ID {
		return true
	}
	for _, candidate := range el.Scopes {
		if candidate == scope {
			return true
		}
	}
	return false
}

// SignalKind enumerates the external triggers a binder relays.
type SignalKind string

const (
	// SignalValidate forces evaluation of every element in scope.
	SignalValidate SignalKind = "validate"
	// SignalReset clears the state of every element in scope.
	SignalReset SignalKind = "reset"
)

// Signal is a broadcast addressed to a scope.
type Signal struct {
	Kind  SignalKind
	Scope string
}

// Option configures a Binder.
type Option func(*Binder)

// WithStore shares an existing store instead of creating one.
func WithStore(store *validation.Store) Option {
	return func(b *Binder) {
		if store != nil {
			b.store = store
		}
	}
}

// WithLogger sets the logger used for binding lifecycle messages.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Binder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithContainment replaces the scope predicate.
func WithContainment(fn Containment) Option {
	return func(b *Binder) {
		if fn != nil {
			b.contains = fn
		}
	}
}

type bound struct {
	el       Element
	decl     constraint.Declaration
	last     any
	hasValue bool
	cancel   func()
}

// Binder subscribes elements to their value sources and feeds every change,
// validate signal and reset signal into one validation store. All triggers
// are serialised: one runs to completion before the next starts.
type Binder struct {
	store    *validation.Store
	logger   *slog.Logger
	contains Containment

	mu       sync.Mutex
	elements map[string]*bound
	order    []string
}

// New constructs a Binder.
func New(options ...Option) *Binder {
	b := &Binder{
		logger:   slog.Default(),
		contains: InScope,
		elements: make(map[string]*bound),
	}
	for _, opt := range options {
		if opt != nil {
			opt(b)
		}
	}
	if b.store == nil {
		b.store = validation.NewStore()
	}
	return b
}

// Store exposes the store the binder writes to.
func (b *Binder) Store() *validation.Store {
	return b.store
}

// Bind registers el with its declaration and subscribes to src. Each value
// delivered by src is evaluated without forcing, so untouched empty fields
// stay clean. A src that is also a Getter is evaluated once with the value it
// already holds. An empty element id is replaced by a generated one; the
// returned Element carries the id in use.
func (b *Binder) Bind(el Element, decl constraint.Declaration, src Source) (Element, error) {
	if src == nil {
		return el, ErrNilSource
	}
	el.ID = strings.TrimSpace(el.ID)
	if el.ID == "" {
		el.ID = uuid.NewString()
	}
	el.Scopes = append([]string(nil), el.Scopes...)

	entry := &bound{el: el, decl: append(constraint.Declaration(nil), decl...)}

	b.mu.Lock()
	if _, exists := b.elements[el.ID]; exists {
		b.mu.Unlock()
		return el, fmt.Errorf("%w: %s", ErrDuplicateElement, el.ID)
	}
	b.elements[el.ID] = entry
	b.order = append(b.order, el.ID)
	b.mu.Unlock()

	if unknown := entry.decl.Unknown(); len(unknown) > 0 {
		b.logger.Debug("binding ignores unknown constraint tokens",
			"element", el.ID,
			"tokens", unknown,
		)
	}

	// Sources may deliver synchronously from Subscribe, so the lock is not
	// held here.
	cancel := src.Subscribe(func(value any) {
		b.onValue(el.ID, value)
	})

	b.mu.Lock()
	if current, ok := b.elements[el.ID]; ok && current == entry {
		entry.cancel = cancel
		cancel = nil
		if getter, ok := src.(Getter); ok && !entry.hasValue {
			entry.last = getter.Get()
			entry.hasValue = true
			b.store.Evaluate(el.ID, entry.decl, entry.last, false)
		}
	}
	b.mu.Unlock()
	if cancel != nil {
		// unbound while subscribing
		cancel()
	}

	b.logger.Debug("element bound", "element", el.ID, "declaration", entry.decl.String())
	return el, nil
}

func (b *Binder) onValue(id string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.elements[id]
	if !ok {
		return
	}
	entry.last = value
	entry.hasValue = true
	b.store.Evaluate(id, entry.decl, value, false)
}

// Unbind cancels the subscription of id and resets its state. It reports
// whether the element was bound.
func (b *Binder) Unbind(id string) bool {
	b.mu.Lock()
	entry, ok := b.elements[id]
	if ok {
		delete(b.elements, id)
		for i, candidate := range b.order {
			if candidate == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
		b.store.Reset(id)
	}
	b.mu.Unlock()

	if ok && entry.cancel != nil {
		entry.cancel()
	}
	return ok
}

// Validate forces evaluation of every element in scope using the latest
// value each one received, and returns how many elements were evaluated.
func (b *Binder) Validate(scope string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	count := 0
	for _, id := range b.order {
		entry := b.elements[id]
		if !b.contains(scope, entry.el) {
			continue
		}
		b.store.Evaluate(id, entry.decl, entry.last, true)
		count++
	}
	b.logger.Debug("validate signal handled", "scope", scope, "elements", count)
	return count
}

// Reset clears the state of every element in scope and returns how many
// elements were addressed.
func (b *Binder) Reset(scope string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	count := 0
	for _, id := range b.order {
		entry := b.elements[id]
		if !b.contains(scope, entry.el) {
			continue
		}
		b.store.Reset(id)
		count++
	}
	b.logger.Debug("reset signal handled", "scope", scope, "elements", count)
	return count
}

// Dispatch relays a signal to Validate or Reset.
func (b *Binder) Dispatch(sig Signal) (int, error) {
	switch sig.Kind {
	case SignalValidate:
		return b.Validate(sig.Scope), nil
	case SignalReset:
		return b.Reset(sig.Scope), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownSignal, sig.Kind)
	}
}

// Elements returns the bound elements in binding order.
func (b *Binder) Elements() []Element {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Element, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.elements[id].el)
	}
	return out
}

// State returns the current state of id.
func (b *Binder) State(id string) (validation.State, bool) {
	return b.store.Get(id)
}

// Valid reports whether every element in scope that holds state is valid.
// Elements without state are ignored; run Validate first to include them.
func (b *Binder) Valid(scope string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range b.order {
		if !b.contains(scope, b.elements[id].el) {
			continue
		}
		if st, ok := b.store.Get(id); ok && !st.Valid {
			return false
		}
	}
	return true
}

// Close cancels every subscription. Stored state is kept.
func (b *Binder) Close() {
	b.mu.Lock()
	cancels := make([]func(), 0, len(b.elements))
	for _, id := range b.order {
		if entry := b.elements[id]; entry.cancel != nil {
			cancels = append(cancels, entry.cancel)
			entry.cancel = nil
		}
	}
	b.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}
