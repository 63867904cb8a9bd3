// Package formcheck wires the validation store, the binder, attribute
// projection and feedback rendering behind one constructor. Callers that need
// finer control can use the packages under pkg/ directly.
package formcheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/goliatone/go-formcheck/pkg/attrs"
	"github.com/goliatone/go-formcheck/pkg/binding"
	"github.com/goliatone/go-formcheck/pkg/feedback"
	"github.com/goliatone/go-formcheck/pkg/openapi"
	"github.com/goliatone/go-formcheck/pkg/rules"
	"github.com/goliatone/go-formcheck/pkg/validation"
)

// Form aliases rules.Form so callers can stay on the root package.
type Form = rules.Form

// State aliases validation.State.
type State = validation.State

// Option customises a Checker.
type Option func(*Checker)

// WithLogger sets the logger shared by the binder and the renderer.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPrefix sets the attribute prefix; attrs.DefaultPrefix otherwise.
func WithPrefix(prefix string) Option {
	return func(c *Checker) {
		c.prefix = prefix
	}
}

// WithObservers registers extra store observers (metrics, logging).
func WithObservers(observers ...validation.Observer) Option {
	return func(c *Checker) {
		c.observers = append(c.observers, observers...)
	}
}

// WithRenderer replaces the default feedback renderer.
func WithRenderer(renderer *feedback.Renderer) Option {
	return func(c *Checker) {
		c.renderer = renderer
	}
}

// WithRendererOptions configures the default feedback renderer.
func WithRendererOptions(options ...feedback.Option) Option {
	return func(c *Checker) {
		c.rendererOptions = append(c.rendererOptions, options...)
	}
}

// Checker owns one validation store and everything observing it.
type Checker struct {
	logger          *slog.Logger
	prefix          string
	observers       []validation.Observer
	renderer        *feedback.Renderer
	rendererOptions []feedback.Option

	store  *validation.Store
	sink   *attrs.Sink
	binder *binding.Binder
}

// New builds a Checker. The attribute sink is always attached to the store.
func New(options ...Option) (*Checker, error) {
	c := &Checker{
		logger: slog.Default(),
		prefix: attrs.DefaultPrefix,
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}

	c.sink = attrs.NewSink(c.prefix)
	c.store = validation.NewStore(append([]validation.Observer{c.sink}, c.observers...)...)
	c.binder = binding.New(binding.WithStore(c.store), binding.WithLogger(c.logger))

	if c.renderer == nil {
		opts := append([]feedback.Option{feedback.WithLogger(c.logger)}, c.rendererOptions...)
		renderer, err := feedback.NewRenderer(opts...)
		if err != nil {
			return nil, fmt.Errorf("formcheck: renderer: %w", err)
		}
		c.renderer = renderer
	}
	return c, nil
}

// Store returns the underlying validation store.
func (c *Checker) Store() *validation.Store { return c.store }

// Binder returns the underlying binder.
func (c *Checker) Binder() *binding.Binder { return c.binder }

// Renderer returns the feedback renderer.
func (c *Checker) Renderer() *feedback.Renderer { return c.renderer }

// Prefix returns the attribute prefix in use.
func (c *Checker) Prefix() string { return c.sink.Prefix() }

// Bind subscribes every field of form to its source. Fields without an entry
// in sources get a fresh binding.Value, returned keyed by field name so the
// caller can push values into it.
func (c *Checker) Bind(form Form, sources map[string]binding.Source) (map[string]*binding.Value, error) {
	created := make(map[string]*binding.Value)
	for _, field := range form.OrderedFields() {
		src, ok := sources[field.Name]
		if !ok || src == nil {
			value := binding.NewValue(nil)
			created[field.Name] = value
			src = value
		}
		if _, err := c.binder.Bind(form.Element(field.Name), field.Declaration, src); err != nil {
			return nil, fmt.Errorf("formcheck: bind %s.%s: %w", form.ID, field.Name, err)
		}
	}
	return created, nil
}

// Validate forces evaluation of every element bound inside form and reports
// whether all of them pass.
func (c *Checker) Validate(form Form) bool {
	c.binder.Validate(form.ID)
	return c.binder.Valid(form.ID)
}

// Valid reports whether every evaluated element of form passes, without
// evaluating anything.
func (c *Checker) Valid(form Form) bool {
	return c.binder.Valid(form.ID)
}

// Reset clears the state of every element bound inside form.
func (c *Checker) Reset(form Form) int {
	return c.binder.Reset(form.ID)
}

// State returns the state of field name, if it was evaluated.
func (c *Checker) State(form Form, name string) (State, bool) {
	return c.store.Get(form.ElementID(name))
}

// States returns the evaluated states of form keyed by element id.
func (c *Checker) States(form Form) map[string]State {
	out := make(map[string]State, len(form.Fields))
	for name := range form.Fields {
		id := form.ElementID(name)
		if state, ok := c.store.Get(id); ok {
			out[id] = state
		}
	}
	return out
}

// Attributes returns the projected attributes of field name; nil when the
// field holds no state.
func (c *Checker) Attributes(form Form, name string) map[string]string {
	return c.sink.Attributes(form.ElementID(name))
}

// Message resolves the failure text of field name; "" when it passes or was
// never evaluated.
func (c *Checker) Message(form Form, name string) (string, error) {
	state, ok := c.State(form, name)
	if !ok {
		return "", nil
	}
	return c.renderer.Message(form, name, state)
}

// Banner renders the error banner for form.
func (c *Checker) Banner(form Form) (string, error) {
	return c.renderer.RenderBanner(form, c.States(form))
}

// Hint renders the inline hint for field name.
func (c *Checker) Hint(form Form, name string) (string, error) {
	state, ok := c.State(form, name)
	if !ok {
		return "", nil
	}
	return c.renderer.RenderHint(form, name, state)
}

// Close unbinds every element.
func (c *Checker) Close() {
	c.binder.Close()
}

// LoadRules reads the forms of a rules file.
func LoadRules(path string, options ...rules.Option) (*rules.Store, error) {
	return rules.LoadFile(path, options...)
}

// FormFromOpenAPI loads the OpenAPI document at location (path or URL) and
// derives the form of operationID from its request schema.
func FormFromOpenAPI(ctx context.Context, location, operationID string, options ...openapi.Option) (Form, error) {
	if ctx == nil {
		return Form{}, errors.New("formcheck: context is required")
	}
	src, err := openapi.SourceFor(location)
	if err != nil {
		return Form{}, err
	}
	doc, err := openapi.Load(ctx, src, options...)
	if err != nil {
		return Form{}, err
	}
	return doc.Form(operationID)
}
