package prompt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/goliatone/go-formcheck/pkg/binding"
	"github.com/goliatone/go-formcheck/pkg/constraint"
	"github.com/goliatone/go-formcheck/pkg/feedback"
	"github.com/goliatone/go-formcheck/pkg/rules"
	"github.com/goliatone/go-formcheck/pkg/validation"
)

// Session walks a form field by field. Each answer is published on the
// field's binding.Value, so the binder evaluates it like any other change;
// once every field is answered the form scope receives a validate signal.
type Session struct {
	Form   rules.Form
	Driver PromptDriver
	// Binder receives the fields; a fresh one is created when nil. Elements
	// of Form already bound on it are rebound, so their state starts clean.
	Binder *binding.Binder
	// Renderer supplies failure messages; reasons are shown when nil.
	Renderer *feedback.Renderer
	// Defaults pre-fills prompts, keyed by field name.
	Defaults map[string]any
	// Strict re-prompts until an answer passes its constraints.
	Strict bool
	Logger *slog.Logger
}

// Result is the outcome of a session.
type Result struct {
	Valid  bool
	Values map[string]any
	// States is keyed by field name.
	States map[string]validation.State
}

// Run prompts every field in order and returns the validated states.
func (s *Session) Run(ctx context.Context) (Result, error) {
	if s.Driver == nil {
		return Result{}, errors.New("prompt: driver is required")
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	binder := s.Binder
	if binder == nil {
		binder = binding.New(binding.WithLogger(logger))
		defer binder.Close()
	}

	fields := s.Form.OrderedFields()
	values := make(map[string]*binding.Value, len(fields))
	for _, field := range fields {
		value := binding.NewValue(nil)
		el := s.Form.Element(field.Name)
		if binder.Unbind(el.ID) {
			logger.Debug("prompt replaces existing binding", "element", el.ID)
		}
		if _, err := binder.Bind(el, field.Declaration, value); err != nil {
			return Result{}, fmt.Errorf("prompt: bind %s: %w", field.Name, err)
		}
		values[field.Name] = value
	}

	for _, field := range fields {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		answer, err := s.ask(ctx, field)
		if err != nil {
			return Result{}, fmt.Errorf("prompt: %s: %w", field.Name, err)
		}
		values[field.Name].Set(answer)

		state, ok := binder.State(s.Form.ElementID(field.Name))
		logger.Debug("prompt answered", "form", s.Form.ID, "field", field.Name, "evaluated", ok, "valid", state.Valid)
		if ok && !state.Valid {
			if err := s.Driver.Info(ctx, s.message(field, state)); err != nil {
				return Result{}, err
			}
		}
	}

	binder.Validate(s.Form.ID)

	result := Result{
		Valid:  true,
		Values: make(map[string]any, len(fields)),
		States: make(map[string]validation.State, len(fields)),
	}
	for _, field := range fields {
		result.Values[field.Name] = values[field.Name].Get()
		if state, ok := binder.State(s.Form.ElementID(field.Name)); ok {
			result.States[field.Name] = state
			if !state.Valid {
				result.Valid = false
			}
		}
	}
	return result, nil
}

func (s *Session) ask(ctx context.Context, field rules.Field) (any, error) {
	label := field.Label
	if label == "" {
		label = field.Name
	}
	help := field.Declaration.String()

	if field.Declaration.Has(constraint.KindChecked) {
		def, _ := s.Defaults[field.Name].(bool)
		return s.Driver.Confirm(ctx, ConfirmConfig{Message: label, Default: def, Help: help})
	}

	cfg := InputConfig{Message: label, Help: help}
	if def, ok := s.Defaults[field.Name]; ok && def != nil {
		cfg.Default = fmt.Sprint(def)
	}
	if s.Strict {
		cfg.Validator = func(answer string) error {
			preview, _ := validation.Evaluate(nil, field.Declaration, answer, true)
			if preview.Valid {
				return nil
			}
			return errors.New(s.message(field, preview))
		}
	}
	return s.Driver.Input(ctx, cfg)
}

func (s *Session) message(field rules.Field, state validation.State) string {
	if s.Renderer != nil {
		if msg, err := s.Renderer.Message(s.Form, field.Name, state); err == nil && msg != "" {
			return msg
		}
	}
	if msg, ok := s.Form.Message(field.Name, state.Reason); ok {
		return msg
	}
	return fmt.Sprintf("%s: %s", field.Name, state.Reason)
}
