package rules

import (
	"sort"

	"github.com/goliatone/go-formcheck/pkg/binding"
	"github.com/goliatone/go-formcheck/pkg/constraint"
)

// Field is one bound control of a form.
type Field struct {
	Name        string
	Label       string
	Declaration constraint.Declaration
	// Messages maps failure reasons to caller supplied text for this field.
	// Form level messages apply when a reason is missing here.
	Messages map[string]string
}

// Form groups the declarations of one form. Scopes lists the containers the
// form itself sits in (page, dialog), innermost first.
type Form struct {
	ID       string
	Source   string
	Scopes   []string
	Order    []string
	Fields   map[string]Field
	Messages map[string]string
}

// OrderedFields returns the fields following Order, then any remaining
// fields sorted by name.
func (f Form) OrderedFields() []Field {
	out := make([]Field, 0, len(f.Fields))
	seen := make(map[string]struct{}, len(f.Fields))
	for _, name := range f.Order {
		field, ok := f.Fields[name]
		if !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, field)
	}

	rest := make([]string, 0, len(f.Fields))
	for name := range f.Fields {
		if _, ok := seen[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		out = append(out, f.Fields[name])
	}
	return out
}

// ElementID returns the element id used when binding field name.
func (f Form) ElementID(name string) string {
	if f.ID == "" {
		return name
	}
	return f.ID + "." + name
}

// Element returns the binding element for field name: its scopes are the
// form id followed by the form's own scopes.
func (f Form) Element(name string) binding.Element {
	scopes := make([]string, 0, len(f.Scopes)+1)
	if f.ID != "" {
		scopes = append(scopes, f.ID)
	}
	scopes = append(scopes, f.Scopes...)
	return binding.Element{ID: f.ElementID(name), Scopes: scopes}
}

// Message resolves the text for reason on field name: field messages first,
// then form messages. It reports false when neither defines one.
func (f Form) Message(name, reason string) (string, bool) {
	if field, ok := f.Fields[name]; ok {
		if msg, ok := field.Messages[reason]; ok && msg != "" {
			return msg, true
		}
	}
	if msg, ok := f.Messages[reason]; ok && msg != "" {
		return msg, true
	}
	return "", false
}

// Store holds forms keyed by id.
type Store struct {
	forms map[string]Form
}

// NewStore builds a store from already constructed forms, e.g. forms
// derived from an OpenAPI document.
func NewStore(forms ...Form) *Store {
	s := &Store{forms: make(map[string]Form, len(forms))}
	for _, form := range forms {
		s.forms[form.ID] = form
	}
	return s
}

// Form returns the form registered under id.
func (s *Store) Form(id string) (Form, bool) {
	if s == nil {
		return Form{}, false
	}
	form, ok := s.forms[id]
	return form, ok
}

// IDs returns the registered form ids, sorted.
func (s *Store) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.forms))
	for id := range s.forms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Empty reports whether the store holds any forms.
func (s *Store) Empty() bool {
	return s == nil || len(s.forms) == 0
}
