// Package attrs projects validation state onto element attributes
// (data-validation-dirty, data-validation-valid, ...) and reads it back.
// The projection is one-way: the store owns the state, attributes only
// mirror it for styling and scripting.
package attrs

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-formcheck/pkg/validation"
)

const (
	DefaultPrefix = "data-validation-"
	// LegacyPrefix matches the x-validation directive attribute names.
	LegacyPrefix = "x-validation-"
)

// Field suffixes appended to the prefix.
const (
	FieldDirty   = "dirty"
	FieldValid   = "valid"
	FieldReason  = "reason"
	FieldStatus  = "status"
	FieldOptions = "options"
)

// Fields lists the projected suffixes in a stable order.
func Fields() []string {
	return []string{FieldDirty, FieldValid, FieldReason, FieldStatus, FieldOptions}
}

// Names returns the five attribute names for prefix.
func Names(prefix string) []string {
	prefix = normalizePrefix(prefix)
	out := make([]string, 0, 5)
	for _, field := range Fields() {
		out = append(out, prefix+field)
	}
	return out
}

// Project renders state as attribute values. Status and options are JSON
// objects in constraint scan order; booleans are "true"/"false".
func Project(state validation.State, prefix string) map[string]string {
	prefix = normalizePrefix(prefix)
	status, err := json.Marshal(state.Status)
	if err != nil {
		status = []byte("{}")
	}
	options, err := json.Marshal(state.Options)
	if err != nil {
		options = []byte("{}")
	}
	return map[string]string{
		prefix + FieldDirty:   strconv.FormatBool(state.Dirty),
		prefix + FieldValid:   strconv.FormatBool(state.Valid),
		prefix + FieldReason:  state.Reason,
		prefix + FieldStatus:  string(status),
		prefix + FieldOptions: string(options),
	}
}

// Parse reads a state back from attributes. It reports false when the dirty
// attribute is absent, meaning the element holds no state. Malformed status
// or options text yields empty sets rather than an error.
func Parse(attributes map[string]string, prefix string) (validation.State, bool) {
	prefix = normalizePrefix(prefix)
	dirty, ok := attributes[prefix+FieldDirty]
	if !ok {
		return validation.State{}, false
	}

	var st validation.State
	st.Dirty, _ = strconv.ParseBool(strings.TrimSpace(dirty))
	st.Valid, _ = strconv.ParseBool(strings.TrimSpace(attributes[prefix+FieldValid]))
	st.Reason = attributes[prefix+FieldReason]
	if raw := strings.TrimSpace(attributes[prefix+FieldStatus]); raw != "" {
		_ = json.Unmarshal([]byte(raw), &st.Status)
	}
	if raw := strings.TrimSpace(attributes[prefix+FieldOptions]); raw != "" {
		_ = json.Unmarshal([]byte(raw), &st.Options)
	}
	return st, true
}

func normalizePrefix(prefix string) string {
	trimmed := strings.TrimSpace(prefix)
	if trimmed == "" {
		return DefaultPrefix
	}
	if !strings.HasSuffix(trimmed, "-") {
		trimmed += "-"
	}
	return trimmed
}

// Sink is a validation.Observer keeping the projected attributes of every
// element it has seen. A reset clears all five attributes of the element.
type Sink struct {
	prefix string

	mu       sync.RWMutex
	elements map[string]map[string]string
}

var _ validation.Observer = (*Sink)(nil)

// NewSink constructs a sink writing attributes with prefix (DefaultPrefix
// when empty).
func NewSink(prefix string) *Sink {
	return &Sink{
		prefix:   normalizePrefix(prefix),
		elements: make(map[string]map[string]string),
	}
}

// Prefix returns the attribute prefix in use.
func (s *Sink) Prefix() string {
	return s.prefix
}

// Evaluated implements validation.Observer.
func (s *Sink) Evaluated(id string, state validation.State) {
	projected := Project(state, s.prefix)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.elements == nil {
		s.elements = make(map[string]map[string]string)
	}
	s.elements[id] = projected
}

// Reset implements validation.Observer.
func (s *Sink) Reset(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.elements, id)
}

// Attributes returns a copy of the attributes projected for id, or nil when
// the element holds no state.
func (s *Sink) Attributes(id string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	current, ok := s.elements[id]
	if !ok {
		return nil
	}
	out := make(map[string]string, len(current))
	for k, v := range current {
		out[k] = v
	}
	return out
}

// Elements returns the ids with projected attributes, sorted.
func (s *Sink) Elements() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.elements))
	for id := range s.elements {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
