package constraint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Status records pass/fail for every constraint resolved into Options.
type Status struct {
	set  [kindCount]bool
	pass [kindCount]bool
}

// Evaluate checks value against every resolved option. The key set of the
// result always equals the key set of opts.
func Evaluate(opts Options, value any) Status {
	var st Status
	for _, k := range opts.Kinds() {
		param, _ := opts.Param(k)
		st.set[k] = true
		st.pass[k] = Check(k, value, param)
	}
	return st
}

// With returns a copy of s with k recorded as passed or failed.
func (s Status) With(k Kind, passed bool) Status {
	if !k.Valid() {
		return s
	}
	s.set[k] = true
	s.pass[k] = passed
	return s
}

// Passed returns the recorded outcome for k.
func (s Status) Passed(k Kind) (passed, ok bool) {
	if !k.Valid() || !s.set[k] {
		return false, false
	}
	return s.pass[k], true
}

// Kinds returns the evaluated kinds in scan order.
func (s Status) Kinds() []Kind {
	var out []Kind
	for k := Kind(0); k < kindCount; k++ {
		if s.set[k] {
			out = append(out, k)
		}
	}
	return out
}

// Len returns the number of evaluated constraints.
func (s Status) Len() int {
	return len(s.Kinds())
}

// Valid reports whether every evaluated constraint passed. An empty status is
// valid.
func (s Status) Valid() bool {
	_, failed := s.FirstFailure()
	return !failed
}

// FirstFailure returns the first failing kind in scan order.
func (s Status) FirstFailure() (Kind, bool) {
	for k := Kind(0); k < kindCount; k++ {
		if s.set[k] && !s.pass[k] {
			return k, true
		}
	}
	return 0, false
}

// Failures returns every failing kind in scan order.
func (s Status) Failures() []Kind {
	var out []Kind
	for k := Kind(0); k < kindCount; k++ {
		if s.set[k] && !s.pass[k] {
			out = append(out, k)
		}
	}
	return out
}

// Map returns the status keyed by state key.
func (s Status) Map() map[string]bool {
	out := make(map[string]bool)
	for _, k := range s.Kinds() {
		out[k.Key()] = s.pass[k]
	}
	return out
}

// MarshalJSON writes the status as an object in scan order.
func (s Status) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range s.Kinds() {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(k.Key()))
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatBool(s.pass[k]))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the object written by MarshalJSON, ignoring unknown
// keys.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw map[string]bool
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("constraint: decode status: %w", err)
	}
	var out Status
	for key, passed := range raw {
		if k, ok := KindFromKey(key); ok {
			out = out.With(k, passed)
		}
	}
	*s = out
	return nil
}
