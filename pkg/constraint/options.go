package constraint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/goliatone/go-formcheck/internal/coerce"
)

// Options holds the resolved parameter for every constraint a declaration
// names. Flag constraints (required, checked) carry no parameter. The zero
// value is an empty set.
type Options struct {
	set    [kindCount]bool
	params [kindCount]float64
}

// Resolve builds Options from a declaration. Numeric constraints whose
// argument token is missing or not a finite number are dropped.
func Resolve(decl Declaration) Options {
	var opts Options
	for _, k := range Kinds() {
		if !decl.Has(k) {
			continue
		}
		if !k.Parameterized() {
			opts.set[k] = true
			continue
		}
		raw, ok := decl.Argument(k)
		if !ok {
			continue
		}
		value, ok := coerce.ParseNumber(raw)
		if !ok {
			continue
		}
		opts.set[k] = true
		opts.params[k] = unsignedZero(value)
	}
	return opts
}

// With returns a copy of o with k set. param is ignored for flag kinds.
func (o Options) With(k Kind, param float64) Options {
	if !k.Valid() {
		return o
	}
	o.set[k] = true
	if k.Parameterized() {
		o.params[k] = unsignedZero(param)
	}
	return o
}

// unsignedZero folds -0 into 0 so parameters serialize as JSON numbers
// without a sign.
func unsignedZero(f float64) float64 {
	if f == 0 {
		return 0
	}
	return f
}

// Has reports whether k was resolved.
func (o Options) Has(k Kind) bool {
	return k.Valid() && o.set[k]
}

// Param returns the numeric parameter for k.
func (o Options) Param(k Kind) (float64, bool) {
	if !o.Has(k) || !k.Parameterized() {
		return 0, false
	}
	return o.params[k], true
}

// Kinds returns the resolved kinds in scan order.
func (o Options) Kinds() []Kind {
	var out []Kind
	for k := Kind(0); k < kindCount; k++ {
		if o.set[k] {
			out = append(out, k)
		}
	}
	return out
}

// Len returns the number of resolved constraints.
func (o Options) Len() int {
	n := 0
	for _, set := range o.set {
		if set {
			n++
		}
	}
	return n
}

// Map returns the options keyed by state key: true for flag kinds, the
// numeric parameter otherwise.
func (o Options) Map() map[string]any {
	out := make(map[string]any, o.Len())
	for _, k := range o.Kinds() {
		if k.Parameterized() {
			out[k.Key()] = o.params[k]
			continue
		}
		out[k.Key()] = true
	}
	return out
}

// MarshalJSON writes the options as an object in scan order.
func (o Options) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.Kinds() {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(k.Key()))
		buf.WriteByte(':')
		if k.Parameterized() {
			buf.WriteString(strconv.FormatFloat(unsignedZero(o.params[k]), 'f', -1, 64))
			continue
		}
		buf.WriteString("true")
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the object written by MarshalJSON. Unknown keys are
// ignored; a flag kind set to false is treated as absent.
func (o *Options) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("constraint: decode options: %w", err)
	}
	var out Options
	for key, value := range raw {
		k, ok := KindFromKey(key)
		if !ok {
			continue
		}
		if k.Parameterized() {
			var param float64
			if err := json.Unmarshal(value, &param); err != nil {
				return fmt.Errorf("constraint: decode option %q: %w", key, err)
			}
			out = out.With(k, param)
			continue
		}
		var flag bool
		if err := json.Unmarshal(value, &flag); err != nil {
			return fmt.Errorf("constraint: decode option %q: %w", key, err)
		}
		if flag {
			out = out.With(k, 0)
		}
	}
	*o = out
	return nil
}
