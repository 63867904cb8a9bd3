package feedback

import (
	"github.com/goliatone/go-formcheck/pkg/constraint"
)

// Messages maps failure reasons (constraint keys such as "minLength") to
// message text. Text may reference {{ param }}, {{ label }} and
// {{ field }}.
type Messages map[string]string

// DefaultMessages returns the built-in English messages.
func DefaultMessages() Messages {
	return Messages{
		constraint.KeyRequired:  "This field is required.",
		constraint.KeyChecked:   "This box must be checked.",
		constraint.KeyMin:       "Must be at least {{ param }}.",
		constraint.KeyMax:       "Must be at most {{ param }}.",
		constraint.KeyMinLength: "Must be at least {{ param }} characters long.",
		constraint.KeyMaxLength: "Must be at most {{ param }} characters long.",
	}
}

// Merge returns a copy of m overlaid with other.
func (m Messages) Merge(other Messages) Messages {
	out := make(Messages, len(m)+len(other))
	for reason, text := range m {
		out[reason] = text
	}
	for reason, text := range other {
		if text != "" {
			out[reason] = text
		}
	}
	return out
}
