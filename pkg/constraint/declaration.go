package constraint

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-formcheck/internal/coerce"
)

// DirectiveName is the attribute name the dotted modifier form is written
// against (x-validation.required.min.5).
const DirectiveName = "x-validation"

// Declaration is the ordered token list attached to an element. Tokens that
// are not constraint names are either numeric arguments or ignored.
type Declaration []string

// NewDeclaration copies tokens into a Declaration, trimming whitespace and
// dropping empty tokens.
func NewDeclaration(tokens ...string) Declaration {
	out := make(Declaration, 0, len(tokens))
	for _, token := range tokens {
		trimmed := strings.TrimSpace(token)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

// ParseDirective parses either the dotted modifier form
// ("x-validation.required.min.5", "required.min.5") or a whitespace/comma
// separated list ("required min 2.5"). The dotted form cannot carry decimal
// arguments; use the list form for those.
func ParseDirective(raw string) Declaration {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Declaration{}
	}

	var parts []string
	if strings.ContainsAny(trimmed, " \t\n\r,") {
		parts = strings.FieldsFunc(trimmed, func(r rune) bool {
			return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == ','
		})
	} else {
		parts = strings.Split(trimmed, ".")
	}

	if len(parts) > 0 && isDirectiveName(parts[0]) {
		parts = parts[1:]
	}
	return NewDeclaration(parts...)
}

func isDirectiveName(token string) bool {
	switch strings.TrimSpace(token) {
	case DirectiveName, "validation", "data-validation":
		return true
	default:
		return false
	}
}

// Tokens returns a copy of the declaration tokens.
func (d Declaration) Tokens() []string {
	return append([]string(nil), d...)
}

// Index returns the position of the first occurrence of token, or -1.
func (d Declaration) Index(token string) int {
	for i, candidate := range d {
		if candidate == token {
			return i
		}
	}
	return -1
}

// Has reports whether the declaration names k.
func (d Declaration) Has(k Kind) bool {
	return d.Index(k.Token()) >= 0
}

// Argument returns the token following the first occurrence of k.
func (d Declaration) Argument(k Kind) (string, bool) {
	idx := d.Index(k.Token())
	if idx < 0 || idx+1 >= len(d) {
		return "", false
	}
	return d[idx+1], true
}

// Unknown lists tokens that are neither constraint names nor numeric
// arguments.
func (d Declaration) Unknown() []string {
	var out []string
	for _, token := range d {
		if _, ok := KindFromToken(token); ok {
			continue
		}
		if _, ok := coerce.ParseNumber(token); ok {
			continue
		}
		out = append(out, token)
	}
	return out
}

// Validate is the opt-in strict check: it fails when the declaration carries
// unrecognised tokens. Resolve never calls it; unknown tokens are ignored
// there.
func (d Declaration) Validate() error {
	unknown := d.Unknown()
	if len(unknown) == 0 {
		return nil
	}
	return fmt.Errorf("constraint: unknown tokens %q", unknown)
}

// String renders the declaration in the dotted modifier form, or as a
// space separated list when a token carries a decimal point.
func (d Declaration) String() string {
	for _, token := range d {
		if strings.Contains(token, ".") {
			return strings.Join(d, " ")
		}
	}
	return strings.Join(d, ".")
}
