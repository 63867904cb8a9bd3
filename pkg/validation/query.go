package validation

import (
	"encoding/json"
	"strings"

	"github.com/goliatone/go-formcheck/pkg/constraint"
)

// Failing answers "is this field invalid for reason name?" from the
// serialized status text published on an element. name may be a state key
// (minLength) or a declaration token (min:length). Unparsable text and
// constraints the status does not carry report false: a constraint that was
// never declared is not failing, even though a plain "not passed" lookup on
// the status object would say it is.
func Failing(statusJSON, name string) bool {
	trimmed := strings.TrimSpace(statusJSON)
	if trimmed == "" {
		return false
	}
	var status constraint.Status
	if err := json.Unmarshal([]byte(trimmed), &status); err != nil {
		return false
	}
	k, ok := constraint.Lookup(strings.TrimSpace(name))
	if !ok {
		return false
	}
	passed, ok := status.Passed(k)
	return ok && !passed
}
