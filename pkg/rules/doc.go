// Package rules loads constraint declarations for whole forms from JSON or
// YAML files. A field may be written as a directive string
// ("required.min:length.5"), a token list ([required, min, 18]) or an object
// carrying rules, a label and reason messages.
package rules
