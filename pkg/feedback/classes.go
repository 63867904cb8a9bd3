package feedback

import (
	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-formcheck/pkg/validation"
)

// Theme tokens read by Classes and the renderer.
const (
	TokenPristine = "validation.pristine"
	TokenValid    = "validation.valid"
	TokenInvalid  = "validation.invalid"
	TokenBanner   = "validation.banner"
	TokenHint     = "validation.hint"
)

var defaultClasses = map[string]string{
	TokenPristine: "",
	TokenValid:    "is-valid",
	TokenInvalid:  "is-invalid",
	TokenBanner:   "validation-banner",
	TokenHint:     "validation-hint",
}

// Classes returns the CSS classes for a field: pristine when state is nil or
// not dirty, then valid or invalid. Variant tokens override manifest tokens,
// which override the defaults.
func Classes(state *validation.State, selection *theme.Selection) string {
	switch {
	case state == nil || !state.Dirty:
		return themeToken(selection, TokenPristine)
	case state.Valid:
		return themeToken(selection, TokenValid)
	default:
		return themeToken(selection, TokenInvalid)
	}
}

func themeToken(selection *theme.Selection, token string) string {
	if selection != nil && selection.Manifest != nil {
		manifest := selection.Manifest
		if variant, ok := manifest.Variants[selection.Variant]; ok {
			if value, ok := variant.Tokens[token]; ok {
				return value
			}
		}
		if value, ok := manifest.Tokens[token]; ok {
			return value
		}
	}
	return defaultClasses[token]
}
