// Package prompt fills a form from the terminal. A Session asks for each
// field through a PromptDriver (survey by default) and validates answers
// live through a binding.Binder.
package prompt
