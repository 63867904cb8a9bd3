// Package feedback renders validation results for people: an error banner
// summarising a form's failing fields, inline field hints, and CSS classes
// taken from a go-theme selection.
package feedback
