// Package validation evaluates constraint declarations against bound values
// and keeps the resulting per-element state.
//
// Evaluate is the pure decision function. It skips elements that hold a
// falsy value and were never evaluated (the dirty gate) unless the caller
// forces evaluation, for example when a form is submitted. Once an
// evaluation runs the element is dirty until Store.Reset removes its state.
//
// Store keeps states keyed by element id and forwards every change to
// Observers, which project it elsewhere (attributes, metrics, logs).
package validation
