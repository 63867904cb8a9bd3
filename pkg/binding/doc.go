// Package binding connects value sources to the validation store. A Binder
// subscribes each element's Source, evaluates every delivered value through
// the dirty gate, and relays two broadcast signals addressed to a scope:
// validate (force evaluation, e.g. on submit) and reset (clear state).
package binding
