// Package metrics exposes validation activity as Prometheus counters. The
// Observer plugs into a validation.Store next to any other observer.
package metrics
