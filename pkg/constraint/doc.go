// Package constraint parses constraint declarations and checks values
// against them. A declaration is an ordered token list such as
// ["required", "min:length", "3"]; Resolve turns it into Options, dropping
// numeric constraints whose argument is missing or not a number, and
// Evaluate produces a Status with exactly one entry per resolved option.
//
// Options and Status are always reported in the fixed scan order required,
// min, max, minLength, maxLength, checked, which is also the order used to
// pick the failure reason.
package constraint
