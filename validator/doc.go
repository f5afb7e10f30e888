// Package validator performs static pre-execution validation of submitted
// Python source.
//
// The validator parses the source with tree-sitter's Python grammar and walks
// the tree checking every import, call target, and attribute access against a
// rules.Set. It accumulates every violation in a single pass so a caller sees
// all offending lines in one round-trip. Validation is a pure function of the
// source text: no side effects, deterministic, and safe for concurrent use.
// It never panics outward; internal walk faults surface as a rejecting
// verdict instead.
package validator
