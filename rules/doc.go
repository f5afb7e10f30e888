// Package rules defines the denylist applied to submitted Python source.
//
// A rules.Set is an immutable value describing which module imports and
// builtin calls a submission may not use. The default set blocks process
// control, networking, filesystem access, and dynamic-code escapes. Sets
// are extended per deployment via configuration or a YAML rules file and
// are passed into the validator at construction time; nothing in this
// package holds global state.
package rules
