// Package sandbox turns arbitrary, possibly hostile Python source into a
// bounded, classified result.
//
// The package implements the execution half of the two-stage grading
// pipeline: a ProcessExecutor spawns each submission in an isolated child
// process (own process group, scratch directory, minimal environment,
// rlimits applied by the sandbox-init helper before any submitted code
// runs), supervises it against a wall-clock deadline it enforces itself,
// and captures stdout/stderr into size-capped buffers. The classifier then
// maps the raw outcome onto the closed Status set consumed by graders.
//
// Pipeline ties static validation, limit clamping, execution, and
// classification together behind a single Run call that never returns an
// error and never panics: every failure mode, including host faults,
// arrives as a Result value.
package sandbox
