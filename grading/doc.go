// Package grading defines the boundary contract between the sandbox core
// and the grading layer.
//
// The core hands a grader one Result per test case; the grader decides
// pass/fail. Only the contract lives here, plus DiffChecker, a reference
// implementation that compares expected stdout line-by-line and attaches a
// unified diff on mismatch. Mastery arithmetic, exercise storage, and the
// tutoring dialogue consume these types elsewhere.
package grading
