package sandbox

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gradebox/gradebox/validator"
)

// truncationMarker is appended to a stream that hit its size ceiling so a
// human reading the result knows output was cut, not merely short.
const truncationMarker = "\n... [output truncated]"

// pythonMemoryError is how CPython reports an allocation refused by
// RLIMIT_AS: the process exits 1 with a MemoryError traceback rather than
// being signaled.
const pythonMemoryError = "MemoryError"

// The sandbox-init helper exits 125 with this stderr prefix when it fails
// before reaching the interpreter. That is a host fault, not a submission
// fault.
const (
	helperFailureExitCode = 125
	helperFailurePrefix   = "sandbox-init:"
)

// ClassifyVerdict maps a validation rejection onto a Result. The first
// violation supplies the rule identifier; callers wanting the full list
// read it from the verdict itself. The rendered violations go to Stderr so
// a rejected submission still yields a complete, readable result.
func ClassifyVerdict(verdict validator.Verdict) Result {
	if verdict.Allowed {
		// A classifier fed an allowed verdict is a programming error in the
		// caller; surface it as a host fault, not a submission fault.
		return Result{Status: StatusInternalError}
	}
	if len(verdict.Violations) == 0 {
		return Result{Status: StatusInternalError}
	}

	first := verdict.Violations[0]
	if first.RuleID == validator.RuleInternalError {
		return Result{Status: StatusInternalError}
	}
	return Result{
		Status: StatusResourceDenied,
		RuleID: first.RuleID,
		Stderr: RenderViolations(verdict.Violations),
	}
}

// ClassifyOutcome maps a raw process outcome onto the closed Status set.
// The mapping is total: every outcome shape lands on exactly one status.
func ClassifyOutcome(outcome ExecutionOutcome) Result {
	res := Result{
		Stdout:          renderStream(outcome.Stdout, outcome.StdoutTruncated),
		Stderr:          renderStream(outcome.Stderr, outcome.StderrTruncated),
		ExecutionTimeMs: outcome.WallTimeMs,
		Truncated:       outcome.TruncatedOutput(),
	}

	switch {
	case outcome.TimedOut:
		res.Status = StatusTimeout
	case outcome.Cancelled:
		// The caller abandoned the execution; the submission hit no
		// ceiling, so no grading status applies.
		res.Status = StatusInternalError
	case outcome.Signal == "SIGKILL":
		// Killed by the kernel without the watchdog firing: the memory
		// ceiling, not the clock.
		res.Status = StatusMemoryExceeded
	case outcome.Signal == "SIGXCPU":
		// The CPU rlimit is a time bound; report it as one.
		res.Status = StatusTimeout
	case outcome.ExitCode == helperFailureExitCode &&
		bytes.HasPrefix(outcome.Stderr, []byte(helperFailurePrefix)):
		res.Status = StatusInternalError
	case outcome.ExitCode != 0 && stderrReportsMemoryError(outcome.Stderr):
		res.Status = StatusMemoryExceeded
	case outcome.ExitCode != 0:
		res.Status = StatusRuntimeError
	default:
		res.Status = StatusSuccess
	}
	return res
}

// stderrReportsMemoryError checks whether the traceback's final line names
// MemoryError as the raised exception. Anchoring on the last line keeps a
// submission that merely mentions the string in some other exception's
// message from being scored as a memory kill.
func stderrReportsMemoryError(stderr []byte) bool {
	trimmed := bytes.TrimRight(stderr, " \t\r\n")
	if len(trimmed) == 0 {
		return false
	}
	lines := bytes.Split(trimmed, []byte("\n"))
	last := bytes.TrimSpace(lines[len(lines)-1])
	return bytes.HasPrefix(last, []byte(pythonMemoryError))
}

// RenderViolations formats violations one per line for display.
func RenderViolations(violations []validator.Violation) string {
	var b strings.Builder
	for _, v := range violations {
		fmt.Fprintf(&b, "line %d: %s [%s]\n", v.Line, v.Message, v.RuleID)
	}
	return b.String()
}

func renderStream(data []byte, truncated bool) string {
	if !truncated {
		return string(data)
	}
	return string(data) + truncationMarker
}
