package grading

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/gradebox/gradebox/sandbox"
)

// TestCase is one expected stdin/stdout pair supplied by the exercise
// store.
type TestCase struct {
	Name           string `json:"name"`
	Stdin          string `json:"stdin,omitempty"`
	ExpectedStdout string `json:"expected_stdout"`
}

// CheckResult is the grader's verdict for one test case.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Reason string `json:"reason,omitempty"`
	Diff   string `json:"diff,omitempty"`
}

// Checker decides whether an execution result satisfies a test case.
type Checker interface {
	Check(tc TestCase, res sandbox.Result) CheckResult
}

// DiffChecker compares stdout against the expectation with trailing
// whitespace stripped per line, the usual tolerance for student output.
// Anything but a Success status fails the case outright with the status as
// the reason.
type DiffChecker struct{}

func (DiffChecker) Check(tc TestCase, res sandbox.Result) CheckResult {
	out := CheckResult{Name: tc.Name}

	if res.Status != sandbox.StatusSuccess {
		out.Reason = fmt.Sprintf("execution did not succeed: %s", res.Status)
		return out
	}

	got := normalize(res.Stdout)
	want := normalize(tc.ExpectedStdout)
	if got == want {
		out.Passed = true
		return out
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  2,
	})
	if err != nil {
		diff = ""
	}
	out.Reason = "output mismatch"
	out.Diff = diff
	return out
}

// normalize strips trailing whitespace from every line and trailing blank
// lines from the whole stream.
func normalize(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}
