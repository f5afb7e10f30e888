package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gradebox/gradebox/sandbox"
)

func TestDiffChecker(t *testing.T) {
	checker := DiffChecker{}

	t.Run("ExactMatchPasses", func(t *testing.T) {
		res := checker.Check(
			TestCase{Name: "hello", ExpectedStdout: "hello\n"},
			sandbox.Result{Status: sandbox.StatusSuccess, Stdout: "hello\n"},
		)
		assert.True(t, res.Passed)
		assert.Empty(t, res.Diff)
	})

	t.Run("TrailingWhitespaceTolerated", func(t *testing.T) {
		res := checker.Check(
			TestCase{Name: "ws", ExpectedStdout: "a\nb\n"},
			sandbox.Result{Status: sandbox.StatusSuccess, Stdout: "a  \nb\t\n\n"},
		)
		assert.True(t, res.Passed)
	})

	t.Run("MismatchCarriesUnifiedDiff", func(t *testing.T) {
		res := checker.Check(
			TestCase{Name: "sum", ExpectedStdout: "42\n"},
			sandbox.Result{Status: sandbox.StatusSuccess, Stdout: "41\n"},
		)
		assert.False(t, res.Passed)
		assert.Equal(t, "output mismatch", res.Reason)
		assert.Contains(t, res.Diff, "-42")
		assert.Contains(t, res.Diff, "+41")
	})

	t.Run("NonSuccessStatusFailsWithReason", func(t *testing.T) {
		for _, status := range []sandbox.Status{
			sandbox.StatusTimeout,
			sandbox.StatusRuntimeError,
			sandbox.StatusMemoryExceeded,
			sandbox.StatusResourceDenied,
			sandbox.StatusInternalError,
		} {
			res := checker.Check(
				TestCase{Name: "x", ExpectedStdout: "1\n"},
				sandbox.Result{Status: status},
			)
			assert.False(t, res.Passed)
			assert.Contains(t, res.Reason, string(status))
		}
	})

	t.Run("InteriorWhitespaceStillMatters", func(t *testing.T) {
		res := checker.Check(
			TestCase{Name: "strict", ExpectedStdout: "a b\n"},
			sandbox.Result{Status: sandbox.StatusSuccess, Stdout: "ab\n"},
		)
		assert.False(t, res.Passed)
	})
}
