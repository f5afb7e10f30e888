//go:build linux

package sandbox

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSandboxHelper compiles the real cmd/sandbox-init binary into a temp
// dir so the full rlimit enforcement chain runs, not just the classifier's
// view of it.
func buildSandboxHelper(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go toolchain not available on PATH")
	}

	helperPath := filepath.Join(t.TempDir(), "sandbox-init")
	cmd := exec.Command("go", "build", "-o", helperPath, "github.com/gradebox/gradebox/cmd/sandbox-init")
	// go-tree-sitter (pulled in via the validator package) is a cgo
	// library, so the helper cannot be built with cgo disabled.
	cmd.Env = append(os.Environ(), "CGO_ENABLED=1")
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build sandbox-init: %v\n%s", err, output)
	}
	return helperPath
}

func TestExecuteWithHelper(t *testing.T) {
	requirePython(t)
	helperPath := buildSandboxHelper(t)

	cfg := testConfig(t)
	cfg.HelperPath = helperPath
	e := newTestExecutor(t, cfg)

	limits := testLimits(10 * time.Second)
	limits.MemoryBytes = 128 * 1024 * 1024
	limits.MaxFileBytes = 64 * 1024

	t.Run("SuccessUnderLimits", func(t *testing.T) {
		outcome, err := e.Execute(context.Background(), "print(2 + 2)\n", "", limits)
		require.NoError(t, err)
		assert.Equal(t, 0, outcome.ExitCode)
		assert.Equal(t, "4\n", string(outcome.Stdout))

		res := ClassifyOutcome(outcome)
		assert.Equal(t, StatusSuccess, res.Status)
	})

	t.Run("MemoryCeilingEnforced", func(t *testing.T) {
		// Far over the 128 MiB address-space limit; RLIMIT_AS refuses the
		// allocation before the watchdog is anywhere near firing.
		source := "x = ' ' * (512 * 1024 * 1024)\nprint(len(x))\n"
		outcome, err := e.Execute(context.Background(), source, "", limits)
		require.NoError(t, err)
		assert.False(t, outcome.TimedOut)
		assert.NotEqual(t, 0, outcome.ExitCode)

		res := ClassifyOutcome(outcome)
		assert.Equal(t, StatusMemoryExceeded, res.Status)
	})

	t.Run("HelperScrubsLimitVariables", func(t *testing.T) {
		// The GRADEBOX_LIMIT_* variables drive the helper and must never
		// leak into the submission's environment.
		source := "import json\nprint(json.dumps(dict(__import__('os').environ)))\n"
		outcome, err := e.Execute(context.Background(), source, "", limits)
		require.NoError(t, err)
		assert.Equal(t, 0, outcome.ExitCode)
		assert.NotContains(t, string(outcome.Stdout), "GRADEBOX_LIMIT_")
	})
}
