//go:build linux

package main

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/gradebox/gradebox/sandbox"
)

// sandbox-init applies the resource limits handed to it through GRADEBOX_LIMIT_*
// environment variables, scrubs its environment, and replaces itself with the
// interpreter argv. Running in the child after fork and before exec means every
// rlimit is in force before the first byte of submitted code executes.
func main() {
	if err := run(os.Args[1:]); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "sandbox-init:", err.Error())
		os.Exit(125)
	}
}

func run(argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("no command given")
	}

	if err := applyLimits(); err != nil {
		return err
	}

	cmdPath, err := exec.LookPath(argv[0])
	if err != nil {
		return fmt.Errorf("resolve command: %w", err)
	}

	env := scrubEnv()
	return unix.Exec(cmdPath, argv, env)
}

// applyLimits sets one rlimit per GRADEBOX_LIMIT_* variable. Core dumps are
// always disabled: a crashing submission must not leave gigabytes in the
// scratch directory.
func applyLimits() error {
	if err := unix.Setrlimit(unix.RLIMIT_CORE, &unix.Rlimit{Cur: 0, Max: 0}); err != nil {
		return fmt.Errorf("set rlimit core: %w", err)
	}

	if v, ok, err := limitFromEnv(sandbox.EnvLimitCPUSeconds); err != nil {
		return err
	} else if ok {
		if err := unix.Setrlimit(unix.RLIMIT_CPU, &unix.Rlimit{Cur: v, Max: v}); err != nil {
			return fmt.Errorf("set rlimit cpu: %w", err)
		}
	}

	if v, ok, err := limitFromEnv(sandbox.EnvLimitMemoryBytes); err != nil {
		return err
	} else if ok {
		if err := unix.Setrlimit(unix.RLIMIT_AS, &unix.Rlimit{Cur: v, Max: v}); err != nil {
			return fmt.Errorf("set rlimit as: %w", err)
		}
	}

	if v, ok, err := limitFromEnv(sandbox.EnvLimitFileBytes); err != nil {
		return err
	} else if ok {
		if err := unix.Setrlimit(unix.RLIMIT_FSIZE, &unix.Rlimit{Cur: v, Max: v}); err != nil {
			return fmt.Errorf("set rlimit fsize: %w", err)
		}
	}

	// RLIMIT_NPROC is accounted per UID, so this ceiling is shared by every
	// concurrent submission running as the sandbox user.
	if v, ok, err := limitFromEnv(sandbox.EnvLimitProcs); err != nil {
		return err
	} else if ok {
		if err := unix.Setrlimit(unix.RLIMIT_NPROC, &unix.Rlimit{Cur: v, Max: v}); err != nil {
			return fmt.Errorf("set rlimit nproc: %w", err)
		}
	}

	return nil
}

// limitFromEnv reads one limit variable. Absent or non-positive values mean
// the limit is not applied; a malformed value is an error rather than a
// silently unlimited sandbox.
func limitFromEnv(name string) (uint64, bool, error) {
	raw, present := os.LookupEnv(name)
	if !present {
		return 0, false, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse %s: %w", name, err)
	}
	if v <= 0 {
		return 0, false, nil
	}
	return uint64(v), true, nil
}

// scrubEnv builds the interpreter's entire environment, dropping the
// GRADEBOX_LIMIT_* variables and anything else this process inherited beyond
// the allowlist.
func scrubEnv() []string {
	keep := []string{"PATH", "LANG", "PYTHONDONTWRITEBYTECODE", "PYTHONUNBUFFERED"}
	env := make([]string, 0, len(keep))
	for _, name := range keep {
		if v, ok := os.LookupEnv(name); ok {
			env = append(env, name+"="+v)
		}
	}
	return env
}
