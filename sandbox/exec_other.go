//go:build !linux

package sandbox

import (
	"os"
	"syscall"
)

// Non-Linux hosts get best-effort supervision: no process-group semantics
// and no rlimit helper, development use only.

func sysProcAttr() *syscall.SysProcAttr {
	return nil
}

func killProcessGroup(pid int) {
	if pid <= 0 {
		return
	}
	if p, err := os.FindProcess(pid); err == nil {
		_ = p.Kill()
	}
}

func signalString(state *os.ProcessState) string {
	if state == nil || state.Exited() {
		return ""
	}
	return state.String()
}
