package sandbox

import (
	"fmt"
	"math"
	"time"
)

// Limit environment variables consumed by the sandbox-init helper. The
// helper applies them as rlimits before exec'ing the interpreter, so every
// ceiling is in place before one byte of submitted code runs.
const (
	EnvLimitCPUSeconds  = "GRADEBOX_LIMIT_CPU_SECONDS"
	EnvLimitMemoryBytes = "GRADEBOX_LIMIT_MEMORY_BYTES"
	EnvLimitFileBytes   = "GRADEBOX_LIMIT_FILE_BYTES"
	EnvLimitProcs       = "GRADEBOX_LIMIT_PROCS"
)

// LimitSpec is the fully-clamped set of bounds applied to one execution.
// It is pure data: building one has no side effects.
type LimitSpec struct {
	// WallTimeout is enforced by the supervising executor itself,
	// independent of any cooperation from the child.
	WallTimeout time.Duration

	// CPUSeconds backs RLIMIT_CPU in the child. Derived from the wall
	// budget so a spinning child dies even if the watchdog is delayed.
	CPUSeconds int64

	// MemoryBytes backs RLIMIT_AS.
	MemoryBytes int64

	// MaxFileBytes backs RLIMIT_FSIZE for anything the child writes to disk.
	MaxFileBytes int64

	// MaxProcs backs RLIMIT_NPROC, bounding fork bombs. NPROC counts every
	// process of the sandbox UID, not just this execution's tree, so the
	// configured ceiling must leave headroom for the expected number of
	// concurrent submissions or an innocent spawn can fail.
	MaxProcs int64

	// MaxOutputBytes caps each captured stream in the parent. Soft: output
	// past the ceiling is discarded, not fatal.
	MaxOutputBytes int64

	// MaxStdinBytes bounds how much of the request's stdin is fed in.
	MaxStdinBytes int64
}

// BuildLimits translates caller-supplied hints into enforceable bounds,
// clamped to the configured platform ceilings. The caller's request is
// never authoritative over the ceiling.
func BuildLimits(req SubmissionRequest, cfg *Config) LimitSpec {
	timeout := req.TimeoutSeconds
	if timeout <= 0 {
		timeout = cfg.DefaultTimeoutSeconds
	}
	if cfg.MaxTimeoutSeconds > 0 && timeout > cfg.MaxTimeoutSeconds {
		timeout = cfg.MaxTimeoutSeconds
	}

	memory := req.MemoryLimitBytes
	if memory <= 0 {
		memory = cfg.DefaultMemoryBytes
	}
	if cfg.MaxMemoryBytes > 0 && memory > cfg.MaxMemoryBytes {
		memory = cfg.MaxMemoryBytes
	}

	return LimitSpec{
		WallTimeout:    time.Duration(timeout * float64(time.Second)),
		CPUSeconds:     int64(math.Ceil(timeout)),
		MemoryBytes:    memory,
		MaxFileBytes:   cfg.MaxOutputBytes,
		MaxProcs:       cfg.MaxProcs,
		MaxOutputBytes: cfg.MaxOutputBytes,
		MaxStdinBytes:  cfg.MaxStdinBytes,
	}
}

// Env encodes the limits as environment variables for the helper binary.
func (l LimitSpec) Env() []string {
	return []string{
		fmt.Sprintf("%s=%d", EnvLimitCPUSeconds, l.CPUSeconds),
		fmt.Sprintf("%s=%d", EnvLimitMemoryBytes, l.MemoryBytes),
		fmt.Sprintf("%s=%d", EnvLimitFileBytes, l.MaxFileBytes),
		fmt.Sprintf("%s=%d", EnvLimitProcs, l.MaxProcs),
	}
}
