package sandbox

import (
	"context"
	"os"
)

// SubmissionRequest is the single request shape accepted by the pipeline.
// Timeout and memory values are hints: the pipeline clamps them to the
// configured platform ceilings before execution, so a caller can never
// request more than the deployment allows.
type SubmissionRequest struct {
	SourceCode       string  `json:"source_code"`
	Stdin            string  `json:"stdin,omitempty"`
	TimeoutSeconds   float64 `json:"timeout_seconds,omitempty"`
	MemoryLimitBytes int64   `json:"memory_limit_bytes,omitempty"`
}

// Status is the closed set of terminal outcomes a submission can have.
type Status string

const (
	StatusSuccess        Status = "success"
	StatusRuntimeError   Status = "runtime_error"
	StatusTimeout        Status = "timeout"
	StatusMemoryExceeded Status = "memory_exceeded"
	StatusResourceDenied Status = "resource_denied"
	StatusInternalError  Status = "internal_error"
)

// Result is the only object exposed across the pipeline boundary. Exactly
// one Status applies; Truncated is an additive flag, not a status of its
// own, because truncation is informational rather than a failure of the
// submitted code.
type Result struct {
	Status          Status `json:"status"`
	RuleID          string `json:"rule_id,omitempty"`
	Stdout          string `json:"stdout"`
	Stderr          string `json:"stderr"`
	ExecutionTimeMs int64  `json:"execution_time_ms"`
	Truncated       bool   `json:"truncated,omitempty"`
}

// ExecutionOutcome is the raw process outcome produced by an Executor
// before classification. Owned exclusively by the executor until handed to
// the classifier; never mutated afterwards.
type ExecutionOutcome struct {
	ExitCode        int
	Signal          string
	Stdout          []byte
	Stderr          []byte
	WallTimeMs      int64
	TimedOut        bool
	Cancelled       bool
	StdoutTruncated bool
	StderrTruncated bool
}

// TruncatedOutput reports whether either captured stream hit its ceiling.
func (o ExecutionOutcome) TruncatedOutput() bool {
	return o.StdoutTruncated || o.StderrTruncated
}

// Executor runs validated source in an isolated child process under the
// given limits. The returned error is reserved for host faults (a spawn
// that failed twice, a low-level pipe fault); everything the submitted
// code does wrong is expressed in the outcome instead.
type Executor interface {
	Execute(ctx context.Context, source, stdin string, limits LimitSpec) (ExecutionOutcome, error)
}

// Config carries the sandbox's platform ceilings and process settings.
// Values originate in the config package; the sandbox keeps its own copy so
// it has no dependency on the configuration layer.
type Config struct {
	PythonCommand         string
	HelperPath            string
	ScratchDir            string
	DefaultTimeoutSeconds float64
	MaxTimeoutSeconds     float64
	DefaultMemoryBytes    int64
	MaxMemoryBytes        int64
	MaxOutputBytes        int64
	MaxStdinBytes         int64
	MaxProcs              int64
}

// FileSystem is the executor's seam for scratch-directory operations,
// mockable in tests.
type FileSystem interface {
	MkdirTemp(dir, pattern string) (string, error)
	WriteFile(filename string, data []byte, perm os.FileMode) error
	RemoveAll(path string) error
}

// RealFileSystem implements FileSystem with the host filesystem.
type RealFileSystem struct{}

func (RealFileSystem) MkdirTemp(dir, pattern string) (string, error) {
	return os.MkdirTemp(dir, pattern)
}

func (RealFileSystem) WriteFile(filename string, data []byte, perm os.FileMode) error {
	return os.WriteFile(filename, data, perm)
}

func (RealFileSystem) RemoveAll(path string) error {
	return os.RemoveAll(path)
}
