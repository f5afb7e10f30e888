package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/shlex"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	sourceFileName = "main.py"
	sourceFilePerm = 0o600

	// drainGrace bounds how long the supervisor waits for the output
	// drains to hit EOF after the process group has been killed.
	drainGrace = 500 * time.Millisecond
)

// spawnError marks failures that happened before the child ran any
// submitted code. These reflect host contention, not submission behavior,
// and are the only failures retried.
type spawnError struct {
	err error
}

func (e *spawnError) Error() string { return e.err.Error() }
func (e *spawnError) Unwrap() error { return e.err }

// ProcessExecutor runs each submission in a freshly spawned child process:
// its own process group, a scratch directory destroyed on every exit path,
// a minimal non-inherited environment, and rlimits applied by the
// sandbox-init helper before the interpreter starts.
type ProcessExecutor struct {
	logger      *zap.Logger
	cfg         *Config
	interpreter []string
	fs          FileSystem
}

// ProcessExecutorOption configures a ProcessExecutor.
type ProcessExecutorOption func(*ProcessExecutor)

// WithFileSystem replaces the scratch-directory filesystem, for tests.
func WithFileSystem(fs FileSystem) ProcessExecutorOption {
	return func(e *ProcessExecutor) {
		e.fs = fs
	}
}

// NewProcessExecutor creates an executor from the sandbox configuration.
// The interpreter command is parsed shell-style, so config can carry flags
// such as "python3 -I -B".
func NewProcessExecutor(logger *zap.Logger, cfg *Config, opts ...ProcessExecutorOption) (*ProcessExecutor, error) {
	interpreter, err := shlex.Split(cfg.PythonCommand)
	if err != nil {
		return nil, fmt.Errorf("parse python command: %w", err)
	}
	if len(interpreter) == 0 {
		return nil, fmt.Errorf("python command is empty")
	}

	e := &ProcessExecutor{
		logger:      logger,
		cfg:         cfg,
		interpreter: interpreter,
		fs:          RealFileSystem{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Execute runs source under the given limits. A spawn failure is retried
// once with a fresh scratch directory; no other outcome is retried, because
// a timeout or runtime error for a given submission is deterministic enough
// that a retry would only amplify load without changing grading semantics.
func (e *ProcessExecutor) Execute(ctx context.Context, source, stdin string, limits LimitSpec) (ExecutionOutcome, error) {
	outcome, err := e.runOnce(ctx, source, stdin, limits)
	var spawnErr *spawnError
	if err != nil && errors.As(err, &spawnErr) {
		e.logger.Warn("spawn failed, retrying with fresh scratch dir", zap.Error(err))
		outcome, err = e.runOnce(ctx, source, stdin, limits)
	}
	return outcome, err
}

func (e *ProcessExecutor) runOnce(ctx context.Context, source, stdin string, limits LimitSpec) (ExecutionOutcome, error) {
	execID := uuid.NewString()

	scratch, err := e.fs.MkdirTemp(e.cfg.ScratchDir, "gradebox-"+execID[:8]+"-*")
	if err != nil {
		return ExecutionOutcome{}, &spawnError{fmt.Errorf("create scratch dir: %w", err)}
	}
	defer func() {
		if rmErr := e.fs.RemoveAll(scratch); rmErr != nil {
			e.logger.Warn("scratch dir cleanup failed",
				zap.String("dir", scratch), zap.Error(rmErr))
		}
	}()

	sourcePath := filepath.Join(scratch, sourceFileName)
	if err := e.fs.WriteFile(sourcePath, []byte(source), sourceFilePerm); err != nil {
		return ExecutionOutcome{}, &spawnError{fmt.Errorf("write source file: %w", err)}
	}

	cmd := e.buildCommand(scratch, limits)

	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return ExecutionOutcome{}, &spawnError{fmt.Errorf("stdin pipe: %w", err)}
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		closeAll(stdinR, stdinW)
		return ExecutionOutcome{}, &spawnError{fmt.Errorf("stdout pipe: %w", err)}
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		closeAll(stdinR, stdinW, stdoutR, stdoutW)
		return ExecutionOutcome{}, &spawnError{fmt.Errorf("stderr pipe: %w", err)}
	}

	cmd.Stdin = stdinR
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	start := time.Now()
	if err := cmd.Start(); err != nil {
		closeAll(stdinR, stdinW, stdoutR, stdoutW, stderrR, stderrW)
		return ExecutionOutcome{}, &spawnError{fmt.Errorf("start child: %w", err)}
	}

	// The child holds its own ends now.
	closeAll(stdinR, stdoutW, stderrW)

	stdoutBuf := newCappedBuffer(limits.MaxOutputBytes)
	stderrBuf := newCappedBuffer(limits.MaxOutputBytes)

	// Drain both streams for the child's entire lifetime. A single blocking
	// read after exit would deadlock against a child blocked on a full pipe.
	var drains sync.WaitGroup
	drains.Add(2)
	go func() {
		defer drains.Done()
		_, _ = io.Copy(stdoutBuf, stdoutR)
	}()
	go func() {
		defer drains.Done()
		_, _ = io.Copy(stderrBuf, stderrR)
	}()

	// Feed stdin without ever stalling the supervisor: a child that never
	// drains it leaves this goroutine blocked until the group kill breaks
	// the pipe.
	go func() {
		in := stdin
		if limits.MaxStdinBytes > 0 && int64(len(in)) > limits.MaxStdinBytes {
			in = in[:limits.MaxStdinBytes]
		}
		if in != "" {
			_, _ = stdinW.WriteString(in)
		}
		_ = stdinW.Close()
	}()

	var timedOut, cancelled atomic.Bool
	done := make(chan struct{})
	go func() {
		var wallTimer <-chan time.Time
		if limits.WallTimeout > 0 {
			t := time.NewTimer(limits.WallTimeout)
			defer t.Stop()
			wallTimer = t.C
		}
		select {
		case <-ctx.Done():
			// Caller gave up. Recorded separately from a timeout so the
			// classifier never mistakes this kill for a ceiling breach.
			cancelled.Store(true)
			killProcessGroup(cmd.Process.Pid)
		case <-wallTimer:
			timedOut.Store(true)
			killProcessGroup(cmd.Process.Pid)
		case <-done:
		}
	}()

	waitErr := cmd.Wait()
	close(done)

	// Kill the whole group again on every path: a descendant the submitted
	// code spawned must not survive the call.
	killProcessGroup(cmd.Process.Pid)

	if !waitWithGrace(&drains, drainGrace) {
		// A straggler still holds a pipe end; force the readers loose.
		closeAll(stdoutR, stderrR)
		drains.Wait()
	} else {
		closeAll(stdoutR, stderrR)
	}

	outcome := ExecutionOutcome{
		ExitCode:        exitCodeFrom(waitErr, cmd.ProcessState),
		Signal:          signalString(cmd.ProcessState),
		Stdout:          stdoutBuf.Bytes(),
		Stderr:          stderrBuf.Bytes(),
		WallTimeMs:      time.Since(start).Milliseconds(),
		TimedOut:        timedOut.Load(),
		Cancelled:       cancelled.Load(),
		StdoutTruncated: stdoutBuf.Truncated(),
		StderrTruncated: stderrBuf.Truncated(),
	}

	e.logger.Debug("execution finished",
		zap.String("exec_id", execID),
		zap.Int("exit_code", outcome.ExitCode),
		zap.String("signal", outcome.Signal),
		zap.Bool("timed_out", outcome.TimedOut),
		zap.Bool("cancelled", outcome.Cancelled),
		zap.Int64("wall_time_ms", outcome.WallTimeMs))

	return outcome, nil
}

// buildCommand assembles the child argv. With a helper configured the chain
// is helper → rlimits → exec interpreter; without one (development mode)
// the interpreter is spawned directly and only the watchdog enforces limits.
func (e *ProcessExecutor) buildCommand(scratch string, limits LimitSpec) *exec.Cmd {
	argv := make([]string, 0, len(e.interpreter)+2)
	env := minimalEnv()

	if e.cfg.HelperPath != "" {
		argv = append(argv, e.cfg.HelperPath)
		env = append(env, limits.Env()...)
	}
	argv = append(argv, e.interpreter...)
	argv = append(argv, sourceFileName)

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = scratch
	cmd.Env = env
	cmd.SysProcAttr = sysProcAttr()
	return cmd
}

// minimalEnv is the child's entire environment: no ambient credentials, no
// caller environment inheritance.
func minimalEnv() []string {
	return []string{
		"PATH=/usr/local/bin:/usr/bin:/bin",
		"LANG=C.UTF-8",
		"PYTHONDONTWRITEBYTECODE=1",
		"PYTHONUNBUFFERED=1",
	}
}

func exitCodeFrom(waitErr error, state *os.ProcessState) int {
	if state != nil {
		return state.ExitCode()
	}
	if waitErr == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func waitWithGrace(wg *sync.WaitGroup, grace time.Duration) bool {
	ch := make(chan struct{})
	go func() {
		wg.Wait()
		close(ch)
	}()
	select {
	case <-ch:
		return true
	case <-time.After(grace):
		return false
	}
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
