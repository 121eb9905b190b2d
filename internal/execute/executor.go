package execute

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"itassist/internal/config"
	"itassist/internal/domain"
)

const (
	defaultTimeout        = 30 * time.Second
	defaultMaxOutputBytes = 65536

	// reapGrace is how long we wait for a killed process tree to be
	// reaped before declaring the kill failed.
	reapGrace = 3 * time.Second
)

// ErrTerminateFailed reports that a timed-out command's process tree could
// not be killed and reaped. The child may still be running.
var ErrTerminateFailed = errors.New("failed to terminate timed-out command")

// Executor runs a single shell command under a hard deadline. One
// execution at a time; output capture is capped per stream.
type Executor struct {
	timeout    time.Duration
	maxOutput  int
	workingDir string
	shell      string // overrides the platform shell, used by tests
	logger     *slog.Logger

	mu sync.Mutex
}

func New(cfg config.ExecutorConfig, logger *slog.Logger) *Executor {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxOutput := cfg.MaxOutputBytes
	if maxOutput <= 0 {
		maxOutput = defaultMaxOutputBytes
	}
	return &Executor{
		timeout:    timeout,
		maxOutput:  maxOutput,
		workingDir: cfg.WorkingDir,
		logger:     logger,
	}
}

// Run executes command through the platform shell and always returns a
// result. The error is non-nil only when a timed-out process could not be
// reaped (ErrTerminateFailed); spawn failures and nonzero exits are
// reported in the result, not as errors.
func (e *Executor) Run(ctx context.Context, command string) (domain.ExecutionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	stdout := newCappedBuffer(e.maxOutput)
	stderr := newCappedBuffer(e.maxOutput)

	cmd := e.shellCommand(command)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Dir = e.workingDir

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return domain.ExecutionResult{
			Outcome:  domain.OutcomeSpawnFailed,
			ExitCode: -1,
			Error:    err.Error(),
			Duration: time.Since(start),
		}, nil
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case waitErr := <-done:
		return e.completed(cmd, waitErr, stdout, stderr, time.Since(start)), nil

	case <-timer.C:
	case <-ctx.Done():
	}

	// Deadline expired (or the caller gave up). Kill the process tree and
	// wait for Wait to observe the exit.
	killErr := terminate(cmd)

	result := domain.ExecutionResult{
		Outcome:  domain.OutcomeTimedOut,
		ExitCode: -1,
		Duration: time.Since(start),
	}

	if killErr != nil {
		e.logger.Error("could not kill timed-out command, process may be orphaned",
			"command", command,
			"pid", cmd.Process.Pid,
			"error", killErr)
		result.Stdout = stdout.String()
		result.Stderr = stderr.String()
		result.Error = killErr.Error()
		return result, fmt.Errorf("%w: %v", ErrTerminateFailed, killErr)
	}

	select {
	case <-done:
		// Wait has returned, so the pipe copy goroutines are finished
		// and the buffers are complete.
		result.Stdout = stdout.String()
		result.Stderr = stderr.String()
		return result, nil
	case <-time.After(reapGrace):
		e.logger.Error("timed-out command not reaped, process may be orphaned",
			"command", command,
			"pid", cmd.Process.Pid)
		result.Stdout = stdout.String()
		result.Stderr = stderr.String()
		result.Error = ErrTerminateFailed.Error()
		return result, ErrTerminateFailed
	}
}

func (e *Executor) completed(cmd *exec.Cmd, waitErr error, stdout, stderr *cappedBuffer, elapsed time.Duration) domain.ExecutionResult {
	result := domain.ExecutionResult{
		Outcome:  domain.OutcomeCompleted,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: elapsed,
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		result.ExitCode = 0
	case errors.As(waitErr, &exitErr):
		result.ExitCode = cmd.ProcessState.ExitCode()
	default:
		result.ExitCode = -1
		result.Error = waitErr.Error()
	}
	return result
}

// cappedBuffer accepts all writes but retains at most max bytes. The
// mutex matters on the timeout path, where output is snapshotted while
// the os/exec copy goroutine may still be draining the pipe.
type cappedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	max       int
	truncated bool
}

func newCappedBuffer(max int) *cappedBuffer {
	return &cappedBuffer{max: max}
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if room := c.max - c.buf.Len(); room > 0 {
		if len(p) > room {
			c.buf.Write(p[:room])
			c.truncated = true
		} else {
			c.buf.Write(p)
		}
	} else if len(p) > 0 {
		c.truncated = true
	}
	return len(p), nil
}

func (c *cappedBuffer) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.truncated {
		return c.buf.String() + "\n... (output truncated)"
	}
	return c.buf.String()
}
