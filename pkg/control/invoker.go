package control

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Runner executes one external command to completion or timeout.
type Runner interface {
	Run(ctx context.Context, path string, args []string, timeout time.Duration) (*ExecutionResult, error)
}

// ExecRunner runs commands as local subprocesses. The argument vector is
// passed to the operating system as discrete tokens; nothing is ever handed
// to a shell, so parameter values containing metacharacters stay literal.
type ExecRunner struct {
	logger Logger
}

// NewExecRunner creates a new subprocess runner.
func NewExecRunner(logger Logger) *ExecRunner {
	if logger == nil {
		logger = &noOpLogger{}
	}

	return &ExecRunner{logger: logger}
}

// Run starts the executable at path with the given argument vector, captures
// stdout and stderr into separate buffers, and waits for exit or for the
// timeout to expire. Both streams are drained concurrently with the wait, so
// a child filling its pipe buffer cannot deadlock against us.
//
// On timeout the process group is killed, TimedOut is set, and whatever
// partial output was captured is still returned. A non-zero exit code is
// reported in the result, not as an error.
func (r *ExecRunner) Run(ctx context.Context, path string, args []string, timeout time.Duration) (*ExecutionResult, error) {
	if timeout <= 0 {
		timeout = DefaultTimeoutSeconds * time.Second
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, path, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Kill the whole process group on cancellation so the tool's own
	// children do not linger.
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return terminate(cmd) }
	cmd.WaitDelay = DrainDelay

	r.logger.Debug("Running %s %v (timeout %s)", path, args, timeout)

	start := time.Now()
	runErr := cmd.Run()

	result := &ExecutionResult{
		Path:     path,
		Args:     args,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result.TimedOut = true
		result.ExitCode = -1

		r.logger.Error("Command %s %v timed out after %s", path, args, timeout)

		return result, nil
	}

	if err := ctx.Err(); err != nil {
		// Caller-initiated cancellation, not a timeout.
		return result, err
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()

			r.logger.Debug("Command %s %v exited with code %d", path, args, result.ExitCode)

			return result, nil
		}

		return result, fmt.Errorf("%w: %s %v: %v", ErrLaunchFailed, path, args, runErr)
	}

	r.logger.Debug("Command %s %v completed in %s", path, args, result.Duration)

	return result, nil
}
