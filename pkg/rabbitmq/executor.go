package rabbitmq

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"brokerctl/pkg/control"
)

// Scope carries per-invocation context: the vhost the operation applies to
// and the identity recorded in the audit trail.
type Scope struct {
	VHost    string
	User     string
	ClientIP string
}

// Executor validates, builds, and runs control-tool commands, producing
// Execution records. It is the single path through which both rabbitmqctl
// and rabbitmq-plugins invocations flow.
type Executor struct {
	locator *control.Locator
	runner  control.Runner
	opts    control.CommonOptions
	meta    *MetadataService
	audit   *AuditService
	logger  Logger
}

// NewExecutor creates a new command executor. audit may be nil, in which
// case executions are not recorded.
func NewExecutor(locator *control.Locator, runner control.Runner, opts control.CommonOptions, meta *MetadataService, audit *AuditService, logger Logger) *Executor {
	if logger == nil {
		logger = &noOpLogger{}
	}

	if meta == nil {
		meta = NewMetadataService(logger)
	}

	return &Executor{
		locator: locator,
		runner:  runner,
		opts:    opts,
		meta:    meta,
		audit:   audit,
		logger:  logger,
	}
}

// Metadata exposes the executor's verb tables.
func (e *Executor) Metadata() *MetadataService {
	return e.meta
}

// Run executes one command synchronously and returns the complete result.
// A non-zero exit code or a timeout is reported in the Execution, not as an
// error; only precondition failures (unknown verb, bad arguments, tool not
// found, launch failure) produce errors.
func (e *Executor) Run(ctx context.Context, tool Tool, spec control.CommandSpec, scope Scope) (*Execution, error) {
	meta, err := e.meta.Command(tool, spec.Verb)
	if err != nil {
		return nil, err
	}

	if err := e.meta.Validate(tool, spec.Verb, spec.Positional); err != nil {
		return nil, err
	}

	if dangerous, warning := e.meta.ClassifyDanger(tool, spec.Verb, spec.Positional); dangerous {
		e.logger.Info("WARNING: %s %s is dangerous: %s", tool, spec.Verb, warning)
	}

	opts := e.opts
	if scope.VHost != "" {
		opts.VHost = scope.VHost
	}

	if opts.TimeoutSeconds == nil && meta.Timeout > 0 {
		opts.TimeoutSeconds = control.Timeout(meta.Timeout)
	}

	argv, err := control.Build(opts, spec)
	if err != nil {
		return nil, err
	}

	path, err := e.locator.Resolve(string(tool))
	if err != nil {
		return nil, err
	}

	// The subprocess deadline sits above the tool-side timeout so the tool
	// can report its own timeout before we kill it.
	seconds := control.DefaultTimeoutSeconds
	if opts.TimeoutSeconds != nil {
		seconds = *opts.TimeoutSeconds
	}

	deadline := time.Duration(seconds+InvokerGraceSeconds) * time.Second

	e.logger.Info("Executing %s %s with args %v", tool, spec.Verb, spec.Positional)

	start := time.Now()

	result, err := e.runner.Run(ctx, path, argv, deadline)
	if err != nil {
		return nil, err
	}

	execution := &Execution{
		ExecutionID: uuid.NewString(),
		Tool:        tool,
		Verb:        spec.Verb,
		Arguments:   spec.Positional,
		Timestamp:   start.Unix(),
		Output:      result.Stdout,
		Stderr:      result.Stderr,
		ExitCode:    result.ExitCode,
		Success:     result.Success(),
		TimedOut:    result.TimedOut,
		Duration:    result.Duration.Milliseconds(),
		User:        scope.User,
	}

	if e.audit != nil {
		if auditErr := e.audit.LogExecution(ctx, execution, scope.User, scope.ClientIP); auditErr != nil {
			e.logger.Error("Failed to record execution %s: %v", execution.ExecutionID, auditErr)
		}
	}

	e.logger.Info("%s %s completed: success=%t, exitCode=%d", tool, spec.Verb, execution.Success, execution.ExitCode)

	return execution, nil
}

// RunStreaming executes a command asynchronously, streaming output lines on
// the returned channel. The channel is closed when execution finishes.
func (e *Executor) RunStreaming(ctx context.Context, tool Tool, spec control.CommandSpec, scope Scope) (*StreamingExecution, error) {
	if _, err := e.meta.Command(tool, spec.Verb); err != nil {
		return nil, err
	}

	if err := e.meta.Validate(tool, spec.Verb, spec.Positional); err != nil {
		return nil, err
	}

	streaming := &StreamingExecution{
		ExecutionID: uuid.NewString(),
		Tool:        tool,
		Verb:        spec.Verb,
		Arguments:   spec.Positional,
		Status:      StatusPending,
		Output:      make(chan string, OutputChannelBufferSize),
		StartTime:   time.Now(),
	}

	go e.streamAsync(ctx, streaming, tool, spec, scope)

	return streaming, nil
}

func (e *Executor) streamAsync(ctx context.Context, streaming *StreamingExecution, tool Tool, spec control.CommandSpec, scope Scope) {
	defer close(streaming.Output)

	streaming.Status = StatusRunning
	streaming.Output <- fmt.Sprintf("Starting execution of %s %s...", tool, spec.Verb)

	execution, err := e.Run(ctx, tool, spec, scope)

	endTime := time.Now()
	streaming.EndTime = &endTime

	if err != nil {
		if ctx.Err() != nil {
			streaming.Status = StatusCancelled
			streaming.Error = "execution cancelled"
		} else {
			streaming.Status = StatusFailed
			streaming.Error = err.Error()
		}

		streaming.Output <- "Error: " + streaming.Error

		return
	}

	for _, line := range strings.Split(execution.Output, "\n") {
		if line == "" {
			continue
		}

		select {
		case <-ctx.Done():
			streaming.Status = StatusCancelled
			streaming.Error = "execution cancelled during output streaming"

			return
		case streaming.Output <- line:
		}
	}

	streaming.ExitCode = execution.ExitCode
	streaming.Success = execution.Success

	switch {
	case execution.TimedOut:
		streaming.Status = StatusTimeout
		streaming.Error = "command timed out"
		streaming.Output <- "Command timed out"
	case execution.Success:
		streaming.Status = StatusCompleted
		streaming.Output <- "Command completed successfully"
	default:
		streaming.Status = StatusFailed
		streaming.Error = fmt.Sprintf("command exited with code %d", execution.ExitCode)
		streaming.Output <- streaming.Error
	}
}
