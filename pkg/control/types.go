package control

import "time"

// Logger interface for logging
type Logger interface {
	Info(format string, args ...interface{})
	Debug(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// noOpLogger is a no-operation logger implementation
type noOpLogger struct{}

func (l *noOpLogger) Info(format string, args ...interface{})  {}
func (l *noOpLogger) Debug(format string, args ...interface{}) {}
func (l *noOpLogger) Error(format string, args ...interface{}) {}

// CommonOptions holds the cross-cutting parameters accepted by nearly every
// control-tool operation. A nil TimeoutSeconds means "use DefaultTimeoutSeconds";
// a non-nil value must be strictly positive.
type CommonOptions struct {
	Node           string
	Quiet          bool
	TimeoutSeconds *int
	VHost          string
}

// Timeout is a convenience for populating CommonOptions.TimeoutSeconds inline.
func Timeout(seconds int) *int {
	return &seconds
}

// CommandSpec describes one invocable external operation. Positional ordering
// is significant and is never reordered by the builder. A flag mapped to the
// empty string is emitted as a boolean switch.
type CommandSpec struct {
	Verb       string
	Positional []string
	Flags      map[string]string
}

// ExecutionResult is the outcome of running one external command. A non-zero
// ExitCode is not an error at this layer; callers decide its significance.
// When TimedOut is set the exit code must not be interpreted as success.
type ExecutionResult struct {
	Path     string        `json:"path"`
	Args     []string      `json:"args"`
	ExitCode int           `json:"exit_code"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	TimedOut bool          `json:"timed_out"`
	Duration time.Duration `json:"duration"`
}

// Success reports whether the command completed within its deadline and
// exited zero.
func (r *ExecutionResult) Success() bool {
	return !r.TimedOut && r.ExitCode == 0
}
