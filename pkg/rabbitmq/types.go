package rabbitmq

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

// Tool names a control executable resolved through the locator.
type Tool string

const (
	ToolCtl     Tool = "rabbitmqctl"
	ToolPlugins Tool = "rabbitmq-plugins"
)

// ExecutionStatus represents the current status of command execution
type ExecutionStatus string

const (
	StatusPending   ExecutionStatus = "pending"
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
	StatusCancelled ExecutionStatus = "cancelled"
	StatusTimeout   ExecutionStatus = "timeout"
)

// Execution represents one completed command invocation.
type Execution struct {
	ExecutionID string   `json:"execution_id"`
	Tool        Tool     `json:"tool"`
	Verb        string   `json:"verb"`
	Arguments   []string `json:"arguments"`
	Timestamp   int64    `json:"timestamp"`
	Output      string   `json:"output"`
	Stderr      string   `json:"stderr,omitempty"`
	ExitCode    int      `json:"exit_code"`
	Success     bool     `json:"success"`
	TimedOut    bool     `json:"timed_out"`
	Duration    int64    `json:"duration"`
	User        string   `json:"user,omitempty"`
}

// StreamingExecution provides streaming execution results
type StreamingExecution struct {
	ExecutionID string          `json:"execution_id"`
	Tool        Tool            `json:"tool"`
	Verb        string          `json:"verb"`
	Arguments   []string        `json:"arguments"`
	Status      ExecutionStatus `json:"status"`
	Output      chan string     `json:"-"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     *time.Time      `json:"end_time,omitempty"`
	Error       string          `json:"error,omitempty"`
	ExitCode    int             `json:"exit_code"`
	Success     bool            `json:"success"`
}

// Queue is one row of list_queues output.
type Queue struct {
	Name      string `json:"name"`
	Messages  int    `json:"messages"`
	Consumers int    `json:"consumers"`
	State     string `json:"state"`
}

// Connection is one row of list_connections output.
type Connection struct {
	Name     string `json:"name"`
	State    string `json:"state"`
	User     string `json:"user"`
	Protocol string `json:"protocol"`
}

// Channel is one row of list_channels output.
type Channel struct {
	Name          string `json:"name"`
	Connection    string `json:"connection"`
	User          string `json:"user"`
	ConsumerCount int    `json:"consumer_count"`
}

// User is one row of list_users output.
type User struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// VHost is one row of list_vhosts output.
type VHost struct {
	Name    string `json:"name"`
	Tracing bool   `json:"tracing"`
}

// Policy is one row of list_policies output.
type Policy struct {
	VHost      string `json:"vhost"`
	Name       string `json:"name"`
	Pattern    string `json:"pattern"`
	ApplyTo    string `json:"apply_to"`
	Definition string `json:"definition"`
	Priority   int    `json:"priority"`
}

// PluginStatus classifies one plugin's enablement state.
type PluginStatus string

const (
	PluginEnabled           PluginStatus = "enabled"
	PluginImplicitlyEnabled PluginStatus = "implicitly_enabled"
	PluginDisabled          PluginStatus = "disabled"
)

// Plugin is one row of rabbitmq-plugins list output.
type Plugin struct {
	Name    string       `json:"name"`
	Version string       `json:"version,omitempty"`
	Status  PluginStatus `json:"status"`
}
