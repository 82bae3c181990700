package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"brokerctl/pkg/control"
	"brokerctl/pkg/tabular"
)

// Common static errors to replace dynamic error creation.
var (
	ErrCommandFailed   = errors.New("command failed")
	ErrCommandTimedOut = errors.New("command timed out")
)

// CtlClient exposes typed rabbitmqctl operations. Listing verbs pass the
// requested column names to the tool and to the parser, so the caller's
// column order governs both the tool's output and the records produced.
//
// Mutating verbs treat a non-zero exit as failure; verdict verbs
// (NodeHealthCheck) read the exit code as data. That policy lives here, in
// the caller layer, not in the invoker.
type CtlClient struct {
	exec   *Executor
	logger Logger
}

// NewCtlClient creates a typed rabbitmqctl client.
func NewCtlClient(exec *Executor, logger Logger) *CtlClient {
	if logger == nil {
		logger = &noOpLogger{}
	}

	return &CtlClient{exec: exec, logger: logger}
}

// ListQueues lists queues in the given vhost. With no columns the default
// (name) is used; otherwise records carry the requested columns in order.
func (c *CtlClient) ListQueues(ctx context.Context, vhost string, columns ...string) ([]Queue, error) {
	table, err := c.list(ctx, "list_queues", vhost, queueColumns, columns, []string{"name", "messages", "consumers", "state"})
	if err != nil {
		return nil, err
	}

	queues := make([]Queue, 0, len(table.Records))
	for _, record := range table.Records {
		queues = append(queues, Queue{
			Name:      record["name"],
			Messages:  parseIntSafe(record["messages"]),
			Consumers: parseIntSafe(record["consumers"]),
			State:     record["state"],
		})
	}

	return queues, nil
}

// ListConnections lists client connections.
func (c *CtlClient) ListConnections(ctx context.Context, columns ...string) ([]Connection, error) {
	table, err := c.list(ctx, "list_connections", "", connectionColumns, columns, []string{"name", "state", "user", "protocol"})
	if err != nil {
		return nil, err
	}

	connections := make([]Connection, 0, len(table.Records))
	for _, record := range table.Records {
		connections = append(connections, Connection{
			Name:     record["name"],
			State:    record["state"],
			User:     record["user"],
			Protocol: record["protocol"],
		})
	}

	return connections, nil
}

// ListChannels lists AMQP channels.
func (c *CtlClient) ListChannels(ctx context.Context, columns ...string) ([]Channel, error) {
	table, err := c.list(ctx, "list_channels", "", channelColumns, columns, []string{"name", "connection", "user", "consumer_count"})
	if err != nil {
		return nil, err
	}

	channels := make([]Channel, 0, len(table.Records))
	for _, record := range table.Records {
		channels = append(channels, Channel{
			Name:          record["name"],
			Connection:    record["connection"],
			User:          record["user"],
			ConsumerCount: parseIntSafe(record["consumer_count"]),
		})
	}

	return channels, nil
}

// ListUsers lists users and their tags.
func (c *CtlClient) ListUsers(ctx context.Context) ([]User, error) {
	table, err := c.list(ctx, "list_users", "", userColumns, nil, []string{"name", "tags"})
	if err != nil {
		return nil, err
	}

	users := make([]User, 0, len(table.Records))
	for _, record := range table.Records {
		users = append(users, User{
			Name: record["name"],
			Tags: parseTags(record["tags"]),
		})
	}

	return users, nil
}

// ListVHosts lists virtual hosts.
func (c *CtlClient) ListVHosts(ctx context.Context, columns ...string) ([]VHost, error) {
	table, err := c.list(ctx, "list_vhosts", "", vhostColumns, columns, []string{"name", "tracing"})
	if err != nil {
		return nil, err
	}

	vhosts := make([]VHost, 0, len(table.Records))
	for _, record := range table.Records {
		vhosts = append(vhosts, VHost{
			Name:    record["name"],
			Tracing: record["tracing"] == "true",
		})
	}

	return vhosts, nil
}

// ListPolicies lists policies in the given vhost.
func (c *CtlClient) ListPolicies(ctx context.Context, vhost string) ([]Policy, error) {
	table, err := c.list(ctx, "list_policies", vhost, policyColumns, nil,
		[]string{"vhost", "name", "pattern", "apply-to", "definition", "priority"})
	if err != nil {
		return nil, err
	}

	policies := make([]Policy, 0, len(table.Records))
	for _, record := range table.Records {
		policies = append(policies, Policy{
			VHost:      record["vhost"],
			Name:       record["name"],
			Pattern:    record["pattern"],
			ApplyTo:    record["apply-to"],
			Definition: record["definition"],
			Priority:   parseIntSafe(record["priority"]),
		})
	}

	return policies, nil
}

// AddUser creates a user.
func (c *CtlClient) AddUser(ctx context.Context, name, password string) (*Execution, error) {
	return c.mutate(ctx, "add_user", "", name, password)
}

// DeleteUser deletes a user.
func (c *CtlClient) DeleteUser(ctx context.Context, name string) (*Execution, error) {
	return c.mutate(ctx, "delete_user", "", name)
}

// ChangePassword changes a user's password.
func (c *CtlClient) ChangePassword(ctx context.Context, name, password string) (*Execution, error) {
	return c.mutate(ctx, "change_password", "", name, password)
}

// SetUserTags replaces a user's tags.
func (c *CtlClient) SetUserTags(ctx context.Context, name string, tags ...string) (*Execution, error) {
	return c.mutate(ctx, "set_user_tags", "", append([]string{name}, tags...)...)
}

// AddVHost creates a virtual host.
func (c *CtlClient) AddVHost(ctx context.Context, name string) (*Execution, error) {
	return c.mutate(ctx, "add_vhost", "", name)
}

// DeleteVHost deletes a virtual host and everything in it.
func (c *CtlClient) DeleteVHost(ctx context.Context, name string) (*Execution, error) {
	return c.mutate(ctx, "delete_vhost", "", name)
}

// SetPermissions grants a user configure/write/read permissions in a vhost.
func (c *CtlClient) SetPermissions(ctx context.Context, vhost, user, conf, write, read string) (*Execution, error) {
	return c.mutate(ctx, "set_permissions", vhost, user, conf, write, read)
}

// SetPolicy sets a policy in a vhost. The definition is a JSON document and
// travels as one literal argument token, never through a shell.
func (c *CtlClient) SetPolicy(ctx context.Context, vhost, name, pattern, definition string) (*Execution, error) {
	return c.mutate(ctx, "set_policy", vhost, name, pattern, definition)
}

// ClearPolicy clears a policy in a vhost.
func (c *CtlClient) ClearPolicy(ctx context.Context, vhost, name string) (*Execution, error) {
	return c.mutate(ctx, "clear_policy", vhost, name)
}

// PurgeQueue removes all messages from a queue.
func (c *CtlClient) PurgeQueue(ctx context.Context, vhost, queue string) (*Execution, error) {
	return c.mutate(ctx, "purge_queue", vhost, queue)
}

// StopApp stops the broker application on the target node.
func (c *CtlClient) StopApp(ctx context.Context) (*Execution, error) {
	return c.mutate(ctx, "stop_app", "")
}

// StartApp starts the broker application on the target node.
func (c *CtlClient) StartApp(ctx context.Context) (*Execution, error) {
	return c.mutate(ctx, "start_app", "")
}

// ForgetClusterNode removes a node from the cluster.
func (c *CtlClient) ForgetClusterNode(ctx context.Context, node string) (*Execution, error) {
	return c.mutate(ctx, "forget_cluster_node", "", node)
}

// ClusterStatus returns the raw cluster status output. The format varies by
// broker version, so no row parsing is attempted.
func (c *CtlClient) ClusterStatus(ctx context.Context) (string, error) {
	execution, err := c.exec.Run(ctx, ToolCtl, control.CommandSpec{Verb: "cluster_status"}, Scope{})
	if err != nil {
		return "", err
	}

	if !execution.Success {
		return execution.Output, executionFailure(execution)
	}

	return execution.Output, nil
}

// Status returns the raw broker status output.
func (c *CtlClient) Status(ctx context.Context) (string, error) {
	execution, err := c.exec.Run(ctx, ToolCtl, control.CommandSpec{Verb: "status"}, Scope{})
	if err != nil {
		return "", err
	}

	if !execution.Success {
		return execution.Output, executionFailure(execution)
	}

	return execution.Output, nil
}

// NodeHealthCheck runs the node health check. The exit code is the verdict:
// zero means healthy, non-zero means unhealthy. Only precondition and launch
// problems produce an error.
func (c *CtlClient) NodeHealthCheck(ctx context.Context) (bool, *Execution, error) {
	execution, err := c.exec.Run(ctx, ToolCtl, control.CommandSpec{Verb: "node_health_check"}, Scope{})
	if err != nil {
		return false, nil, err
	}

	if execution.TimedOut {
		return false, execution, nil
	}

	return execution.ExitCode == 0, execution, nil
}

// Ping checks that the node is reachable. Exit-code verdict, like the health
// check.
func (c *CtlClient) Ping(ctx context.Context) (bool, error) {
	execution, err := c.exec.Run(ctx, ToolCtl, control.CommandSpec{Verb: "ping"}, Scope{})
	if err != nil {
		return false, err
	}

	return execution.Success, nil
}

// list runs a listing verb, requesting the given columns (or defaults) and
// parsing the output with the verb's column registry.
func (c *CtlClient) list(ctx context.Context, verb, vhost string, registry *tabular.Registry, columns, defaults []string) (*tabular.Table, error) {
	if len(columns) == 0 {
		columns = defaults
	}

	specs, err := registry.Resolve(columns)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(specs))
	for i, spec := range specs {
		names[i] = spec.Name
	}

	execution, err := c.exec.Run(ctx, ToolCtl, control.CommandSpec{Verb: verb, Positional: names}, Scope{VHost: vhost})
	if err != nil {
		return nil, err
	}

	if !execution.Success {
		return nil, executionFailure(execution)
	}

	table, err := tabular.Parse(execution.Output, specs)
	if err != nil {
		return nil, err
	}

	if table.Dropped > 0 {
		c.logger.Debug("%s: dropped %d non-conforming output lines", verb, table.Dropped)
	}

	return table, nil
}

// mutate runs a state-changing verb and converts a non-success outcome into
// an error carrying the captured stderr.
func (c *CtlClient) mutate(ctx context.Context, verb, vhost string, args ...string) (*Execution, error) {
	execution, err := c.exec.Run(ctx, ToolCtl, control.CommandSpec{Verb: verb, Positional: args}, Scope{VHost: vhost})
	if err != nil {
		return nil, err
	}

	if !execution.Success {
		return execution, executionFailure(execution)
	}

	return execution, nil
}

// executionFailure builds the caller-facing error for a failed execution,
// including the exit code and whatever the tool wrote to stderr.
func executionFailure(execution *Execution) error {
	if execution.TimedOut {
		return fmt.Errorf("%w: %s %s", ErrCommandTimedOut, execution.Tool, execution.Verb)
	}

	detail := strings.TrimSpace(execution.Stderr)
	if detail == "" {
		detail = strings.TrimSpace(execution.Output)
	}

	return fmt.Errorf("%w: %s %s exited %d: %s",
		ErrCommandFailed, execution.Tool, execution.Verb, execution.ExitCode, detail)
}
