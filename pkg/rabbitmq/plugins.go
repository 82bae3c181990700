package rabbitmq

import (
	"context"
	"regexp"
	"strings"

	"brokerctl/pkg/control"
)

// Plugin list lines look like "[E*] rabbitmq_management 3.12.4" where the
// marker is E (explicitly enabled), e (implicitly enabled), or blank.
var pluginStatusRegex = regexp.MustCompile(`^\[([Ee*! ]{0,2})\]\s+(\S+)(?:\s+(\S+))?\s*$`)

// PluginsClient exposes typed rabbitmq-plugins operations.
type PluginsClient struct {
	exec   *Executor
	logger Logger
}

// NewPluginsClient creates a typed rabbitmq-plugins client.
func NewPluginsClient(exec *Executor, logger Logger) *PluginsClient {
	if logger == nil {
		logger = &noOpLogger{}
	}

	return &PluginsClient{exec: exec, logger: logger}
}

// List returns all plugins with their enablement status. Banner lines
// ("Listing plugins ...") do not conform to the row shape and are skipped.
func (p *PluginsClient) List(ctx context.Context) ([]Plugin, error) {
	execution, err := p.exec.Run(ctx, ToolPlugins, control.CommandSpec{Verb: "list"}, Scope{})
	if err != nil {
		return nil, err
	}

	if !execution.Success {
		return nil, executionFailure(execution)
	}

	return parsePluginList(execution.Output), nil
}

// Enable enables the named plugins.
func (p *PluginsClient) Enable(ctx context.Context, names ...string) (*Execution, error) {
	return p.mutate(ctx, "enable", names...)
}

// Disable disables the named plugins.
func (p *PluginsClient) Disable(ctx context.Context, names ...string) (*Execution, error) {
	return p.mutate(ctx, "disable", names...)
}

// Set replaces the enabled plugin set with exactly the named plugins.
func (p *PluginsClient) Set(ctx context.Context, names ...string) (*Execution, error) {
	return p.mutate(ctx, "set", names...)
}

// IsEnabled checks whether the named plugin is enabled. The tool reports the
// verdict through its exit code, so a non-zero exit here is an answer, not a
// failure.
func (p *PluginsClient) IsEnabled(ctx context.Context, name string) (bool, error) {
	execution, err := p.exec.Run(ctx, ToolPlugins, control.CommandSpec{Verb: "is_enabled", Positional: []string{name}}, Scope{})
	if err != nil {
		return false, err
	}

	if execution.TimedOut {
		return false, executionFailure(execution)
	}

	return execution.ExitCode == 0, nil
}

// Directories returns the plugin directory listing.
func (p *PluginsClient) Directories(ctx context.Context) (string, error) {
	execution, err := p.exec.Run(ctx, ToolPlugins, control.CommandSpec{Verb: "directories"}, Scope{})
	if err != nil {
		return "", err
	}

	if !execution.Success {
		return "", executionFailure(execution)
	}

	return execution.Output, nil
}

func (p *PluginsClient) mutate(ctx context.Context, verb string, names ...string) (*Execution, error) {
	if dangerous, warning := p.exec.Metadata().ClassifyDanger(ToolPlugins, verb, names); dangerous {
		p.logger.Info("WARNING: rabbitmq-plugins %s: %s", verb, warning)
	}

	execution, err := p.exec.Run(ctx, ToolPlugins, control.CommandSpec{Verb: verb, Positional: names}, Scope{})
	if err != nil {
		return nil, err
	}

	if !execution.Success {
		return execution, executionFailure(execution)
	}

	return execution, nil
}

// parsePluginList extracts plugin rows from list output.
func parsePluginList(output string) []Plugin {
	var plugins []Plugin

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "[") {
			continue
		}

		matches := pluginStatusRegex.FindStringSubmatch(line)
		if matches == nil {
			continue
		}

		plugin := Plugin{
			Name:    matches[2],
			Version: matches[3],
			Status:  pluginStatusFromMarker(matches[1]),
		}

		plugins = append(plugins, plugin)
	}

	return plugins
}

func pluginStatusFromMarker(marker string) PluginStatus {
	switch {
	case strings.HasPrefix(marker, "E"):
		return PluginEnabled
	case strings.HasPrefix(marker, "e"):
		return PluginImplicitlyEnabled
	default:
		return PluginDisabled
	}
}
