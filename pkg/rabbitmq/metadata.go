package rabbitmq

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Common static errors to replace dynamic error creation.
var (
	ErrUnknownTool       = errors.New("unknown control tool")
	ErrUnknownVerb       = errors.New("unknown verb")
	ErrMissingArguments  = errors.New("missing required arguments")
	ErrInvalidPluginName = errors.New("invalid plugin name")
)

// CommandMeta describes one verb's contract: how many positional arguments
// it requires, its tool-side timeout, and whether it mutates state in a way
// that deserves a warning before execution.
type CommandMeta struct {
	Verb         string `json:"verb"`
	Description  string `json:"description"`
	RequiredArgs int    `json:"required_args"`
	Timeout      int    `json:"timeout"`
	Dangerous    bool   `json:"dangerous"`
}

// MetadataService provides command metadata for both control tools.
type MetadataService struct {
	ctl     map[string]*CommandMeta
	plugins map[string]*CommandMeta
	logger  Logger
}

// NewMetadataService creates a new metadata service with the built-in verb
// tables.
func NewMetadataService(logger Logger) *MetadataService {
	if logger == nil {
		logger = &noOpLogger{}
	}

	service := &MetadataService{
		ctl:     make(map[string]*CommandMeta),
		plugins: make(map[string]*CommandMeta),
		logger:  logger,
	}

	service.initializeCtlMetadata()
	service.initializePluginsMetadata()

	return service
}

// Command returns metadata for a verb of the given tool.
func (m *MetadataService) Command(tool Tool, verb string) (*CommandMeta, error) {
	table, err := m.table(tool)
	if err != nil {
		return nil, err
	}

	meta, exists := table[verb]
	if !exists {
		return nil, fmt.Errorf("%w: %s %s", ErrUnknownVerb, tool, verb)
	}

	return meta, nil
}

// Verbs returns the known verbs for a tool, sorted.
func (m *MetadataService) Verbs(tool Tool) ([]string, error) {
	table, err := m.table(tool)
	if err != nil {
		return nil, err
	}

	verbs := make([]string, 0, len(table))
	for verb := range table {
		verbs = append(verbs, verb)
	}

	sort.Strings(verbs)

	return verbs, nil
}

// Validate checks a verb and its positional arguments before execution.
func (m *MetadataService) Validate(tool Tool, verb string, args []string) error {
	meta, err := m.Command(tool, verb)
	if err != nil {
		return err
	}

	if len(args) < meta.RequiredArgs {
		return fmt.Errorf("%w: %s requires at least %d, got %d",
			ErrMissingArguments, verb, meta.RequiredArgs, len(args))
	}

	if tool == ToolPlugins && (verb == "enable" || verb == "disable" || verb == "set") {
		return validatePluginNames(args)
	}

	return nil
}

// ClassifyDanger reports whether an invocation deserves an operator warning,
// and the warning text. Some combinations are dangerous beyond their verb's
// static flag: disabling all plugins, or setting an empty plugin set.
func (m *MetadataService) ClassifyDanger(tool Tool, verb string, args []string) (bool, string) {
	meta, err := m.Command(tool, verb)
	if err != nil {
		return false, ""
	}

	dangerous := meta.Dangerous
	warning := ""

	if tool == ToolPlugins {
		switch verb {
		case "disable":
			for _, arg := range args {
				if arg == "--all" {
					dangerous = true
					warning = "Disabling all plugins removes all functionality from the broker."
				}
			}
		case "set":
			if len(args) == 0 {
				dangerous = true
				warning = "Setting no plugins disables every currently enabled plugin."
			}
		}
	}

	if dangerous && warning == "" {
		warning = fmt.Sprintf("%s %s may affect broker availability.", tool, verb)
	}

	return dangerous, warning
}

func (m *MetadataService) table(tool Tool) (map[string]*CommandMeta, error) {
	switch tool {
	case ToolCtl:
		return m.ctl, nil
	case ToolPlugins:
		return m.plugins, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, tool)
	}
}

// validatePluginNames rejects names that could escape the plugins directory.
func validatePluginNames(names []string) error {
	for _, name := range names {
		if name == "" || strings.HasPrefix(name, "--") {
			continue
		}

		if strings.Contains(name, "..") || strings.Contains(name, "/") || strings.Contains(name, "\\") {
			return fmt.Errorf("%w: %s", ErrInvalidPluginName, name)
		}
	}

	return nil
}

func (m *MetadataService) initializeCtlMetadata() {
	for _, meta := range []*CommandMeta{
		{Verb: "list_queues", Description: "List queues with requested columns", Timeout: DefaultCtlTimeout},
		{Verb: "list_connections", Description: "List client connections", Timeout: DefaultCtlTimeout},
		{Verb: "list_channels", Description: "List AMQP channels", Timeout: DefaultCtlTimeout},
		{Verb: "list_users", Description: "List users and their tags", Timeout: DefaultCtlTimeout},
		{Verb: "list_vhosts", Description: "List virtual hosts", Timeout: DefaultCtlTimeout},
		{Verb: "list_policies", Description: "List policies for a vhost", Timeout: DefaultCtlTimeout},
		{Verb: "list_permissions", Description: "List permissions in a vhost", Timeout: DefaultCtlTimeout},
		{Verb: "add_user", Description: "Create a user", RequiredArgs: 2, Timeout: DefaultCtlTimeout},
		{Verb: "delete_user", Description: "Delete a user", RequiredArgs: 1, Timeout: DefaultCtlTimeout, Dangerous: true},
		{Verb: "change_password", Description: "Change a user's password", RequiredArgs: 2, Timeout: DefaultCtlTimeout},
		{Verb: "set_user_tags", Description: "Replace a user's tags", RequiredArgs: 1, Timeout: DefaultCtlTimeout},
		{Verb: "add_vhost", Description: "Create a virtual host", RequiredArgs: 1, Timeout: DefaultCtlTimeout},
		{Verb: "delete_vhost", Description: "Delete a virtual host and everything in it", RequiredArgs: 1, Timeout: LongCtlTimeout, Dangerous: true},
		{Verb: "set_permissions", Description: "Grant a user permissions in a vhost", RequiredArgs: 4, Timeout: DefaultCtlTimeout},
		{Verb: "clear_permissions", Description: "Revoke a user's permissions in a vhost", RequiredArgs: 1, Timeout: DefaultCtlTimeout},
		{Verb: "set_policy", Description: "Set a policy", RequiredArgs: 3, Timeout: DefaultCtlTimeout},
		{Verb: "clear_policy", Description: "Clear a policy", RequiredArgs: 1, Timeout: DefaultCtlTimeout},
		{Verb: "cluster_status", Description: "Show cluster status", Timeout: LongCtlTimeout},
		{Verb: "status", Description: "Show broker status", Timeout: LongCtlTimeout},
		{Verb: "environment", Description: "Show the broker environment", Timeout: DefaultCtlTimeout},
		{Verb: "node_health_check", Description: "Run the node health check; the exit code is the verdict", Timeout: LongCtlTimeout},
		{Verb: "ping", Description: "Check the node is reachable", Timeout: DefaultCtlTimeout},
		{Verb: "stop_app", Description: "Stop the broker application", Timeout: LongCtlTimeout, Dangerous: true},
		{Verb: "start_app", Description: "Start the broker application", Timeout: LongCtlTimeout},
		{Verb: "forget_cluster_node", Description: "Remove a node from the cluster", RequiredArgs: 1, Timeout: LongCtlTimeout, Dangerous: true},
		{Verb: "purge_queue", Description: "Purge a queue's messages", RequiredArgs: 1, Timeout: LongCtlTimeout, Dangerous: true},
	} {
		m.ctl[meta.Verb] = meta
	}
}

func (m *MetadataService) initializePluginsMetadata() {
	for _, meta := range []*CommandMeta{
		{Verb: "list", Description: "List plugins and their status", Timeout: DefaultPluginTimeout},
		{Verb: "enable", Description: "Enable plugins", RequiredArgs: 1, Timeout: LongPluginTimeout},
		{Verb: "disable", Description: "Disable plugins", RequiredArgs: 1, Timeout: LongPluginTimeout, Dangerous: true},
		{Verb: "set", Description: "Replace the enabled plugin set", Timeout: ExtendedPluginTimeout, Dangerous: true},
		{Verb: "is_enabled", Description: "Check whether plugins are enabled; the exit code is the verdict", RequiredArgs: 1, Timeout: DefaultPluginTimeout},
		{Verb: "directories", Description: "Show plugin directories", Timeout: DefaultPluginTimeout},
		{Verb: "help", Description: "Show usage for a plugins command", Timeout: DefaultPluginTimeout},
	} {
		m.plugins[meta.Verb] = meta
	}
}
