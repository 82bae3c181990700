package control

import (
	"fmt"
	"sort"
	"strconv"
)

// Build translates CommonOptions plus a CommandSpec into the flat argument
// vector the control tool expects. Common options are emitted in a fixed
// order: node, quiet, timeout, vhost, then the verb, then positional
// arguments in caller order, then operation-specific flags sorted by name.
//
// Build is a pure function of its inputs; no builder state survives between
// calls. An unset timeout resolves to DefaultTimeoutSeconds. A set timeout
// that is zero or negative is rejected up front, before any process is
// spawned.
func Build(opts CommonOptions, spec CommandSpec) ([]string, error) {
	if spec.Verb == "" {
		return nil, ErrEmptyVerb
	}

	timeout := DefaultTimeoutSeconds
	if opts.TimeoutSeconds != nil {
		if *opts.TimeoutSeconds <= 0 {
			return nil, fmt.Errorf("%w: timeout must be positive, got %d", ErrInvalidOption, *opts.TimeoutSeconds)
		}

		timeout = *opts.TimeoutSeconds
	}

	args := make([]string, 0, 8+len(spec.Positional)+2*len(spec.Flags))

	if opts.Node != "" {
		args = append(args, nodeSwitch, opts.Node)
	}

	if opts.Quiet {
		args = append(args, quietSwitch)
	}

	args = append(args, timeoutSwitch, strconv.Itoa(timeout))

	if opts.VHost != "" {
		args = append(args, vhostSwitch, opts.VHost)
	}

	args = append(args, spec.Verb)
	args = append(args, spec.Positional...)

	// Sort flag names so the vector is deterministic for a given spec.
	names := make([]string, 0, len(spec.Flags))
	for name := range spec.Flags {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		value := spec.Flags[name]
		if value == "" {
			args = append(args, name)
		} else {
			args = append(args, name, value)
		}
	}

	return args, nil
}
