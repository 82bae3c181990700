package rabbitmq

import (
	"strconv"
	"strings"

	"brokerctl/pkg/tabular"
)

// Column registries for the listing verbs. Callers may request any subset of
// a verb's known columns in any order; the registry supplies the shape rule
// for each requested name.
var (
	queueColumns = tabular.NewRegistry("name",
		tabular.Column("name", tabular.ShapeToken),
		tabular.Column("messages", tabular.ShapeInteger),
		tabular.Column("consumers", tabular.ShapeInteger),
		tabular.Column("state", tabular.ShapeWord),
		tabular.Column("durable", tabular.ShapeWord),
		tabular.Column("auto_delete", tabular.ShapeWord),
	)

	connectionColumns = tabular.NewRegistry("name",
		tabular.Column("name", tabular.ShapeToken),
		tabular.Column("state", tabular.ShapeWord),
		tabular.Column("user", tabular.ShapeToken),
		tabular.Column("protocol", tabular.ShapeToken),
	)

	channelColumns = tabular.NewRegistry("name",
		tabular.Column("name", tabular.ShapeToken),
		tabular.Column("connection", tabular.ShapeToken),
		tabular.Column("user", tabular.ShapeToken),
		tabular.Column("consumer_count", tabular.ShapeInteger),
	)

	// User tags arrive as a bracketed list that may contain spaces.
	userColumns = tabular.NewRegistry("name",
		tabular.Column("name", tabular.ShapeToken),
		tabular.Column("tags", tabular.ShapeTags),
	)

	vhostColumns = tabular.NewRegistry("name",
		tabular.Column("name", tabular.ShapeToken),
		tabular.Column("tracing", tabular.ShapeWord),
	)

	policyColumns = tabular.NewRegistry("name",
		tabular.Column("vhost", tabular.ShapeToken),
		tabular.Column("name", tabular.ShapeToken),
		tabular.Column("pattern", tabular.ShapeToken),
		tabular.Column("apply-to", tabular.ShapeWord),
		tabular.Column("definition", tabular.ShapeToken),
		tabular.Column("priority", tabular.ShapeInteger),
	)
)

// parseIntSafe safely parses an integer, returning 0 if parsing fails.
func parseIntSafe(s string) int {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}

	return 0
}

// parseTags splits a bracketed tag list like "[administrator, management]".
func parseTags(s string) []string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")

	if strings.TrimSpace(s) == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))

	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}

	return tags
}
