// Package tabular parses the control tool's human-readable, whitespace
// separated listing output into typed records, honoring a caller-supplied,
// possibly reordered set of requested columns.
package tabular

import (
	"regexp"
	"strings"
)

// Record maps column names to string values for one matched output line.
type Record map[string]string

// Table is an ordered sequence of records. Columns preserves the caller's
// requested order; Records preserves input line order. Dropped counts the
// non-empty lines that did not conform to the composed row pattern (banner
// and diagnostic lines the tool intersperses with data).
type Table struct {
	Columns []string
	Records []Record
	Dropped int
}

// Parse converts raw stdout into a Table. One row pattern is composed by
// concatenating each requested column's shape, in request order, joined by
// whitespace runs and anchored at both ends; a line either matches whole or
// is dropped, never partially parsed. Parsing the same input with the same
// columns is idempotent.
func Parse(stdout string, columns []ColumnSpec) (*Table, error) {
	pattern, err := compose(columns)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = col.Name
	}

	table := &Table{Columns: names}

	for _, line := range strings.Split(stdout, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		matches := pattern.FindStringSubmatch(line)
		if matches == nil {
			table.Dropped++

			continue
		}

		record := make(Record, len(names))
		for i, name := range names {
			record[name] = matches[i+1]
		}

		table.Records = append(table.Records, record)
	}

	return table, nil
}

// compose builds the anchored row pattern for the requested columns.
func compose(columns []ColumnSpec) (*regexp.Regexp, error) {
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = "(" + col.Shape.expr() + ")"
	}

	return regexp.Compile(`^\s*` + strings.Join(parts, `\s+`) + `\s*$`)
}
