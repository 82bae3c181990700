package tabular

import (
	"errors"
	"fmt"
)

// Common static errors to replace dynamic error creation.
var (
	ErrUnknownColumn   = errors.New("unknown column")
	ErrNoDefaultColumn = errors.New("registry has no default column")
)

// Shape classifies the token shape a column's value takes within a
// whitespace-separated output line.
type Shape int

const (
	// ShapeToken matches one run of non-whitespace characters.
	ShapeToken Shape = iota
	// ShapeWord matches word characters only.
	ShapeWord
	// ShapeInteger matches a run of digits.
	ShapeInteger
	// ShapeNonNumeric matches a run containing neither digits nor whitespace.
	ShapeNonNumeric
	// ShapeTags matches a bracketed list, which may itself contain
	// whitespace. Greedy but bounded by the closing bracket.
	ShapeTags
)

// expr returns the capture-free regular expression fragment for the shape.
func (s Shape) expr() string {
	switch s {
	case ShapeWord:
		return `\w+`
	case ShapeInteger:
		return `\d+`
	case ShapeNonNumeric:
		return `[^\d\s]+`
	case ShapeTags:
		return `\[[^\]]*\]`
	default:
		return `\S+`
	}
}

// ColumnSpec names one column and the shape rule used to recognize its value.
type ColumnSpec struct {
	Name  string
	Shape Shape
}

// Column is a convenience constructor for ColumnSpec.
func Column(name string, shape Shape) ColumnSpec {
	return ColumnSpec{Name: name, Shape: shape}
}

// Registry holds the known columns for one listing verb, plus the default
// column used when a caller requests none.
type Registry struct {
	columns       map[string]ColumnSpec
	defaultColumn string
}

// NewRegistry creates a registry. defaultColumn must name one of specs.
func NewRegistry(defaultColumn string, specs ...ColumnSpec) *Registry {
	columns := make(map[string]ColumnSpec, len(specs))
	for _, spec := range specs {
		columns[spec.Name] = spec
	}

	return &Registry{
		columns:       columns,
		defaultColumn: defaultColumn,
	}
}

// Resolve maps requested column names, in caller order, to their specs.
// An empty request falls back to the registry's default column.
func (r *Registry) Resolve(names []string) ([]ColumnSpec, error) {
	if len(names) == 0 {
		spec, ok := r.columns[r.defaultColumn]
		if !ok {
			return nil, ErrNoDefaultColumn
		}

		return []ColumnSpec{spec}, nil
	}

	specs := make([]ColumnSpec, 0, len(names))

	for _, name := range names {
		spec, ok := r.columns[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
		}

		specs = append(specs, spec)
	}

	return specs, nil
}
