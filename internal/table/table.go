package table

import (
	"errors"
	"fmt"
	"regexp"
)

// Kind tags a column as categorical or numeric. It is decided once, when the
// table is loaded, and never re-inferred by the analyzers.
type Kind int

const (
	KindCategorical Kind = iota
	KindNumeric
)

func (k Kind) String() string {
	switch k {
	case KindCategorical:
		return "categorical"
	case KindNumeric:
		return "numeric"
	default:
		return "unknown"
	}
}

// ErrUnknownColumn is returned when a column name is not present in a table.
var ErrUnknownColumn = errors.New("unknown column")

// Column holds the values of one named column.
// Categorical columns use Labels (missing entries are ""), numeric columns use
// Values (missing entries are NaN).
type Column struct {
	Name   string
	Kind   Kind
	Labels []string
	Values []float64
}

// Len returns the number of entries in the column.
func (c Column) Len() int {
	if c.Kind == KindNumeric {
		return len(c.Values)
	}
	return len(c.Labels)
}

// Numeric builds a numeric column.
func Numeric(name string, values ...float64) Column {
	return Column{Name: name, Kind: KindNumeric, Values: values}
}

// Categorical builds a categorical column.
func Categorical(name string, labels ...string) Column {
	return Column{Name: name, Kind: KindCategorical, Labels: labels}
}

// Table is an ordered collection of named columns. Tables are treated as
// read-only once built; operations that derive a view return a new Table.
type Table struct {
	Name    string
	Columns []Column
}

// New builds a table and checks that every column has the same length.
func New(name string, cols ...Column) (*Table, error) {
	t := &Table{Name: name, Columns: cols}
	if len(cols) == 0 {
		return t, nil
	}
	n := cols[0].Len()
	for _, c := range cols[1:] {
		if c.Len() != n {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name, c.Len(), n)
		}
	}
	return t, nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Len()
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Column looks a column up by exact name.
func (t *Table) Column(name string) (Column, error) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, nil
		}
	}
	return Column{}, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
}

// Numeric returns a view holding only the numeric columns.
func (t *Table) Numeric() *Table {
	out := &Table{Name: t.Name}
	for _, c := range t.Columns {
		if c.Kind == KindNumeric {
			out.Columns = append(out.Columns, c)
		}
	}
	return out
}

// Select returns a view holding the columns whose name matches pattern
// anywhere (search, not full match), preserving order.
func (t *Table) Select(pattern *regexp.Regexp) *Table {
	out := &Table{Name: t.Name}
	for _, c := range t.Columns {
		if pattern.MatchString(c.Name) {
			out.Columns = append(out.Columns, c)
		}
	}
	return out
}
