package table

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrUnknownColumn  = errors.New("unknown column")
	ErrKindMismatch   = errors.New("value does not match column kind")
	ErrSchemaMismatch = errors.New("schemas do not match")
)

// Row maps column names to values, a missing column is stored as nil.
type Row map[string]any

// Table is an ordered collection of rows over a fixed schema. The column set of a table always
// equals its schema, including when it holds no rows.
type Table struct {
	schema Schema
	rows   [][]any
}

func New(schema Schema) *Table {
	return &Table{schema: schema}
}

func (t *Table) Schema() Schema {
	return t.schema
}

func (t *Table) Columns() []string {
	return t.schema.Columns()
}

func (t *Table) Len() int {
	return len(t.rows)
}

// Append validates the row against the schema and adds it to the end of the table.
func (t *Table) Append(row Row) error {
	values := make([]any, t.schema.Len())
	for name, value := range row {
		i, ok := t.schema.Index(name)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, name)
		}
		if value == nil {
			continue
		}
		field := t.schema.fields[i]
		if !field.Kind.accepts(value) {
			return fmt.Errorf(
				"%w: column %q is %s, got %T",
				ErrKindMismatch, name, field.Kind, value,
			)
		}
		values[i] = value
	}
	t.rows = append(t.rows, values)
	return nil
}

// Concat appends every row of other, both tables must share the same schema.
func (t *Table) Concat(other *Table) error {
	if !t.schema.Equal(other.schema) {
		return ErrSchemaMismatch
	}
	for _, values := range other.rows {
		t.rows = append(t.rows, slices.Clone(values))
	}
	return nil
}

func (t *Table) Row(i int) Row {
	values := t.rows[i]
	row := make(Row, len(values))
	for j, f := range t.schema.fields {
		row[f.Name] = values[j]
	}
	return row
}

// Rows returns a copy of every row in arrival order.
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	for i := range t.rows {
		out[i] = t.Row(i)
	}
	return out
}

// Values returns the values of row i in column order.
func (t *Table) Values(i int) []any {
	return slices.Clone(t.rows[i])
}

// Value returns the value at row i of the named column, it returns nil for unknown columns.
func (t *Table) Value(i int, column string) any {
	j, ok := t.schema.Index(column)
	if !ok {
		return nil
	}
	return t.rows[i][j]
}

// Column returns every value of the named column in row order.
func (t *Table) Column(name string) []any {
	j, ok := t.schema.Index(name)
	if !ok {
		return nil
	}
	out := make([]any, len(t.rows))
	for i, values := range t.rows {
		out[i] = values[j]
	}
	return out
}
