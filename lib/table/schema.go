package table

import (
	"fmt"
	"slices"
	"sort"
	"time"
)

// Kind is the type of value a column holds.
type Kind int

const (
	String Kind = iota
	Int
	Float
	Bool
	Time
	// List holds a []string.
	List
	// Object holds semi-structured values, usually whatever encoding/json decoded.
	Object
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case Time:
		return "time"
	case List:
		return "list"
	case Object:
		return "object"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// accepts reports whether a non-nil value can be stored in a column of this kind.
func (k Kind) accepts(value any) bool {
	switch k {
	case String:
		_, ok := value.(string)
		return ok
	case Int:
		_, ok := value.(int64)
		return ok
	case Float:
		_, ok := value.(float64)
		return ok
	case Bool:
		_, ok := value.(bool)
		return ok
	case Time:
		_, ok := value.(time.Time)
		return ok
	case List:
		_, ok := value.([]string)
		return ok
	case Object:
		return true
	}
	return false
}

type Field struct {
	Name string
	Kind Kind
}

// Schema is an immutable, ordered list of fields.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema creates a schema from the given fields in order, it panics on duplicate names
// since schemas are declared as package level values.
func NewSchema(fields ...Field) Schema {
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		if _, exists := index[f.Name]; exists {
			panic(fmt.Sprintf("table: duplicate column %q in schema", f.Name))
		}
		index[f.Name] = i
	}
	return Schema{
		fields: slices.Clone(fields),
		index:  index,
	}
}

func (s Schema) Len() int {
	return len(s.fields)
}

func (s Schema) Fields() []Field {
	return slices.Clone(s.fields)
}

// Columns returns the column names in declared order.
func (s Schema) Columns() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Name
	}
	return out
}

func (s Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

func (s Schema) Equal(other Schema) bool {
	return slices.Equal(s.fields, other.fields)
}

// Project keeps the keys of raw that are columns of the schema and returns the
// names of the keys it dropped, sorted.
func (s Schema) Project(raw map[string]any) (Row, []string) {
	row := make(Row, len(s.fields))
	var dropped []string
	for key, value := range raw {
		if _, ok := s.index[key]; !ok {
			dropped = append(dropped, key)
			continue
		}
		row[key] = value
	}
	sort.Strings(dropped)
	return row, dropped
}
