package table

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type Format string

const (
	FormatTable    Format = "table"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatCSV, FormatMarkdown, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (expected table, csv, markdown or json)", s)
}

// cells wider than this are truncated in the box table format
const maxCellWidth = 60

// Render writes the table to w in the given format.
func Render(w io.Writer, t *Table, format Format) error {
	if format == FormatJSON {
		return renderJSON(w, t)
	}

	writer := table.NewWriter()
	writer.SetOutputMirror(w)

	header := table.Row{}
	for _, c := range t.Columns() {
		header = append(header, c)
	}
	writer.AppendHeader(header)

	for i := 0; i < t.Len(); i++ {
		row := table.Row{}
		for _, v := range t.Values(i) {
			row = append(row, FormatValue(v))
		}
		writer.AppendRow(row)
	}

	switch format {
	case FormatCSV:
		writer.RenderCSV()
	case FormatMarkdown:
		writer.RenderMarkdown()
	default:
		configs := make([]table.ColumnConfig, len(header))
		for i := range header {
			configs[i] = table.ColumnConfig{
				Number:           i + 1,
				WidthMax:         maxCellWidth,
				WidthMaxEnforcer: text.Trim,
			}
		}
		writer.SetColumnConfigs(configs)
		writer.SetStyle(table.StyleRounded)
		writer.Render()
	}
	return nil
}

// jsonRow encodes a row as an object whose keys follow the column order.
type jsonRow struct {
	columns []string
	values  []any
}

func (r jsonRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, column := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(column)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", column, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// renderJSON writes {"columns": [...], "rows": [...]} so an empty table still carries its
// schema.
func renderJSON(w io.Writer, t *Table) error {
	out := struct {
		Columns []string  `json:"columns"`
		Rows    []jsonRow `json:"rows"`
	}{
		Columns: t.Columns(),
		Rows:    make([]jsonRow, t.Len()),
	}
	for i := range out.Rows {
		out.Rows[i] = jsonRow{columns: out.Columns, values: t.Values(i)}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

// FormatValue renders a single cell value as text.
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(time.RFC3339)
	case []string:
		return strings.Join(v, "; ")
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(encoded)
}
