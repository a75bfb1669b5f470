package table

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var testSchema = NewSchema(
	Field{Name: "id", Kind: Int},
	Field{Name: "title", Kind: String},
	Field{Name: "tags", Kind: List},
	Field{Name: "created", Kind: Time},
	Field{Name: "metrics", Kind: Object},
)

func TestEmptyTableKeepsSchema(t *testing.T) {
	tbl := New(testSchema)
	require.Equal(t, 0, tbl.Len())
	require.Equal(t, []string{"id", "title", "tags", "created", "metrics"}, tbl.Columns())
	require.Empty(t, tbl.Rows())
}

func TestNewSchemaPanicsOnDuplicates(t *testing.T) {
	require.Panics(t, func() {
		NewSchema(Field{Name: "a"}, Field{Name: "a", Kind: Int})
	})
}

func TestAppend(t *testing.T) {
	created := time.Date(2023, 12, 4, 19, 38, 19, 0, time.UTC)

	tbl := New(testSchema)
	require.NoError(t, tbl.Append(Row{
		"id":      int64(1),
		"title":   "first",
		"tags":    []string{"a", "b"},
		"created": created,
		"metrics": map[string]any{"likes": 1.0},
	}))
	require.NoError(t, tbl.Append(Row{"id": int64(2)}))

	require.Equal(t, 2, tbl.Len())
	require.Equal(t, "first", tbl.Value(0, "title"))
	require.Nil(t, tbl.Value(1, "title"))
	require.Nil(t, tbl.Value(1, "unknown"))
	require.Equal(t, []any{int64(1), int64(2)}, tbl.Column("id"))

	diff := cmp.Diff(Row{
		"id":      int64(2),
		"title":   nil,
		"tags":    nil,
		"created": nil,
		"metrics": nil,
	}, tbl.Row(1))
	require.Empty(t, diff)
}

func TestAppendRejectsInvalidRows(t *testing.T) {
	tbl := New(testSchema)

	err := tbl.Append(Row{"nope": "x"})
	require.ErrorIs(t, err, ErrUnknownColumn)

	err = tbl.Append(Row{"id": "not an int"})
	require.ErrorIs(t, err, ErrKindMismatch)

	require.Equal(t, 0, tbl.Len())
}

func TestConcat(t *testing.T) {
	a := New(testSchema)
	b := New(testSchema)
	require.NoError(t, a.Append(Row{"id": int64(1)}))
	require.NoError(t, b.Append(Row{"id": int64(2)}))
	require.NoError(t, b.Append(Row{"id": int64(3)}))

	require.NoError(t, a.Concat(b))
	require.Equal(t, []any{int64(1), int64(2), int64(3)}, a.Column("id"))

	other := New(NewSchema(Field{Name: "id", Kind: String}))
	require.ErrorIs(t, a.Concat(other), ErrSchemaMismatch)
}

func TestProject(t *testing.T) {
	row, dropped := testSchema.Project(map[string]any{
		"title": "x",
		"zeta":  1,
		"alpha": 2,
	})
	require.Equal(t, Row{"title": "x"}, row)
	require.Equal(t, []string{"alpha", "zeta"}, dropped)
}

func TestRender(t *testing.T) {
	tbl := New(testSchema)
	require.NoError(t, tbl.Append(Row{
		"id":    int64(7),
		"title": "hello",
		"tags":  []string{"x", "y"},
	}))

	var csv bytes.Buffer
	require.NoError(t, Render(&csv, tbl, FormatCSV))
	rendered := strings.ToLower(csv.String())
	require.Contains(t, rendered, "id,title,tags,created,metrics")
	require.Contains(t, rendered, "7,hello,x; y,,")

	var out bytes.Buffer
	require.NoError(t, Render(&out, tbl, FormatJSON))
	var decoded struct {
		Columns []string         `json:"columns"`
		Rows    []map[string]any `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Equal(t, testSchema.Columns(), decoded.Columns)
	require.Len(t, decoded.Rows, 1)
	require.Equal(t, "hello", decoded.Rows[0]["title"])

	var md bytes.Buffer
	require.NoError(t, Render(&md, New(testSchema), FormatMarkdown))
	rendered = strings.ToLower(md.String())
	for _, column := range testSchema.Columns() {
		require.Contains(t, rendered, column)
	}
}

func TestRenderJSONKeepsColumnOrder(t *testing.T) {
	tbl := New(testSchema)
	require.NoError(t, tbl.Append(Row{"title": "hello", "id": int64(7)}))

	var out bytes.Buffer
	require.NoError(t, Render(&out, tbl, FormatJSON))

	var compact bytes.Buffer
	require.NoError(t, json.Compact(&compact, out.Bytes()))
	require.Contains(t, compact.String(),
		`"rows":[{"id":7,"title":"hello","tags":null,"created":null,"metrics":null}]`)
}

func TestRenderJSONEmptyTable(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Render(&out, New(testSchema), FormatJSON))

	var compact bytes.Buffer
	require.NoError(t, json.Compact(&compact, out.Bytes()))
	require.Equal(t,
		`{"columns":["id","title","tags","created","metrics"],"rows":[]}`,
		compact.String(),
	)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("CSV")
	require.NoError(t, err)
	require.Equal(t, FormatCSV, f)

	_, err = ParseFormat("xml")
	require.Error(t, err)
}
