package result

import (
	"github.com/burakenal/data/core/table"
)

// TableCursor iterates the live rows of an in-memory table. Deleted rows are skipped.
type TableCursor struct {
	t    *table.Table
	cols []table.Column
	rows []*table.Row
	pos  int
}

func NewTableCursor(t *table.Table) *TableCursor {
	var live []*table.Row
	for _, r := range t.Rows() {
		if r.State() != table.Deleted {
			live = append(live, r)
		}
	}
	return &TableCursor{t: t, cols: t.Columns(), rows: live, pos: -1}
}

func (c *TableCursor) Next() bool {
	if c.pos+1 >= len(c.rows) {
		c.pos = len(c.rows)
		return false
	}
	c.pos++
	return true
}

func (c *TableCursor) Err() error   { return nil }
func (c *TableCursor) Close() error { return nil }

func (c *TableCursor) FieldCount() int                 { return len(c.cols) }
func (c *TableCursor) FieldName(i int) string          { return c.cols[i].Name }
func (c *TableCursor) FieldType(i int) table.ValueType { return c.cols[i].Type }

func (c *TableCursor) Value(i int) any {
	return c.rows[c.pos].GetAt(i)
}

func (c *TableCursor) ValueByName(name string) (any, bool) {
	return c.rows[c.pos].Lookup(name)
}

func (c *TableCursor) Schema() ([]ColumnSchema, error) {
	keys := map[string]bool{}
	for _, k := range c.t.PrimaryKey() {
		keys[k.Name] = true
	}
	out := make([]ColumnSchema, len(c.cols))
	for i, col := range c.cols {
		out[i] = ColumnSchema{
			Name:       col.Name,
			Type:       col.Type,
			IsIdentity: col.IsIdentity,
			IsKey:      keys[col.Name],
			Nullable:   col.Nullable,
		}
	}
	return out, nil
}
