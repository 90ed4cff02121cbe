package result

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/burakenal/data/core/table"
)

// CursorOption configures an SQLCursor.
type CursorOption func(*SQLCursor)

// WithSchemaSource lets the cursor describe its columns using the stored
// schema of tableName. Columns missing from the stored schema, such as
// computed expressions, keep their basic description.
func WithSchemaSource(ctx context.Context, src SchemaSource, tableName string) CursorOption {
	return func(c *SQLCursor) {
		c.schemaCtx = ctx
		c.schemaSrc = src
		c.schemaTable = tableName
	}
}

// SQLCursor adapts *sql.Rows.
type SQLCursor struct {
	rows     *sql.Rows
	names    []string
	types    []table.ValueType
	ordinals map[string]int
	values   []any
	err      error

	schemaCtx   context.Context
	schemaSrc   SchemaSource
	schemaTable string
}

// NewSQLCursor wraps rows. The cursor takes ownership and closes rows on Close.
func NewSQLCursor(rows *sql.Rows, opts ...CursorOption) (*SQLCursor, error) {
	names, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}
	c := &SQLCursor{
		rows:     rows,
		names:    names,
		types:    make([]table.ValueType, len(names)),
		ordinals: make(map[string]int, len(names)),
		values:   make([]any, len(names)),
	}
	for i, n := range names {
		if _, dup := c.ordinals[strings.ToLower(n)]; !dup {
			c.ordinals[strings.ToLower(n)] = i
		}
	}
	if colTypes, err := rows.ColumnTypes(); err == nil {
		for i, ct := range colTypes {
			c.types[i] = typeOfColumn(ct)
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *SQLCursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}
	ptrs := make([]any, len(c.values))
	for i := range c.values {
		ptrs[i] = &c.values[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		c.err = fmt.Errorf("failed to scan row: %w", err)
		return false
	}
	for i, v := range c.values {
		if b, ok := v.([]byte); ok {
			c.values[i] = c.fromBytes(i, b)
		}
	}
	return true
}

// fromBytes decodes a value the driver returned as raw bytes. MySQL sends
// text columns, and every column of an unprepared query, that way.
func (c *SQLCursor) fromBytes(i int, b []byte) any {
	switch c.types[i] {
	case table.TypeBytes:
		return b
	case table.TypeInt, table.TypeFloat, table.TypeBool, table.TypeTime:
		if v, err := (table.Column{Name: c.names[i], Type: c.types[i]}).Coerce(b); err == nil {
			return v
		}
	}
	// decimals stay textual to keep their precision
	return string(b)
}

func (c *SQLCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

func (c *SQLCursor) Close() error {
	return c.rows.Close()
}

func (c *SQLCursor) FieldCount() int                 { return len(c.names) }
func (c *SQLCursor) FieldName(i int) string          { return c.names[i] }
func (c *SQLCursor) FieldType(i int) table.ValueType { return c.types[i] }
func (c *SQLCursor) Value(i int) any                 { return c.values[i] }

func (c *SQLCursor) ValueByName(name string) (any, bool) {
	i, ok := c.ordinals[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return c.values[i], true
}

// Schema merges the stored table schema into the cursor's columns.
func (c *SQLCursor) Schema() ([]ColumnSchema, error) {
	if c.schemaSrc == nil {
		return nil, ErrNoSchema
	}
	ctx := c.schemaCtx
	if ctx == nil {
		ctx = context.Background()
	}
	stored, err := c.schemaSrc.TableSchema(ctx, c.schemaTable)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema for %s: %w", c.schemaTable, err)
	}
	byName := make(map[string]ColumnSchema, len(stored))
	for _, s := range stored {
		byName[strings.ToLower(s.Name)] = s
	}

	out := make([]ColumnSchema, len(c.names))
	for i, n := range c.names {
		s, ok := byName[strings.ToLower(n)]
		if !ok {
			out[i] = ColumnSchema{Name: n, Type: c.types[i], Nullable: true}
			continue
		}
		s.Name = n
		if s.Type == table.TypeAny {
			s.Type = c.types[i]
		}
		out[i] = s
	}
	return out, nil
}

func typeOfColumn(ct *sql.ColumnType) table.ValueType {
	if vt := table.TypeFromDatabaseName(ct.DatabaseTypeName()); vt != table.TypeAny {
		return vt
	}
	st := ct.ScanType()
	if st == nil {
		return table.TypeAny
	}
	// sql.NullInt64 and friends wrap the value in their first field
	if st.Kind() == reflect.Struct && st.NumField() == 2 && st.Field(1).Name == "Valid" {
		st = st.Field(0).Type
	}
	if st.Kind() == reflect.Interface {
		return table.TypeAny
	}
	return table.TypeOf(reflect.Zero(st).Interface())
}
