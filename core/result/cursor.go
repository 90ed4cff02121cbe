package result

import (
	"context"
	"errors"

	"github.com/burakenal/data/core/table"
)

var (
	// ErrNoSchema is returned by SchemaCursor.Schema when no rich metadata is
	// available. The materializer then infers names and coarse types itself.
	ErrNoSchema = errors.New("no column schema available")
	// ErrFieldNotFound is returned when a named field is missing from the cursor.
	ErrFieldNotFound = errors.New("field not found in result")
)

// Cursor is a forward-only row stream. Values are valid until the next call to Next.
type Cursor interface {
	Next() bool
	Err() error
	Close() error

	FieldCount() int
	FieldName(i int) string
	// FieldType is the coarse type the backend reports, TypeAny if unknown.
	FieldType(i int) table.ValueType
	Value(i int) any
	ValueByName(name string) (any, bool)
}

// ColumnSchema is rich per-column metadata.
type ColumnSchema struct {
	Name       string
	Type       table.ValueType
	IsIdentity bool
	IsKey      bool
	Nullable   bool
}

// SchemaCursor is a Cursor that can describe its columns in detail.
type SchemaCursor interface {
	Cursor
	Schema() ([]ColumnSchema, error)
}

// SchemaSource resolves the stored schema of a table.
type SchemaSource interface {
	TableSchema(ctx context.Context, table string) ([]ColumnSchema, error)
}
