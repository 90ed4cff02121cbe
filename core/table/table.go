package table

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrUnknownColumn   = errors.New("unknown column")
	ErrSchemaLocked    = errors.New("columns cannot change once the table has rows")
	ErrValueCount      = errors.New("value count does not match column count")
	ErrRowDeleted      = errors.New("row is deleted")
	ErrForeignRow      = errors.New("row belongs to another table or is already attached")
	ErrInvalidValue    = errors.New("value does not fit the column type")
)

// Table is an ordered collection of rows sharing one column schema.
type Table struct {
	// Name is informational; commands take the target table name explicitly.
	Name string

	columns    []Column
	ordinals   map[string]int
	primaryKey []int
	rows       []*Row
}

// New creates an empty table without columns.
func New(name string) *Table {
	return &Table{
		Name:     name,
		ordinals: make(map[string]int),
	}
}

// AddColumns appends columns to the schema. The schema is fixed once the
// table holds rows.
func (t *Table) AddColumns(columns ...Column) error {
	if len(t.rows) > 0 {
		return ErrSchemaLocked
	}
	for _, c := range columns {
		key := strings.ToLower(c.Name)
		if _, exists := t.ordinals[key]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateColumn, c.Name)
		}
		t.ordinals[key] = len(t.columns)
		t.columns = append(t.columns, c)
	}
	return nil
}

// Columns returns a copy of the column schema in ordinal order.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// Column looks up a column by name.
func (t *Table) Column(name string) (Column, bool) {
	i := t.Ordinal(name)
	if i < 0 {
		return Column{}, false
	}
	return t.columns[i], true
}

// Ordinal returns the position of the named column or -1.
func (t *Table) Ordinal(name string) int {
	if i, ok := t.ordinals[strings.ToLower(name)]; ok {
		return i
	}
	return -1
}

// SetPrimaryKey declares the ordered key columns. Calling it without names
// clears the key.
func (t *Table) SetPrimaryKey(names ...string) error {
	key := make([]int, 0, len(names))
	for _, name := range names {
		i := t.Ordinal(name)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrUnknownColumn, name)
		}
		key = append(key, i)
	}
	t.primaryKey = key
	return nil
}

// PrimaryKey returns the key columns in declaration order.
func (t *Table) PrimaryKey() []Column {
	out := make([]Column, len(t.primaryKey))
	for i, ord := range t.primaryKey {
		out[i] = t.columns[ord]
	}
	return out
}

// IdentityColumn returns the first column flagged as identity.
func (t *Table) IdentityColumn() (Column, bool) {
	for _, c := range t.columns {
		if c.IsIdentity {
			return c, true
		}
	}
	return Column{}, false
}

// Len returns the number of attached rows, deleted ones included.
func (t *Table) Len() int {
	return len(t.rows)
}

// Rows returns a snapshot of the attached rows. Accepting or deleting rows
// while iterating the snapshot is safe.
func (t *Table) Rows() []*Row {
	out := make([]*Row, len(t.rows))
	copy(out, t.rows)
	return out
}

// NewRow creates a detached row with the table's schema. Use AddRow to attach it.
func (t *Table) NewRow() *Row {
	return &Row{
		table:   t,
		state:   Detached,
		current: make([]any, len(t.columns)),
	}
}

// AddRow attaches a detached row created by NewRow in the Added state.
func (t *Table) AddRow(r *Row) error {
	if r.table != t || r.state != Detached {
		return ErrForeignRow
	}
	r.state = Added
	r.original = nil
	t.rows = append(t.rows, r)
	return nil
}

// Add appends a new row in the Added state from positional values.
func (t *Table) Add(values ...any) (*Row, error) {
	if len(values) != len(t.columns) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrValueCount, len(values), len(t.columns))
	}
	r := t.NewRow()
	copy(r.current, values)
	return r, t.AddRow(r)
}

// AddMap appends a new row in the Added state. Columns missing from values are nil.
func (t *Table) AddMap(values map[string]any) (*Row, error) {
	r := t.NewRow()
	for name, v := range values {
		i := t.Ordinal(name)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
		}
		r.current[i] = v
	}
	return r, t.AddRow(r)
}

// Load appends a row that mirrors the backing store, so it starts Unchanged.
func (t *Table) Load(values ...any) (*Row, error) {
	if len(values) != len(t.columns) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrValueCount, len(values), len(t.columns))
	}
	r := &Row{
		table:   t,
		state:   Unchanged,
		current: append([]any(nil), values...),
	}
	r.original = append([]any(nil), values...)
	t.rows = append(t.rows, r)
	return r, nil
}

// Find returns the first non-deleted row whose primary key equals key.
func (t *Table) Find(key ...any) *Row {
	if len(t.primaryKey) == 0 || len(key) != len(t.primaryKey) {
		return nil
	}
	for _, r := range t.rows {
		if r.state == Deleted {
			continue
		}
		match := true
		for i, ord := range t.primaryKey {
			if !t.columns[ord].Equal(r.current[ord], key[i]) {
				match = false
				break
			}
		}
		if match {
			return r
		}
	}
	return nil
}

// HasChanges reports whether any row is pending an insert, update or delete.
func (t *Table) HasChanges() bool {
	for _, r := range t.rows {
		if r.state != Unchanged {
			return true
		}
	}
	return false
}

// AcceptChanges commits every row's pending state.
func (t *Table) AcceptChanges() {
	for _, r := range t.Rows() {
		r.AcceptChanges()
	}
}

// RejectChanges rolls every row back to its last accepted values.
func (t *Table) RejectChanges() {
	for _, r := range t.Rows() {
		r.RejectChanges()
	}
}

func (t *Table) remove(r *Row) {
	for i, candidate := range t.rows {
		if candidate == r {
			t.rows = append(t.rows[:i], t.rows[i+1:]...)
			return
		}
	}
}
