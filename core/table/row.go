package table

import (
	"fmt"
)

// RowState is the lifecycle state of a row relative to the backing store.
type RowState int

const (
	// Unchanged rows mirror the backing store.
	Unchanged RowState = iota
	// Added rows were created in memory and need an insert.
	Added
	// Modified rows had a value assigned and need an update.
	Modified
	// Deleted rows need a delete. They keep their values until accepted.
	Deleted
	// Detached rows are not part of any table's row collection.
	Detached
)

func (s RowState) String() string {
	switch s {
	case Unchanged:
		return "unchanged"
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	case Detached:
		return "detached"
	default:
		return fmt.Sprintf("RowState(%d)", int(s))
	}
}

// Row is one record of a Table.
type Row struct {
	table    *Table
	state    RowState
	current  []any
	original []any
}

// Table returns the table that owns the row's schema.
func (r *Row) Table() *Table {
	return r.table
}

// State returns the row's lifecycle state.
func (r *Row) State() RowState {
	return r.state
}

// Get returns the current value of a column, or nil for unknown columns.
func (r *Row) Get(name string) any {
	v, _ := r.Lookup(name)
	return v
}

// Lookup returns the current value of a column and whether the column exists.
func (r *Row) Lookup(name string) (any, bool) {
	i := r.table.Ordinal(name)
	if i < 0 {
		return nil, false
	}
	return r.current[i], true
}

// GetAt returns the current value at a column ordinal.
func (r *Row) GetAt(i int) any {
	return r.current[i]
}

// Original returns the value last accepted for a column. Rows that were never
// accepted return their current value.
func (r *Row) Original(name string) any {
	i := r.table.Ordinal(name)
	if i < 0 {
		return nil
	}
	if r.original == nil {
		return r.current[i]
	}
	return r.original[i]
}

// Set assigns a column value. An Unchanged row becomes Modified; Added rows stay Added.
func (r *Row) Set(name string, v any) error {
	i := r.table.Ordinal(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	if r.state == Deleted {
		return ErrRowDeleted
	}
	r.current[i] = v
	if r.state == Unchanged {
		r.state = Modified
	}
	return nil
}

// Values returns the current values keyed by column name.
func (r *Row) Values() map[string]any {
	out := make(map[string]any, len(r.current))
	for i, c := range r.table.columns {
		out[c.Name] = r.current[i]
	}
	return out
}

// Delete marks the row for deletion. An Added row has nothing to delete in the
// store, so it is detached right away.
func (r *Row) Delete() {
	switch r.state {
	case Added:
		r.table.remove(r)
		r.state = Detached
	case Unchanged, Modified:
		r.state = Deleted
	}
}

// AcceptChanges commits the row's pending state: Deleted rows are removed from
// the table, every other attached row becomes Unchanged.
func (r *Row) AcceptChanges() {
	switch r.state {
	case Deleted:
		r.table.remove(r)
		r.state = Detached
	case Added, Modified:
		r.original = append([]any(nil), r.current...)
		r.state = Unchanged
	}
}

// RejectChanges restores the last accepted values. Added rows are removed.
func (r *Row) RejectChanges() {
	switch r.state {
	case Added:
		r.table.remove(r)
		r.state = Detached
	case Modified, Deleted:
		copy(r.current, r.original)
		r.state = Unchanged
	}
}
