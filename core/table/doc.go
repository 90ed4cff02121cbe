// Package table holds the in-memory tabular data model used by the reconciler
// and produced by the result materializer.
//
// A Table owns a fixed column schema, an optional ordered primary key and an
// ordered list of rows. Every Row carries a lifecycle state:
//
//   - Added: created in memory (Add, AddMap, AddRow)
//   - Modified: a value was assigned to an Unchanged row (Set)
//   - Deleted: Delete was called; values are retained for key binding
//   - Unchanged: the row mirrors the store (Load, AcceptChanges)
//
// AcceptChanges is the only way back to Unchanged; accepting a Deleted row
// physically removes it from the table.
//
// # Usage
//
//	users := table.New("users")
//	_ = users.AddColumns(
//	    table.Column{Name: "id", Type: table.TypeInt, IsIdentity: true},
//	    table.Column{Name: "name", Type: table.TypeString},
//	)
//	_ = users.SetPrimaryKey("id")
//
//	row, _ := users.AddMap(map[string]any{"name": "Ada"})
//	fmt.Println(row.State()) // added
package table
