// Package result turns forward-only row cursors into Go values.
//
// Entry points:
//
//   - First[T]: the first row as T, or T's zero value when there are no rows
//   - ToDictionary: the first row as a name to value mapping, or nil
//   - ToList[T] and ToDictionaryList: up to Options.Max rows in cursor order
//   - ToTable and Fill: an in-memory table.Table whose rows are all Unchanged
//
// When T is a scalar (numbers, strings, bools, times, byte slices) a single
// column result is converted with utils.ConvertTo. Wider results read the first
// entry of Options.Fields, and without one the zero value is returned. A
// map[string]any T receives the raw record; any other T is decoded by
// DecodeRecord, which matches `db` tags through mapstructure.
//
// # Schema inference
//
// ToTable asks a SchemaCursor for rich metadata first: type, key and identity
// flags. SQLCursor provides it when created WithSchemaSource; TableCursor
// always does. Otherwise columns get the backend's coarse type, and columns
// still untyped take the type of the first row's value.
//
// # Offsets
//
// Options.Skip is applied client-side only when Options.ApplySkip is set. The
// database adapter sets both when the command itself carries no OFFSET.
//
// Every entry point closes the cursor before returning.
package result
