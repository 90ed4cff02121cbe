// Package reconcile writes the pending changes of an in-memory table.Table
// back to a relational database.
//
// Each row's lifecycle state selects its command:
//   - Added rows are inserted with every non-identity column
//   - Modified rows are updated by primary key with every non-identity column
//   - Deleted rows are deleted by primary key
//   - Unchanged and Detached rows are skipped
//
// # Architecture
//
// A Sync run renders commands through a command.Factory and prepares them on
// a command.Executor. At most one command per kind is built per run, the
// first time a row needs it, and every prepared statement is closed when the
// run ends. Parameters bind to column names, so a cached command serves every
// row of its kind.
//
// After an insert into a table with an identity column, the generated value
// is read back on the same executor and stored in the row. Callers pass a
// *sql.Conn or *sql.Tx so the read happens on the inserting connection.
//
// Rows are processed in table order and accepted as soon as they are handled,
// successfully or not. The first failure ends the run with a *RowError.
//
// # Usage Example
//
//	builder := command.NewBuilder(gormDB)
//	conn, _ := sqlDB.Conn(ctx)
//	defer conn.Close()
//
//	r := reconcile.New(builder, conn, logger)
//	affected, err := r.Sync(ctx, "users", users)
//
//	// Preview without writing
//	plan, err := reconcile.BuildPlan("users", users)
//
// Apply combines both and only writes when Options.Confirmed is set and
// Options.DryRun is not.
package reconcile
