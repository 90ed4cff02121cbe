// Package snapshot stores whole tables as JSON objects in a bucket and
// brings tables back in line with them.
//
// Export reads a table with its stored schema and uploads it to
// <prefix><table>.json. Import downloads that object, diffs it against the
// live rows and hands the result to the reconciler: missing rows become
// inserts, differing rows become updates and, with prune, rows absent from
// the snapshot become deletes. Nothing is written unless the import is
// confirmed and not a dry run; the plan is always returned.
//
// Routes:
//
//	GET  /snapshots
//	POST /snapshots/:table
//	POST /snapshots/:table/import?prune=&dry_run=&confirm=
//	DELETE /snapshots/:table
package snapshot
