// Package command renders query descriptions into parameterized statements.
//
// A Command carries its text and an ordered parameter list. Parameters are
// either fixed values, producers evaluated on every bind, or bindings to a
// source column that Bind resolves per row. The reconciler prepares a command
// once and calls Bind for each row it executes.
//
// ClauseBuilder is the default Builder. It renders through gorm's clause
// package, so identifiers and bind variables follow the dialector the
// *gorm.DB was opened with:
//
//	b := command.NewBuilder(db)
//	cmd, _ := b.UpdateCommand("users", query.KeyEquals("id"), query.ParamChangeset("name"))
//	// UPDATE `users` SET `name`=? WHERE `id` = ?
//
// Execution failures are wrapped in ExecError so callers see the failing
// statement; IsConstraintViolation classifies MySQL and SQLite constraint errors.
package command
