// Package query is the dialect-free description of reads and writes.
//
// Values are Constant, Param (bound per row from a source column), Producer
// (evaluated at bind time) and FieldRef. Predicates are built from Compare
// nodes joined with And, Or and Not. A Select targets one table; a Changeset
// is the ordered list of column assignments an insert or update writes.
//
// Rendering to SQL is done by core/command.
//
//	sel := query.From("users").
//	    WithFields("id", "name").
//	    WithWhere(query.And(query.Eq("active", true), query.Gt("age", 17))).
//	    WithTake(10)
package query
