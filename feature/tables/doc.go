// Package tables exposes database tables over HTTP.
//
// Routes:
//
//	GET  /tables/:name          rows, with fields, order, skip, take and col=value filters
//	GET  /tables/:name/first    first matching row, 404 when none
//	GET  /tables/:name/schema   stored column schema
//	POST /tables/:name/changes  {"insert":[...],"update":[...],"delete":[...],"dry_run":false}
//
// Changes run in one transaction through the database adapter. Updates and
// deletes address rows by primary key; the rows are read inside the
// transaction, modified in memory and reconciled. Inserted rows are returned
// with their generated identity values.
package tables
