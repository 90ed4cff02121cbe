// Package database handles database connections, schema inspection and the
// Adapter that ties commands, reconciliation and materialization together.
//
// # Connect
//
// Connect opens a GORM connection for MySQL or SQLite based on Config and
// verifies it with a ping.
//
// # Schema Inspection
//
// GetTableColumns reads column definitions with SHOW COLUMNS on MySQL and
// PRAGMA table_info on SQLite. SchemaCache turns them into result.ColumnSchema
// values (type, key, identity, nullability) and keeps them for a TTL.
//
// # Adapter
//
// The Adapter reads into Go values or tables and writes table changes back.
// Each call checks out its own connection unless the adapter is bound to a
// transaction with WithTx.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	adapter, _ := database.NewAdapter(db, cfg.Adapter, logger)
//	users, err := adapter.ToTable(ctx, query.From("users"))
//	users.Find(int64(1)).Set("name", "Ada")
//	affected, err := adapter.Sync(ctx, "users", users)
package database
