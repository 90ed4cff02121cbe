package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/burakenal/data/core/command"
	"github.com/burakenal/data/core/query"
	"github.com/burakenal/data/core/reconcile"
	"github.com/burakenal/data/core/result"
	"github.com/burakenal/data/core/table"
)

// ErrTableNotFound is returned by NewTable when the backend reports no columns.
var ErrTableNotFound = errors.New("table not found")

// Adapter runs reads and reconciliations against one database. Without a
// transaction each call checks out a dedicated connection and returns it
// before the call ends. With WithTx every call runs on the transaction, which
// the caller commits or rolls back.
type Adapter struct {
	db      *gorm.DB
	sqlDB   *sql.DB
	builder *command.ClauseBuilder
	schema  *SchemaCache
	tx      *sql.Tx
	cfg     AdapterConfig
	logger  *zap.Logger
}

// NewAdapter creates an adapter over db with its own schema cache.
func NewAdapter(db *gorm.DB, cfg AdapterConfig, logger *zap.Logger) (*Adapter, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		db:      db,
		sqlDB:   sqlDB,
		builder: command.NewBuilder(db),
		schema:  NewSchemaCache(db, time.Duration(cfg.SchemaCacheTTLSeconds)*time.Second),
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// WithTx returns a copy of the adapter bound to tx.
func (a *Adapter) WithTx(tx *sql.Tx) *Adapter {
	cp := *a
	cp.tx = tx
	return &cp
}

// WithSchemaCache returns a copy of the adapter that resolves schemas through cache.
func (a *Adapter) WithSchemaCache(cache *SchemaCache) *Adapter {
	cp := *a
	cp.schema = cache
	return &cp
}

// Begin starts a transaction on the adapter's pool.
func (a *Adapter) Begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := a.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// SchemaCache returns the cache the adapter resolves table schemas with.
func (a *Adapter) SchemaCache() *SchemaCache {
	return a.schema
}

// Dialect returns the connected backend's name.
func (a *Adapter) Dialect() string {
	return a.builder.Dialect()
}

// NewTable builds an empty table whose columns, primary key and identity
// column mirror the stored schema of name.
func (a *Adapter) NewTable(ctx context.Context, name string) (*table.Table, error) {
	schema, err := a.schema.TableSchema(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(schema) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}

	t := table.New(name)
	var keys []string
	for _, s := range schema {
		if err := t.AddColumns(table.Column{Name: s.Name, Type: s.Type, IsIdentity: s.IsIdentity, Nullable: s.Nullable}); err != nil {
			return nil, err
		}
		if s.IsKey {
			keys = append(keys, s.Name)
		}
	}
	if len(keys) > 0 {
		if err := t.SetPrimaryKey(keys...); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Sync writes the pending changes of t to tableName.
func (a *Adapter) Sync(ctx context.Context, tableName string, t *table.Table) (int64, error) {
	var affected int64
	err := a.withExecutor(ctx, func(exec command.Executor) error {
		n, err := reconcile.New(a.builder, exec, a.logger).Sync(ctx, tableName, t)
		affected = n
		return err
	})
	return affected, err
}

// Plan lists the writes Sync would perform without executing them.
func (a *Adapter) Plan(tableName string, t *table.Table) (*reconcile.Plan, error) {
	return reconcile.BuildPlan(tableName, t)
}

// Apply plans and, when opts allow it, syncs t.
func (a *Adapter) Apply(ctx context.Context, tableName string, t *table.Table, opts reconcile.Options) (*reconcile.Plan, int64, error) {
	var (
		plan     *reconcile.Plan
		affected int64
	)
	err := a.withExecutor(ctx, func(exec command.Executor) error {
		var err error
		plan, affected, err = reconcile.New(a.builder, exec, a.logger).Apply(ctx, tableName, t, opts)
		return err
	})
	return plan, affected, err
}

// ToDictionary reads the first row of sel as a mapping, or nil.
func (a *Adapter) ToDictionary(ctx context.Context, sel query.Select) (map[string]any, error) {
	var out map[string]any
	err := a.read(ctx, firstOf(sel), false, func(cur result.Cursor, opts result.Options) error {
		var err error
		out, err = result.ToDictionary(ctx, cur, opts)
		return err
	})
	return out, err
}

// ToDictionaryList reads the rows of sel as mappings.
func (a *Adapter) ToDictionaryList(ctx context.Context, sel query.Select) ([]map[string]any, error) {
	var out []map[string]any
	err := a.read(ctx, sel, false, func(cur result.Cursor, opts result.Options) error {
		var err error
		out, err = result.ToDictionaryList(ctx, cur, opts)
		return err
	})
	return out, err
}

// ToTable materializes sel into a table named after sel.From, using the
// stored schema for keys and identity columns.
func (a *Adapter) ToTable(ctx context.Context, sel query.Select) (*table.Table, error) {
	var out *table.Table
	err := a.read(ctx, sel, true, func(cur result.Cursor, opts result.Options) error {
		var err error
		out, err = result.ToTable(ctx, cur, sel.From, opts)
		return err
	})
	return out, err
}

// Fill loads the rows of sel into t and returns how many were loaded.
func (a *Adapter) Fill(ctx context.Context, sel query.Select, t *table.Table) (int, error) {
	var n int
	err := a.read(ctx, sel, true, func(cur result.Cursor, opts result.Options) error {
		var err error
		n, err = result.Fill(ctx, cur, t, opts)
		return err
	})
	return n, err
}

// First reads the first row of sel as T. Zero rows yield T's zero value.
func First[T any](ctx context.Context, a *Adapter, sel query.Select) (T, error) {
	var out T
	err := a.read(ctx, firstOf(sel), false, func(cur result.Cursor, opts result.Options) error {
		var err error
		out, err = result.First[T](ctx, cur, opts)
		return err
	})
	return out, err
}

// ToList reads the rows of sel as a slice of T.
func ToList[T any](ctx context.Context, a *Adapter, sel query.Select) ([]T, error) {
	var out []T
	err := a.read(ctx, sel, false, func(cur result.Cursor, opts result.Options) error {
		var err error
		out, err = result.ToList[T](ctx, cur, opts)
		return err
	})
	return out, err
}

// read runs sel and hands the open cursor to fn. The connection is released
// after fn returns; fn owns closing the cursor.
func (a *Adapter) read(ctx context.Context, sel query.Select, rich bool, fn func(result.Cursor, result.Options) error) error {
	var opts []result.CursorOption
	if rich {
		// resolved up front so the lookup never needs a second connection
		schema, err := a.schema.TableSchema(ctx, sel.From)
		if err != nil {
			a.logger.Warn("Falling back to result metadata", zap.String("table", sel.From), zap.Error(err))
		} else {
			opts = append(opts, result.WithSchemaSource(ctx, schemaSnapshot(schema), sel.From))
		}
	}

	cmdSel, readOpts := a.readPlan(sel)
	cmd, err := a.builder.SelectCommand(cmdSel)
	if err != nil {
		return err
	}

	return a.withExecutor(ctx, func(exec command.Executor) error {
		a.logger.Debug("Executing query", zap.Stringer("command", cmd))
		rows, err := exec.QueryContext(ctx, cmd.Text, cmd.Args()...)
		if err != nil {
			return command.Wrap(cmd, err)
		}
		cur, err := result.NewSQLCursor(rows, opts...)
		if err != nil {
			return command.Wrap(cmd, err)
		}
		return fn(cur, readOpts)
	})
}

// readPlan splits sel into the command to run and the client-side options.
func (a *Adapter) readPlan(sel query.Select) (query.Select, result.Options) {
	opts := result.Options{Fields: sel.Fields, Max: a.cfg.MaxRecords}
	if sel.Take > 0 && (opts.Max == 0 || sel.Take < opts.Max) {
		opts.Max = sel.Take
	}
	if a.cfg.ApplySkip && sel.Skip > 0 {
		opts.Skip = sel.Skip
		opts.ApplySkip = true
		take := sel.Take
		if take > 0 {
			take += sel.Skip
		}
		sel = sel.WithSkip(0).WithTake(take)
	}
	return sel, opts
}

func (a *Adapter) withExecutor(ctx context.Context, fn func(command.Executor) error) error {
	if a.tx != nil {
		return fn(a.tx)
	}
	conn, err := a.sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			a.logger.Warn("Failed to release connection", zap.Error(err))
		}
	}()
	return fn(conn)
}

func firstOf(sel query.Select) query.Select {
	if sel.Take == 0 || sel.Take > 1 {
		return sel.WithTake(1)
	}
	return sel
}

// schemaSnapshot serves an already resolved schema.
type schemaSnapshot []result.ColumnSchema

func (s schemaSnapshot) TableSchema(context.Context, string) ([]result.ColumnSchema, error) {
	return s, nil
}
