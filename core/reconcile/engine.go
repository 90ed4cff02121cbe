package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/burakenal/data/core/command"
	"github.com/burakenal/data/core/table"
)

// Reconciler pushes the pending row states of in-memory tables to a database.
type Reconciler struct {
	factory command.Factory
	exec    command.Executor
	logger  *zap.Logger
}

// New creates a reconciler that renders commands with factory and runs them
// on exec. Identity values are read back through exec as well, so exec must
// pin a single connection (a *sql.Conn or *sql.Tx) for them to be correct.
func New(factory command.Factory, exec command.Executor, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{factory: factory, exec: exec, logger: logger}
}

// Sync executes one insert, update or delete per pending row of t against
// tableName, in row order, and returns the summed affected-row counts.
//
// Every handled row is accepted, including the row whose command failed.
// The first failure stops the run and is returned as a *RowError.
func (r *Reconciler) Sync(ctx context.Context, tableName string, t *table.Table) (int64, error) {
	if err := validate(tableName, t); err != nil {
		return 0, err
	}

	start := time.Now()
	log := r.logger.With(zap.String("run_id", uuid.NewString()), zap.String("table", tableName))
	cache := newCommandCache(r.factory, r.exec, tableName, t)
	defer func() {
		if err := cache.release(); err != nil {
			log.Warn("Failed to release prepared commands", zap.Error(err))
		}
	}()

	identity, hasIdentity := t.IdentityColumn()
	var affected int64
	var summary PlanSummary

	for i, row := range t.Rows() {
		state := row.State()
		if state != table.Added && state != table.Modified && state != table.Deleted {
			summary.Unchanged++
			continue
		}
		if err := ctx.Err(); err != nil {
			return affected, err
		}

		n, err := r.apply(ctx, cache, row, state, identity, hasIdentity)
		row.AcceptChanges()
		// an insert whose key could not be read back still ran
		affected += n
		if err != nil {
			log.Error("Row reconciliation failed",
				zap.Int("row", i),
				zap.Stringer("state", state),
				zap.Error(err))
			return affected, &RowError{Index: i, State: state, Err: err}
		}

		switch state {
		case table.Added:
			summary.Inserts++
		case table.Modified:
			summary.Updates++
		case table.Deleted:
			summary.Deletes++
		}
		log.Debug("Row reconciled",
			zap.Int("row", i),
			zap.Stringer("state", state),
			zap.Int64("affected", n))
	}

	log.Info("Reconciliation completed",
		zap.Int("inserts", summary.Inserts),
		zap.Int("updates", summary.Updates),
		zap.Int("deletes", summary.Deletes),
		zap.Int("unchanged", summary.Unchanged),
		zap.Int("commands", cache.built()),
		zap.Int64("affected", affected),
		zap.Duration("duration", time.Since(start)))
	return affected, nil
}

func (r *Reconciler) apply(ctx context.Context, cache *commandCache, row *table.Row, state table.RowState, identity table.Column, hasIdentity bool) (int64, error) {
	var kind command.Kind
	switch state {
	case table.Added:
		kind = command.KindInsert
	case table.Modified:
		kind = command.KindUpdate
	default:
		kind = command.KindDelete
	}

	entry, err := cache.get(ctx, kind)
	if err != nil {
		return 0, err
	}

	// deleted rows keep their values until accepted, so the key is still readable
	res, err := entry.stmt.ExecContext(ctx, entry.cmd.Bind(row.Get)...)
	if err != nil {
		return 0, command.Wrap(entry.cmd, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, command.Wrap(entry.cmd, err)
	}

	if kind == command.KindInsert && hasIdentity {
		if err := r.propagateIdentity(ctx, row, identity); err != nil {
			return n, err
		}
	}
	return n, nil
}

// propagateIdentity writes the generated key of the last insert on exec into
// the row's identity column.
func (r *Reconciler) propagateIdentity(ctx context.Context, row *table.Row, identity table.Column) error {
	id, err := r.factory.LastInsertedIdentity(ctx, r.exec)
	if err != nil {
		return fmt.Errorf("failed to read generated %s: %w", identity.Name, err)
	}
	if id == nil {
		return fmt.Errorf("%w: %s", command.ErrNoIdentity, identity.Name)
	}
	v, err := identity.Coerce(id)
	if err != nil {
		return fmt.Errorf("failed to store generated %s: %w", identity.Name, err)
	}
	return row.Set(identity.Name, v)
}

func validate(tableName string, t *table.Table) error {
	if t == nil {
		return ErrNilTable
	}
	if tableName == "" {
		return ErrEmptyTableName
	}
	if len(t.PrimaryKey()) == 0 {
		return fmt.Errorf("%w: %s", ErrMissingPrimaryKey, tableName)
	}
	return nil
}
