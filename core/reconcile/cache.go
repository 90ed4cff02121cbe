package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/burakenal/data/core/command"
	"github.com/burakenal/data/core/query"
	"github.com/burakenal/data/core/table"
)

// cachedCommand is a rendered command and its prepared statement.
type cachedCommand struct {
	cmd  command.Command
	stmt *sql.Stmt
}

// commandCache holds at most one prepared command per kind for a single run.
// Entries are built on first use; release closes all of them.
type commandCache struct {
	factory   command.Factory
	exec      command.Executor
	tableName string
	writable  []string
	keys      []string
	entries   map[command.Kind]*cachedCommand
}

func newCommandCache(factory command.Factory, exec command.Executor, tableName string, t *table.Table) *commandCache {
	c := &commandCache{
		factory:   factory,
		exec:      exec,
		tableName: tableName,
		entries:   make(map[command.Kind]*cachedCommand, 3),
	}
	for _, col := range t.Columns() {
		if !col.IsIdentity {
			c.writable = append(c.writable, col.Name)
		}
	}
	for _, col := range t.PrimaryKey() {
		c.keys = append(c.keys, col.Name)
	}
	return c
}

func (c *commandCache) get(ctx context.Context, kind command.Kind) (*cachedCommand, error) {
	if e, ok := c.entries[kind]; ok {
		return e, nil
	}

	var (
		cmd command.Command
		err error
	)
	switch kind {
	case command.KindInsert:
		cmd, err = c.factory.InsertCommand(c.tableName, query.ParamChangeset(c.writable...))
	case command.KindUpdate:
		cmd, err = c.factory.UpdateCommand(c.tableName, query.KeyEquals(c.keys...), query.ParamChangeset(c.writable...))
	case command.KindDelete:
		cmd, err = c.factory.DeleteCommand(c.tableName, query.KeyEquals(c.keys...))
	default:
		return nil, fmt.Errorf("no cached command shape for %s", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build %s command: %w", kind, err)
	}

	stmt, err := c.exec.PrepareContext(ctx, cmd.Text)
	if err != nil {
		return nil, command.Wrap(cmd, err)
	}
	e := &cachedCommand{cmd: cmd, stmt: stmt}
	c.entries[kind] = e
	return e, nil
}

// built returns how many command shapes were prepared.
func (c *commandCache) built() int {
	return len(c.entries)
}

func (c *commandCache) release() error {
	var errs []error
	for kind, e := range c.entries {
		if err := e.stmt.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s statement: %w", kind, err))
		}
		delete(c.entries, kind)
	}
	return errors.Join(errs...)
}
