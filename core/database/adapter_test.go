package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/burakenal/data/core/command"
	"github.com/burakenal/data/core/query"
	"github.com/burakenal/data/core/reconcile"
	"github.com/burakenal/data/core/table"
)

type userRow struct {
	ID    int64   `db:"id"`
	Name  string  `db:"name"`
	Email *string `db:"email"`
}

func setupAdapter(t *testing.T, cfg AdapterConfig) *Adapter {
	t.Helper()
	db, err := Connect(Config{Driver: DriverSQLite, Name: memoryDSN(t)})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT UNIQUE
	)`).Error)

	if cfg.SchemaCacheTTLSeconds == 0 {
		cfg.SchemaCacheTTLSeconds = 60
	}
	a, err := NewAdapter(db, cfg, zap.NewNop())
	require.NoError(t, err)
	return a
}

func seedUsers(t *testing.T, a *Adapter, names ...string) {
	t.Helper()
	users, err := a.NewTable(context.Background(), "users")
	require.NoError(t, err)
	for _, n := range names {
		_, err := users.AddMap(map[string]any{"name": n})
		require.NoError(t, err)
	}
	_, err = a.Sync(context.Background(), "users", users)
	require.NoError(t, err)
}

func byID() query.Select {
	return query.From("users").WithOrder("id", false)
}

func TestAdapter_NewTable(t *testing.T) {
	a := setupAdapter(t, AdapterConfig{})

	users, err := a.NewTable(context.Background(), "users")
	require.NoError(t, err)
	require.Len(t, users.Columns(), 3)
	require.Len(t, users.PrimaryKey(), 1)
	id, ok := users.IdentityColumn()
	require.True(t, ok)
	assert.Equal(t, "id", id.Name)

	_, err = a.NewTable(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestAdapter_SyncRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := setupAdapter(t, AdapterConfig{})

	users, err := a.NewTable(ctx, "users")
	require.NoError(t, err)
	ada, _ := users.AddMap(map[string]any{"name": "Ada", "email": "ada@example.com"})
	grace, _ := users.AddMap(map[string]any{"name": "Grace"})
	_, _ = users.AddMap(map[string]any{"name": "Alan"})

	affected, err := a.Sync(ctx, "users", users)
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)
	assert.Equal(t, int64(1), ada.Get("id"))
	assert.Equal(t, int64(2), grace.Get("id"))
	assert.False(t, users.HasChanges())

	reread, err := a.ToTable(ctx, byID())
	require.NoError(t, err)
	assert.Equal(t, 3, reread.Len())
	assert.False(t, reread.HasChanges())
	require.Len(t, reread.PrimaryKey(), 1)
	assert.Equal(t, "id", reread.PrimaryKey()[0].Name)

	// nothing pending means nothing executed
	affected, err = a.Sync(ctx, "users", reread)
	require.NoError(t, err)
	assert.Zero(t, affected)

	require.NoError(t, reread.Find(int64(2)).Set("name", "Grace H."))
	reread.Find(int64(3)).Delete()
	affected, err = a.Sync(ctx, "users", reread)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
	assert.Equal(t, 2, reread.Len())

	list, err := ToList[userRow](ctx, a, byID())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Ada", list[0].Name)
	require.NotNil(t, list[0].Email)
	assert.Equal(t, "ada@example.com", *list[0].Email)
	assert.Equal(t, "Grace H.", list[1].Name)
	assert.Nil(t, list[1].Email)
}

func TestAdapter_ConstraintViolation(t *testing.T) {
	ctx := context.Background()
	a := setupAdapter(t, AdapterConfig{})

	users, err := a.NewTable(ctx, "users")
	require.NoError(t, err)
	_, _ = users.AddMap(map[string]any{"name": "Ada", "email": "same@example.com"})
	_, _ = users.AddMap(map[string]any{"name": "Eve", "email": "same@example.com"})

	affected, err := a.Sync(ctx, "users", users)
	require.Error(t, err)
	assert.Equal(t, int64(1), affected)
	assert.True(t, command.IsConstraintViolation(err))

	var rowErr *reconcile.RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, 1, rowErr.Index)
}

func TestAdapter_Reads(t *testing.T) {
	ctx := context.Background()
	a := setupAdapter(t, AdapterConfig{})
	seedUsers(t, a, "Ada", "Grace")

	id, err := First[int](ctx, a, query.From("users").WithFields("id").WithWhere(query.Eq("name", "Grace")))
	require.NoError(t, err)
	assert.Equal(t, 2, id)

	u, err := First[userRow](ctx, a, byID())
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)

	rec, err := a.ToDictionary(ctx, query.From("users").WithWhere(query.Eq("id", 99)))
	require.NoError(t, err)
	assert.Nil(t, rec)

	recs, err := a.ToDictionaryList(ctx, byID().WithWhere(query.Gt("id", 1)))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.EqualValues(t, "Grace", recs[0]["name"])

	users, err := a.NewTable(ctx, "users")
	require.NoError(t, err)
	n, err := a.Fill(ctx, byID(), users)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, users.HasChanges())
}

func TestAdapter_Offsets(t *testing.T) {
	tests := []struct {
		name      string
		applySkip bool
	}{
		{name: "command offset", applySkip: false},
		{name: "client offset", applySkip: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := setupAdapter(t, AdapterConfig{ApplySkip: tt.applySkip})
			seedUsers(t, a, "a", "b", "c", "d", "e")

			list, err := ToList[userRow](context.Background(), a, byID().WithSkip(1).WithTake(2))
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, int64(2), list[0].ID)
			assert.Equal(t, int64(3), list[1].ID)
		})
	}
}

func TestAdapter_ReadPlan(t *testing.T) {
	a := setupAdapter(t, AdapterConfig{ApplySkip: true, MaxRecords: 10})

	sel, opts := a.readPlan(byID().WithSkip(3).WithTake(2))
	assert.Equal(t, 0, sel.Skip)
	assert.Equal(t, 5, sel.Take)
	assert.Equal(t, 3, opts.Skip)
	assert.True(t, opts.ApplySkip)
	assert.Equal(t, 2, opts.Max)

	a.cfg.ApplySkip = false
	sel, opts = a.readPlan(byID().WithSkip(3))
	assert.Equal(t, 3, sel.Skip)
	assert.False(t, opts.ApplySkip)
	assert.Equal(t, 10, opts.Max)
}

func TestAdapter_MaxRecords(t *testing.T) {
	a := setupAdapter(t, AdapterConfig{MaxRecords: 2})
	seedUsers(t, a, "a", "b", "c")

	recs, err := a.ToDictionaryList(context.Background(), byID())
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestAdapter_WithTx(t *testing.T) {
	ctx := context.Background()
	a := setupAdapter(t, AdapterConfig{})

	users, err := a.NewTable(ctx, "users")
	require.NoError(t, err)
	row, _ := users.AddMap(map[string]any{"name": "Ada"})

	tx, err := a.Begin(ctx)
	require.NoError(t, err)
	affected, err := a.WithTx(tx).Sync(ctx, "users", users)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.Equal(t, int64(1), row.Get("id"))

	// the adapter leaves the transaction open for the caller
	require.NoError(t, tx.Rollback())

	list, err := ToList[userRow](ctx, a, byID())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAdapter_ApplyDryRun(t *testing.T) {
	ctx := context.Background()
	a := setupAdapter(t, AdapterConfig{})

	users, err := a.NewTable(ctx, "users")
	require.NoError(t, err)
	row, _ := users.AddMap(map[string]any{"name": "Ada"})

	plan, affected, err := a.Apply(ctx, "users", users, reconcile.Options{DryRun: true, Confirmed: true})
	require.NoError(t, err)
	assert.Zero(t, affected)
	assert.Equal(t, 1, plan.Summary.Inserts)
	assert.Equal(t, table.Added, row.State())

	plan, err = a.Plan("users", users)
	require.NoError(t, err)
	assert.Len(t, plan.Actions, 1)

	_, affected, err = a.Apply(ctx, "users", users, reconcile.Options{Confirmed: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
}
