package result

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burakenal/data/core/table"
	"github.com/burakenal/data/core/utils"
)

func mockCursor(t *testing.T, rows *sqlmock.Rows, opts ...CursorOption) *SQLCursor {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mock.ExpectQuery("SELECT").WillReturnRows(rows)
	sqlRows, err := db.Query("SELECT * FROM users")
	require.NoError(t, err)

	cur, err := NewSQLCursor(sqlRows, opts...)
	require.NoError(t, err)
	return cur
}

func numbered(n int) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "name"})
	for i := 1; i <= n; i++ {
		rows.AddRow(int64(i), "user")
	}
	return rows
}

type user struct {
	ID       int64  `db:"id"`
	Name     string `db:"name"`
	Email    string
	Joined   time.Time `db:"joined_at"`
	Disabled bool      `db:"disabled"`
}

type closeTracker struct {
	Cursor
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return c.Cursor.Close()
}

type staticSchema []ColumnSchema

func (s staticSchema) TableSchema(ctx context.Context, name string) ([]ColumnSchema, error) {
	return s, nil
}

func TestZeroRows(t *testing.T) {
	ctx := context.Background()
	empty := func() *SQLCursor { return mockCursor(t, sqlmock.NewRows([]string{"id", "name"})) }

	n, err := First[int](ctx, empty(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	u, err := First[user](ctx, empty(), Options{})
	require.NoError(t, err)
	assert.Equal(t, user{}, u)

	p, err := First[*user](ctx, empty(), Options{})
	require.NoError(t, err)
	assert.Nil(t, p)

	rec, err := ToDictionary(ctx, empty(), Options{})
	require.NoError(t, err)
	assert.Nil(t, rec)

	list, err := ToList[user](ctx, empty(), Options{})
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	tbl, err := ToTable(ctx, empty(), "users", Options{})
	require.NoError(t, err)
	assert.Len(t, tbl.Columns(), 2)
	assert.Equal(t, 0, tbl.Len())
}

func TestScalarProjection(t *testing.T) {
	ctx := context.Background()

	single := mockCursor(t, sqlmock.NewRows([]string{"count"}).AddRow(int64(42)))
	n, err := First[int](ctx, single, Options{})
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	wide := func() *SQLCursor {
		return mockCursor(t, sqlmock.NewRows([]string{"id", "total", "name"}).AddRow(int64(1), "17", "Ada"))
	}
	n, err = First[int](ctx, wide(), Options{Fields: []string{"total", "id"}})
	require.NoError(t, err)
	assert.Equal(t, 17, n)

	// no field list on a wide result gives the zero value
	n, err = First[int](ctx, wide(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = First[int](ctx, wide(), Options{Fields: []string{"missing"}})
	assert.ErrorIs(t, err, ErrFieldNotFound)
}

func TestScalarConversionFailure(t *testing.T) {
	cur := mockCursor(t, sqlmock.NewRows([]string{"name"}).AddRow("Ada").AddRow("Grace"))
	_, err := ToList[int](context.Background(), cur, Options{})

	var convErr *utils.ConversionError
	assert.True(t, errors.As(err, &convErr))
}

func TestStructuredRead(t *testing.T) {
	ctx := context.Background()
	rows := sqlmock.NewRows([]string{"id", "name", "EMAIL", "joined", "disabled"}).
		AddRow(int64(1), []byte("Ada"), "ada@example.com", "2024-01-02 03:04:05", int64(1))

	u, err := First[user](ctx, mockCursor(t, rows), Options{Renames: map[string]string{"joined": "joined_at"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), u.Joined.UTC())
	assert.True(t, u.Disabled)

	rec, err := First[map[string]any](ctx, mockCursor(t, numbered(1)), Options{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": int64(1), "name": "user"}, rec)
}

func TestSQLCursor_DriverBytes(t *testing.T) {
	rows := sqlmock.NewRowsWithColumnDefinition(
		sqlmock.NewColumn("id").OfType("INT", int64(0)),
		sqlmock.NewColumn("name").OfType("VARCHAR", ""),
		sqlmock.NewColumn("avatar").OfType("BLOB", []byte{}),
		sqlmock.NewColumn("price").OfType("DECIMAL", ""),
		sqlmock.NewColumn("note"),
	).AddRow([]byte("7"), []byte("Ada"), []byte{0x00, 0xff}, []byte("10.10"), []byte("hi"))

	rec, err := First[map[string]any](context.Background(), mockCursor(t, rows), Options{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"id":     int64(7),
		"name":   "Ada",
		"avatar": []byte{0x00, 0xff},
		"price":  "10.10",
		"note":   "hi",
	}, rec)
}

func TestCustomDecode(t *testing.T) {
	calls := 0
	decode := func(rec map[string]any, target any) error {
		calls++
		target.(*user).Name = "decoded"
		return nil
	}
	list, err := ToList[user](context.Background(), mockCursor(t, numbered(2)), Options{Decode: decode})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "decoded", list[1].Name)
}

func TestOffsetApplication(t *testing.T) {
	ctx := context.Background()

	list, err := ToList[user](ctx, mockCursor(t, numbered(5)), Options{Skip: 2, ApplySkip: true})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, int64(3), list[0].ID)

	list, err = ToList[user](ctx, mockCursor(t, numbered(5)), Options{Skip: 2})
	require.NoError(t, err)
	require.Len(t, list, 5)
	assert.Equal(t, int64(1), list[0].ID)

	// skipping past the end yields nothing
	list, err = ToList[user](ctx, mockCursor(t, numbered(2)), Options{Skip: 3, ApplySkip: true})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMaxRecords(t *testing.T) {
	recs, err := ToDictionaryList(context.Background(), mockCursor(t, numbered(5)), Options{Max: 2, Skip: 1, ApplySkip: true})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(2), recs[0]["id"])
	assert.Equal(t, int64(3), recs[1]["id"])
}

func TestToTable_BasicSchema(t *testing.T) {
	rows := sqlmock.NewRows([]string{"id", "name", "score"}).
		AddRow(int64(1), "Ada", 9.5).
		AddRow(int64(2), nil, 7.0)

	tbl, err := ToTable(context.Background(), mockCursor(t, rows), "users", Options{})
	require.NoError(t, err)

	cols := tbl.Columns()
	require.Len(t, cols, 3)
	assert.Equal(t, table.TypeInt, cols[0].Type)
	assert.Equal(t, table.TypeString, cols[1].Type)
	assert.Equal(t, table.TypeFloat, cols[2].Type)
	assert.Empty(t, tbl.PrimaryKey())

	require.Equal(t, 2, tbl.Len())
	for _, r := range tbl.Rows() {
		assert.Equal(t, table.Unchanged, r.State())
	}
	assert.Nil(t, tbl.Rows()[1].Get("name"))
}

func TestToTable_RichSchema(t *testing.T) {
	schema := staticSchema{
		{Name: "id", Type: table.TypeInt, IsKey: true, IsIdentity: true},
		{Name: "name", Type: table.TypeString, Nullable: true},
	}
	rows := sqlmock.NewRows([]string{"id", "name", "total"}).AddRow(int64(1), "Ada", int64(3))
	cur := mockCursor(t, rows, WithSchemaSource(context.Background(), schema, "users"))

	tbl, err := ToTable(context.Background(), cur, "users", Options{})
	require.NoError(t, err)

	require.Len(t, tbl.Columns(), 3)
	require.Len(t, tbl.PrimaryKey(), 1)
	assert.Equal(t, "id", tbl.PrimaryKey()[0].Name)
	id, _ := tbl.IdentityColumn()
	assert.Equal(t, "id", id.Name)

	// the computed column falls back to the first row's value type
	total, _ := tbl.Column("total")
	assert.Equal(t, table.TypeInt, total.Type)
	assert.False(t, total.IsIdentity)
}

func TestToTable_FromTableCursor(t *testing.T) {
	src := table.New("users")
	require.NoError(t, src.AddColumns(
		table.Column{Name: "tenant", Type: table.TypeString},
		table.Column{Name: "id", Type: table.TypeInt},
	))
	require.NoError(t, src.SetPrimaryKey("tenant", "id"))
	_, _ = src.Load("a", int64(1))
	gone, _ := src.Load("a", int64(2))
	_, _ = src.AddMap(map[string]any{"tenant": "b", "id": int64(3)})
	gone.Delete()

	copyOf, err := ToTable(context.Background(), NewTableCursor(src), "copy", Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, copyOf.Len())
	assert.Len(t, copyOf.PrimaryKey(), 2)
	assert.False(t, copyOf.HasChanges())
	assert.NotNil(t, copyOf.Find("b", int64(3)))
}

func TestFill_ExistingColumns(t *testing.T) {
	users := table.New("users")
	require.NoError(t, users.AddColumns(
		table.Column{Name: "id", Type: table.TypeInt},
		table.Column{Name: "email", Type: table.TypeString},
		table.Column{Name: "name", Type: table.TypeString},
	))

	n, err := Fill(context.Background(), mockCursor(t, numbered(2)), users, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Nil(t, users.Rows()[0].Get("email"))
	assert.Equal(t, "user", users.Rows()[1].Get("name"))
}

func TestCursorAlwaysClosed(t *testing.T) {
	src := table.New("t")
	require.NoError(t, src.AddColumns(table.Column{Name: "v", Type: table.TypeString}))
	_, _ = src.Load("not a number")

	tracked := &closeTracker{Cursor: NewTableCursor(src)}
	_, err := First[int](context.Background(), tracked, Options{})
	assert.Error(t, err)
	assert.True(t, tracked.closed)

	tracked = &closeTracker{Cursor: NewTableCursor(src)}
	_, err = ToDictionary(context.Background(), tracked, Options{})
	assert.NoError(t, err)
	assert.True(t, tracked.closed)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ToList[user](ctx, mockCursor(t, numbered(3)), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestColumnTypesFromDefinitions(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRowsWithColumnDefinition(
		sqlmock.NewColumn("id").OfType("BIGINT", int64(0)),
		sqlmock.NewColumn("flag").OfType("TINYINT(1)", int64(0)),
		sqlmock.NewColumn("created").OfType("DATETIME", time.Time{}),
		sqlmock.NewColumn("misc").OfType("", sql.NullFloat64{}),
	)
	mock.ExpectQuery("SELECT").WillReturnRows(rows)

	sqlRows, err := db.Query("SELECT id, flag, created, misc FROM t")
	require.NoError(t, err)
	cur, err := NewSQLCursor(sqlRows)
	require.NoError(t, err)
	defer cur.Close()

	assert.Equal(t, table.TypeInt, cur.FieldType(0))
	assert.Equal(t, table.TypeBool, cur.FieldType(1))
	assert.Equal(t, table.TypeTime, cur.FieldType(2))
	assert.Equal(t, table.TypeFloat, cur.FieldType(3))
	_, err = cur.Schema()
	assert.ErrorIs(t, err, ErrNoSchema)
}
