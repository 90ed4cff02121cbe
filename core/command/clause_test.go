package command

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/burakenal/data/core/query"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

func setupTestDB(t *testing.T, dbName string) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", dbName)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	err = db.Exec(`CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT UNIQUE,
		name TEXT
	)`).Error
	require.NoError(t, err)
	return db
}

func TestClauseBuilder_Insert(t *testing.T) {
	gormDB, _ := setupMockDB(t)
	b := NewBuilder(gormDB)

	cmd, err := b.InsertCommand("users", query.ChangesetFromMap(map[string]any{"name": "Ada", "email": nil}))
	require.NoError(t, err)

	assert.Equal(t, KindInsert, cmd.Kind)
	assert.Equal(t, "INSERT INTO `users` (`email`,`name`) VALUES (?,?)", cmd.Text)
	assert.Equal(t, []any{nil, "Ada"}, cmd.Args())
	assert.Equal(t, "mysql", b.Dialect())
}

func TestClauseBuilder_UpdateBindsPerRow(t *testing.T) {
	gormDB, _ := setupMockDB(t)
	b := NewBuilder(gormDB)

	cmd, err := b.UpdateCommand("users", query.KeyEquals("id"), query.ParamChangeset("name", "email"))
	require.NoError(t, err)
	assert.Equal(t, "UPDATE `users` SET `name`=?,`email`=? WHERE `id` = ?", cmd.Text)
	assert.Equal(t, []string{"name", "email", "id"}, cmd.SourceColumns())

	row := map[string]any{"id": int64(7), "name": "Ada"}
	args := cmd.Bind(func(c string) any { return row[c] })
	// email is absent and binds NULL
	assert.Equal(t, []any{"Ada", nil, int64(7)}, args)
}

func TestClauseBuilder_Delete(t *testing.T) {
	gormDB, _ := setupMockDB(t)
	b := NewBuilder(gormDB)

	cmd, err := b.DeleteCommand("memberships", query.KeyEquals("tenant", "id"))
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM `memberships` WHERE `tenant` = ? AND `id` = ?", cmd.Text)
	assert.Len(t, cmd.Params, 2)
	assert.Equal(t, "p2", cmd.Params[1].Name)
}

func TestClauseBuilder_Select(t *testing.T) {
	gormDB, _ := setupMockDB(t)
	b := NewBuilder(gormDB)

	sel := query.From("users").
		WithFields("id", "name").
		WithWhere(query.And(query.Eq("active", true), query.Or(query.Gt("age", 17), query.Eq("vip", true)))).
		WithOrder("id", true).
		WithSkip(5).
		WithTake(10)

	cmd, err := b.SelectCommand(sel)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT `id`,`name` FROM `users` WHERE `active` = ? AND (`age` > ? OR `vip` = ?) ORDER BY `id` DESC LIMIT ? OFFSET ?",
		cmd.Text)
	assert.Equal(t, []any{true, 17, true, 10, 5}, cmd.Args())

	cmd, err = b.SelectCommand(query.From("users"))
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `users`", cmd.Text)
	assert.Empty(t, cmd.Params)
}

func TestClauseBuilder_NullAndFieldRef(t *testing.T) {
	gormDB, _ := setupMockDB(t)
	b := NewBuilder(gormDB)

	cs := query.NewChangeset(query.Pair{Column: "updated_at", Value: query.Ref("created_at")})
	cmd, err := b.UpdateCommand("users", query.Eq("deleted_at", nil), cs)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE `users` SET `updated_at`=`created_at` WHERE `deleted_at` IS NULL", cmd.Text)
	assert.Empty(t, cmd.Params)
}

func TestClauseBuilder_ProducerEvaluatedOnBind(t *testing.T) {
	gormDB, _ := setupMockDB(t)
	b := NewBuilder(gormDB)

	n := 0
	next := query.Producer(func() any { n++; return n })
	cmd, err := b.InsertCommand("tokens", query.NewChangeset(query.Pair{Column: "seq", Value: next}))
	require.NoError(t, err)

	assert.Equal(t, []any{1}, cmd.Args())
	assert.Equal(t, []any{2}, cmd.Args())
	assert.Contains(t, cmd.String(), "p1=<producer>")
}

func TestClauseBuilder_Preconditions(t *testing.T) {
	gormDB, _ := setupMockDB(t)
	b := NewBuilder(gormDB)
	cs := query.ParamChangeset("name")

	_, err := b.UpdateCommand("users", nil, cs)
	assert.ErrorIs(t, err, ErrUnboundedWrite)

	_, err = b.DeleteCommand("users", nil)
	assert.ErrorIs(t, err, ErrUnboundedWrite)

	_, err = b.InsertCommand("", cs)
	assert.ErrorIs(t, err, ErrEmptyTable)

	_, err = b.SelectCommand(query.Select{})
	assert.ErrorIs(t, err, ErrEmptyTable)
}

func TestLastInsertedIdentity_MySQL(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	b := NewBuilder(gormDB)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT LAST_INSERT_ID\(\)`).
		WillReturnRows(sqlmock.NewRows([]string{"LAST_INSERT_ID()"}).AddRow(int64(42)))

	id, err := b.LastInsertedIdentity(context.Background(), sqlDB)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLastInsertedIdentity_SQLite(t *testing.T) {
	ctx := context.Background()
	gormDB := setupTestDB(t, "identity_test")
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)

	conn, err := sqlDB.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	b := NewBuilder(gormDB)
	cmd, err := b.InsertCommand("users", query.ParamChangeset("email", "name"))
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO `users` (`email`,`name`) VALUES (?,?)", cmd.Text)

	row := map[string]any{"email": "ada@example.com", "name": "Ada"}
	_, err = conn.ExecContext(ctx, cmd.Text, cmd.Bind(func(c string) any { return row[c] })...)
	require.NoError(t, err)

	id, err := b.LastInsertedIdentity(ctx, conn)
	require.NoError(t, err)
	assert.EqualValues(t, 1, id)

	// the unique email is rejected the second time
	_, err = conn.ExecContext(ctx, cmd.Text, cmd.Bind(func(c string) any { return row[c] })...)
	require.Error(t, err)
	assert.True(t, IsConstraintViolation(Wrap(cmd, err)))
}

func TestExecError(t *testing.T) {
	cmd := Command{Kind: KindDelete, Table: "users", Text: "DELETE FROM `users` WHERE `id` = ?"}
	cause := &mysqldriver.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row"}

	err := Wrap(cmd, cause)
	var execErr *ExecError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, cmd, execErr.Command)
	assert.Contains(t, err.Error(), "delete on users failed")
	assert.True(t, IsConstraintViolation(err))

	assert.False(t, IsConstraintViolation(Wrap(cmd, &mysqldriver.MySQLError{Number: 1064})))
	assert.False(t, IsConstraintViolation(errors.New("boom")))
	assert.NoError(t, Wrap(cmd, nil))
}
