package command

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
)

var (
	ErrEmptyTable       = errors.New("table name is required")
	ErrUnboundedWrite   = errors.New("update and delete commands require a predicate")
	ErrUnsupportedValue = errors.New("unsupported query value")
	ErrNoIdentity       = errors.New("dialect has no last-inserted identity primitive")
)

// ExecError is returned when the backend rejects a command.
type ExecError struct {
	Command Command
	Err     error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s on %s failed: %v [%s]", e.Command.Kind, e.Command.Table, e.Err, e.Command.Text)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// Wrap attaches cmd to err. A nil err stays nil.
func Wrap(cmd Command, err error) error {
	if err == nil {
		return nil
	}
	return &ExecError{Command: cmd, Err: err}
}

// MySQL server error numbers for constraint failures.
const (
	mysqlDuplicateEntry   = 1062
	mysqlRowIsReferenced  = 1451
	mysqlNoReferencedRow  = 1452
	mysqlColumnCannotNull = 1048
)

// IsConstraintViolation reports whether err is a unique, foreign key or
// not-null violation from MySQL or SQLite.
func IsConstraintViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDuplicateEntry, mysqlRowIsReferenced, mysqlNoReferencedRow, mysqlColumnCannotNull:
			return true
		}
		return false
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrConstraint
	}
	return false
}
