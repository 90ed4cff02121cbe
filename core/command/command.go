package command

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/burakenal/data/core/query"
)

// Kind identifies the operation a command performs.
type Kind int

const (
	KindSelect Kind = iota
	KindInsert
	KindUpdate
	KindDelete
)

func (k Kind) String() string {
	switch k {
	case KindSelect:
		return "select"
	case KindInsert:
		return "insert"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Param is one positional parameter of a command. Exactly one of Column,
// Producer or Value supplies the bound value.
type Param struct {
	// Name is the positional name (p1, p2, ...) used in diagnostics.
	Name string
	// Column, when set, binds the parameter from the source row's column.
	Column string
	// Producer is evaluated on every bind.
	Producer query.Producer
	// Value is the fixed value for constant parameters.
	Value any
}

// Command is a rendered, parameterized statement.
type Command struct {
	Kind   Kind
	Table  string
	Text   string
	Params []Param
}

// Bind returns the positional arguments for one execution. Column parameters
// are read through lookup; a nil lookup or an absent column binds NULL.
func (c Command) Bind(lookup func(column string) any) []any {
	args := make([]any, len(c.Params))
	for i, p := range c.Params {
		switch {
		case p.Column != "":
			if lookup != nil {
				args[i] = lookup(p.Column)
			}
		case p.Producer != nil:
			args[i] = p.Producer()
		default:
			args[i] = p.Value
		}
	}
	return args
}

// Args binds the command without a source row.
func (c Command) Args() []any {
	return c.Bind(nil)
}

// SourceColumns lists the row columns the command binds from, in parameter order.
func (c Command) SourceColumns() []string {
	var cols []string
	for _, p := range c.Params {
		if p.Column != "" {
			cols = append(cols, p.Column)
		}
	}
	return cols
}

func (c Command) String() string {
	var b strings.Builder
	b.WriteString(c.Text)
	if len(c.Params) > 0 {
		b.WriteString(" [")
		for i, p := range c.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.Name)
			b.WriteByte('=')
			switch {
			case p.Column != "":
				b.WriteString("@" + p.Column)
			case p.Producer != nil:
				b.WriteString("<producer>")
			default:
				fmt.Fprintf(&b, "%v", p.Value)
			}
		}
		b.WriteByte(']')
	}
	return b.String()
}

// Executor is the statement facet shared by *sql.DB, *sql.Conn and *sql.Tx.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Builder renders dialect-specific commands.
type Builder interface {
	InsertCommand(table string, values query.Changeset) (Command, error)
	UpdateCommand(table string, where query.Predicate, values query.Changeset) (Command, error)
	DeleteCommand(table string, where query.Predicate) (Command, error)
	SelectCommand(sel query.Select) (Command, error)
}

// IdentityReader returns the identity generated by the last insert on exec.
// exec must be the connection or transaction the insert ran on. A nil value
// means the backend reported none.
type IdentityReader interface {
	LastInsertedIdentity(ctx context.Context, exec Executor) (any, error)
}

// Factory is everything the reconciler needs from a dialect.
type Factory interface {
	Builder
	IdentityReader
}
