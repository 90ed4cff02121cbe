package command

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/burakenal/data/core/query"
)

// identitySQL holds the per-dialect statement returning the identity generated
// by the last insert on the current connection.
var identitySQL = map[string]string{
	"mysql":    "SELECT LAST_INSERT_ID()",
	"sqlite":   "SELECT last_insert_rowid()",
	"postgres": "SELECT lastval()",
}

// ClauseBuilder renders commands with gorm's clause package, so quoting and
// bind variables follow the dialector the *gorm.DB was opened with.
type ClauseBuilder struct {
	db *gorm.DB
}

// NewBuilder creates a ClauseBuilder. db is only used for its dialector; no
// statement is executed through it.
func NewBuilder(db *gorm.DB) *ClauseBuilder {
	return &ClauseBuilder{db: db}
}

// Dialect returns the dialector name, e.g. "mysql" or "sqlite".
func (b *ClauseBuilder) Dialect() string {
	return b.db.Dialector.Name()
}

func (b *ClauseBuilder) InsertCommand(table string, values query.Changeset) (Command, error) {
	if table == "" {
		return Command{}, ErrEmptyTable
	}
	pairs := values.Pairs()
	cols := make([]clause.Column, len(pairs))
	row := make([]any, len(pairs))
	for i, p := range pairs {
		v, err := toVar(p.Value)
		if err != nil {
			return Command{}, err
		}
		cols[i] = clause.Column{Name: p.Column}
		row[i] = v
	}

	return b.render(KindInsert, table, func(stmt *gorm.Statement) []string {
		stmt.AddClause(clause.Insert{})
		stmt.AddClause(clause.Values{Columns: cols, Values: [][]any{row}})
		return []string{"INSERT", "VALUES"}
	})
}

func (b *ClauseBuilder) UpdateCommand(table string, where query.Predicate, values query.Changeset) (Command, error) {
	if table == "" {
		return Command{}, ErrEmptyTable
	}
	if where == nil {
		return Command{}, ErrUnboundedWrite
	}
	pairs := values.Pairs()
	set := make(clause.Set, len(pairs))
	for i, p := range pairs {
		v, err := toVar(p.Value)
		if err != nil {
			return Command{}, err
		}
		set[i] = clause.Assignment{Column: clause.Column{Name: p.Column}, Value: v}
	}
	cond, err := toExpression(where)
	if err != nil {
		return Command{}, err
	}

	return b.render(KindUpdate, table, func(stmt *gorm.Statement) []string {
		stmt.AddClause(clause.Update{})
		stmt.AddClause(set)
		stmt.AddClause(clause.Where{Exprs: []clause.Expression{cond}})
		return []string{"UPDATE", "SET", "WHERE"}
	})
}

func (b *ClauseBuilder) DeleteCommand(table string, where query.Predicate) (Command, error) {
	if table == "" {
		return Command{}, ErrEmptyTable
	}
	if where == nil {
		return Command{}, ErrUnboundedWrite
	}
	cond, err := toExpression(where)
	if err != nil {
		return Command{}, err
	}

	return b.render(KindDelete, table, func(stmt *gorm.Statement) []string {
		stmt.AddClause(clause.Delete{})
		stmt.AddClause(clause.From{})
		stmt.AddClause(clause.Where{Exprs: []clause.Expression{cond}})
		return []string{"DELETE", "FROM", "WHERE"}
	})
}

func (b *ClauseBuilder) SelectCommand(sel query.Select) (Command, error) {
	if sel.From == "" {
		return Command{}, ErrEmptyTable
	}
	var cond clause.Expression
	if sel.Where != nil {
		var err error
		if cond, err = toExpression(sel.Where); err != nil {
			return Command{}, err
		}
	}

	return b.render(KindSelect, sel.From, func(stmt *gorm.Statement) []string {
		fields := make([]clause.Column, len(sel.Fields))
		for i, f := range sel.Fields {
			fields[i] = clause.Column{Name: f}
		}
		stmt.AddClause(clause.Select{Columns: fields})
		stmt.AddClause(clause.From{})
		if cond != nil {
			stmt.AddClause(clause.Where{Exprs: []clause.Expression{cond}})
		}
		if len(sel.OrderBy) > 0 {
			order := clause.OrderBy{}
			for _, o := range sel.OrderBy {
				order.Columns = append(order.Columns, clause.OrderByColumn{Column: clause.Column{Name: o.Field}, Desc: o.Desc})
			}
			stmt.AddClause(order)
		}
		if sel.Take > 0 || sel.Skip > 0 {
			limit := clause.Limit{Offset: sel.Skip}
			if sel.Take > 0 {
				take := sel.Take
				limit.Limit = &take
			}
			stmt.AddClause(limit)
		}
		return []string{"SELECT", "FROM", "WHERE", "ORDER BY", "LIMIT"}
	})
}

// LastInsertedIdentity runs the dialect's identity primitive on exec.
func (b *ClauseBuilder) LastInsertedIdentity(ctx context.Context, exec Executor) (any, error) {
	text, ok := identitySQL[b.Dialect()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoIdentity, b.Dialect())
	}
	var id any
	if err := exec.QueryRowContext(ctx, text).Scan(&id); err != nil {
		return nil, fmt.Errorf("failed to read last inserted identity: %w", err)
	}
	return id, nil
}

func (b *ClauseBuilder) render(kind Kind, table string, build func(*gorm.Statement) []string) (Command, error) {
	tx := b.db.Session(&gorm.Session{NewDB: true, Initialized: true})
	stmt := tx.Statement
	stmt.Table = table
	stmt.Build(build(stmt)...)
	if tx.Error != nil {
		return Command{}, fmt.Errorf("failed to render %s on %s: %w", kind, table, tx.Error)
	}

	params := make([]Param, len(stmt.Vars))
	for i, v := range stmt.Vars {
		p := Param{Name: fmt.Sprintf("p%d", i+1)}
		switch x := v.(type) {
		case query.Param:
			p.Column = x.Column
		case query.Producer:
			p.Producer = x
		default:
			p.Value = v
		}
		params[i] = p
	}
	return Command{Kind: kind, Table: table, Text: stmt.SQL.String(), Params: params}, nil
}

// toVar converts a query value into something gorm's AddVar renders. Param and
// Producer are struct and func kinds, so gorm appends them to Vars untouched
// and render maps them back to bindings.
func toVar(v query.Value) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case query.Constant:
		return x.V, nil
	case query.Param:
		return x, nil
	case query.Producer:
		return x, nil
	case query.FieldRef:
		return clause.Column{Name: x.Name}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

func toExpression(p query.Predicate) (clause.Expression, error) {
	switch v := p.(type) {
	case query.Compare:
		val, err := toVar(v.Value)
		if err != nil {
			return nil, err
		}
		col := clause.Column{Name: v.Field}
		switch v.Op {
		case query.OpEq:
			return clause.Eq{Column: col, Value: val}, nil
		case query.OpNe:
			return clause.Neq{Column: col, Value: val}, nil
		case query.OpLt:
			return clause.Lt{Column: col, Value: val}, nil
		case query.OpLe:
			return clause.Lte{Column: col, Value: val}, nil
		case query.OpGt:
			return clause.Gt{Column: col, Value: val}, nil
		case query.OpGe:
			return clause.Gte{Column: col, Value: val}, nil
		}
		return nil, fmt.Errorf("unsupported operator %v", v.Op)
	case query.AndGroup:
		exprs, err := toExpressions(v.Predicates)
		if err != nil {
			return nil, err
		}
		return clause.And(exprs...), nil
	case query.OrGroup:
		exprs, err := toExpressions(v.Predicates)
		if err != nil {
			return nil, err
		}
		return clause.Or(exprs...), nil
	case query.NotGroup:
		inner, err := toExpression(v.Predicate)
		if err != nil {
			return nil, err
		}
		return clause.Not(inner), nil
	default:
		return nil, fmt.Errorf("unsupported predicate %T", p)
	}
}

func toExpressions(preds []query.Predicate) ([]clause.Expression, error) {
	out := make([]clause.Expression, len(preds))
	for i, p := range preds {
		e, err := toExpression(p)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}
