package query

import (
	"fmt"
	"strings"
)

// Op is a comparison operator.
type Op int

const (
	OpEq Op = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpNe:
		return "<>"
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// Predicate is a node of a filter tree.
type Predicate interface {
	isPredicate()
}

// Compare tests a field against a value.
type Compare struct {
	Field string
	Op    Op
	Value Value
}

// AndGroup holds if every child holds.
type AndGroup struct {
	Predicates []Predicate
}

// OrGroup holds if any child holds.
type OrGroup struct {
	Predicates []Predicate
}

// NotGroup negates its child.
type NotGroup struct {
	Predicate Predicate
}

func (Compare) isPredicate()  {}
func (AndGroup) isPredicate() {}
func (OrGroup) isPredicate()  {}
func (NotGroup) isPredicate() {}

func Eq(field string, v any) Compare { return Compare{Field: field, Op: OpEq, Value: Const(v)} }
func Ne(field string, v any) Compare { return Compare{Field: field, Op: OpNe, Value: Const(v)} }
func Lt(field string, v any) Compare { return Compare{Field: field, Op: OpLt, Value: Const(v)} }
func Le(field string, v any) Compare { return Compare{Field: field, Op: OpLe, Value: Const(v)} }
func Gt(field string, v any) Compare { return Compare{Field: field, Op: OpGt, Value: Const(v)} }
func Ge(field string, v any) Compare { return Compare{Field: field, Op: OpGe, Value: Const(v)} }

// And joins predicates. Nil entries are dropped and a single predicate is
// returned unwrapped.
func And(preds ...Predicate) Predicate {
	kept := compact(preds)
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return AndGroup{Predicates: kept}
}

// Or joins predicates with the same simplification rules as And.
func Or(preds ...Predicate) Predicate {
	kept := compact(preds)
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return OrGroup{Predicates: kept}
}

// Not negates p.
func Not(p Predicate) Predicate {
	if p == nil {
		return nil
	}
	return NotGroup{Predicate: p}
}

// KeyEquals builds the equality conjunction used to address one row by its key:
// every column is compared to a parameter bound from the same column.
func KeyEquals(columns ...string) Predicate {
	preds := make([]Predicate, len(columns))
	for i, c := range columns {
		preds[i] = Compare{Field: c, Op: OpEq, Value: Param{Column: c}}
	}
	return And(preds...)
}

// Format renders p in a readable, dialect-free form for logs and errors.
func Format(p Predicate) string {
	switch v := p.(type) {
	case nil:
		return ""
	case Compare:
		return fmt.Sprintf("%s %s %v", v.Field, v.Op, v.Value)
	case AndGroup:
		return join(v.Predicates, " AND ")
	case OrGroup:
		return join(v.Predicates, " OR ")
	case NotGroup:
		return "NOT (" + Format(v.Predicate) + ")"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func join(preds []Predicate, sep string) string {
	parts := make([]string, len(preds))
	for i, p := range preds {
		parts[i] = Format(p)
	}
	return "(" + strings.Join(parts, sep) + ")"
}

func compact(preds []Predicate) []Predicate {
	kept := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	return kept
}
