package query

import "fmt"

// Value is the right-hand side of a comparison or the payload of a changeset entry.
type Value interface {
	isValue()
}

// Constant is a fixed value known when the command is built.
type Constant struct {
	V any
}

// Param is a placeholder bound from the named source column of each row the
// command runs for.
type Param struct {
	Column string
}

// Producer is evaluated every time the owning command is bound.
type Producer func() any

// FieldRef refers to another column of the target table.
type FieldRef struct {
	Name string
}

func (Constant) isValue() {}
func (Param) isValue()    {}
func (Producer) isValue() {}
func (FieldRef) isValue() {}

func (c Constant) String() string { return fmt.Sprintf("%v", c.V) }
func (p Param) String() string    { return "@" + p.Column }
func (f FieldRef) String() string { return f.Name }

// Const wraps v as a Constant. Values that already implement Value are returned as is.
func Const(v any) Value {
	if val, ok := v.(Value); ok {
		return val
	}
	return Constant{V: v}
}

// Var returns a parameter bound from column.
func Var(column string) Param {
	return Param{Column: column}
}

// Ref returns a reference to column.
func Ref(column string) FieldRef {
	return FieldRef{Name: column}
}
