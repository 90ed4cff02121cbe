package table

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/burakenal/data/core/utils"
)

// ValueType is the coarse semantic type of a column.
type ValueType int

const (
	// TypeAny is used when nothing better is known about a column.
	TypeAny ValueType = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeDecimal
	TypeString
	TypeBytes
	TypeTime
)

var valueTypeNames = map[ValueType]string{
	TypeAny:     "any",
	TypeBool:    "bool",
	TypeInt:     "int",
	TypeFloat:   "float",
	TypeDecimal: "decimal",
	TypeString:  "string",
	TypeBytes:   "bytes",
	TypeTime:    "time",
}

func (t ValueType) String() string {
	if name, ok := valueTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ValueType(%d)", int(t))
}

// ParseValueType is the inverse of ValueType.String. Unknown names map to TypeAny.
func ParseValueType(name string) ValueType {
	for t, n := range valueTypeNames {
		if n == strings.ToLower(name) {
			return t
		}
	}
	return TypeAny
}

func (t ValueType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *ValueType) UnmarshalText(text []byte) error {
	*t = ParseValueType(string(text))
	return nil
}

// TypeFromDatabaseName maps a backend type name such as "int(11)", "VARCHAR",
// "tinyint(1)" or "datetime" to a ValueType.
func TypeFromDatabaseName(name string) ValueType {
	n := strings.ToLower(strings.TrimSpace(name))
	if i := strings.IndexByte(n, '('); i >= 0 {
		// tinyint(1) is MySQL's boolean
		if n == "tinyint(1)" || strings.HasPrefix(n, "tinyint(1) ") {
			return TypeBool
		}
		n = n[:i]
	}
	n = strings.TrimSuffix(n, " unsigned")

	switch n {
	case "":
		return TypeAny
	case "bool", "boolean", "bit":
		return TypeBool
	case "int", "integer", "tinyint", "smallint", "mediumint", "bigint", "int2", "int4", "int8", "serial", "bigserial":
		return TypeInt
	case "float", "double", "real", "float4", "float8", "double precision":
		return TypeFloat
	case "decimal", "numeric", "money":
		return TypeDecimal
	case "date", "datetime", "timestamp", "timestamptz", "time":
		return TypeTime
	case "blob", "tinyblob", "mediumblob", "longblob", "binary", "varbinary", "bytea":
		return TypeBytes
	}

	switch {
	case strings.Contains(n, "char"), strings.Contains(n, "text"), strings.Contains(n, "clob"),
		n == "json", n == "jsonb", n == "uuid", n == "enum", n == "set":
		return TypeString
	case strings.Contains(n, "int"):
		return TypeInt
	}
	return TypeAny
}

var timeType = reflect.TypeOf(time.Time{})

// TypeOf returns the ValueType of a Go value as produced by database drivers.
func TypeOf(v any) ValueType {
	if v == nil {
		return TypeAny
	}
	rt := reflect.TypeOf(v)
	if rt == timeType {
		return TypeTime
	}
	switch rt.Kind() {
	case reflect.Bool:
		return TypeBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return TypeInt
	case reflect.Float32, reflect.Float64:
		return TypeFloat
	case reflect.String:
		return TypeString
	case reflect.Slice:
		if rt.Elem().Kind() == reflect.Uint8 {
			return TypeBytes
		}
	}
	return TypeAny
}

// Column describes one column of a Table.
type Column struct {
	// Name is the column name. Lookups are case-insensitive.
	Name string `json:"name"`
	// Type is the semantic value type.
	Type ValueType `json:"type"`
	// IsIdentity marks a backend-generated column. Identity columns are never
	// written by insert or update commands.
	IsIdentity bool `json:"identity,omitempty"`
	// Nullable reports whether the backend accepts NULL for this column.
	Nullable bool `json:"nullable,omitempty"`
}

// Coerce converts v to the Go representation of the column type.
// nil stays nil and TypeAny columns accept values unchanged.
func (c Column) Coerce(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	// drivers hand text back as []byte
	if b, ok := v.([]byte); ok && c.Type != TypeBytes && c.Type != TypeAny {
		v = string(b)
	}
	var (
		out any
		err error
	)
	switch c.Type {
	case TypeBool:
		out, err = cast.ToBoolE(v)
	case TypeInt:
		out, err = utils.ToInt64E(v)
	case TypeFloat, TypeDecimal:
		out, err = cast.ToFloat64E(v)
	case TypeString:
		out, err = cast.ToStringE(v)
	case TypeTime:
		out, err = cast.ToTimeE(v)
	case TypeBytes:
		switch b := v.(type) {
		case []byte:
			out = b
		case string:
			out = []byte(b)
		default:
			err = fmt.Errorf("unable to cast %#v of type %T to []byte", v, v)
		}
	default:
		out = v
	}
	if err != nil {
		return nil, fmt.Errorf("%w: column %s: %w", ErrInvalidValue, c.Name, err)
	}
	return out, nil
}

// Equal compares two values after coercing both to the column type, so that
// int64(1) read from a driver equals float64(1) decoded from JSON.
func (c Column) Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	probe := c
	if probe.Type == TypeAny {
		probe.Type = TypeOf(a)
	}
	ca, errA := probe.Coerce(a)
	cb, errB := probe.Coerce(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	switch va := ca.(type) {
	case time.Time:
		vb, ok := cb.(time.Time)
		return ok && va.Equal(vb)
	case []byte:
		vb, ok := cb.([]byte)
		return ok && bytes.Equal(va, vb)
	}
	return reflect.DeepEqual(ca, cb)
}
