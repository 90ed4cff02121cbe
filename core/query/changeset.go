package query

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Pair is one column assignment of a Changeset.
type Pair struct {
	Column string
	Value  Value
}

// Changeset is an ordered list of column assignments.
type Changeset struct {
	pairs []Pair
}

// NewChangeset creates a changeset from pairs, keeping their order.
func NewChangeset(pairs ...Pair) Changeset {
	return Changeset{pairs: append([]Pair(nil), pairs...)}
}

// Set returns a copy of the changeset with column assigned. An existing entry
// for the same column is replaced in place.
func (c Changeset) Set(column string, v any) Changeset {
	out := Changeset{pairs: append([]Pair(nil), c.pairs...)}
	for i := range out.pairs {
		if out.pairs[i].Column == column {
			out.pairs[i].Value = Const(v)
			return out
		}
	}
	out.pairs = append(out.pairs, Pair{Column: column, Value: Const(v)})
	return out
}

// Pairs returns the assignments in order.
func (c Changeset) Pairs() []Pair {
	return append([]Pair(nil), c.pairs...)
}

// Columns returns the assigned column names in order.
func (c Changeset) Columns() []string {
	out := make([]string, len(c.pairs))
	for i, p := range c.pairs {
		out[i] = p.Column
	}
	return out
}

func (c Changeset) Len() int {
	return len(c.pairs)
}

// ChangesetFromMap builds a changeset from a plain mapping. Columns are sorted
// so the generated command text is stable.
func ChangesetFromMap(values map[string]any) Changeset {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cs := Changeset{pairs: make([]Pair, 0, len(keys))}
	for _, k := range keys {
		cs.pairs = append(cs.pairs, Pair{Column: k, Value: Const(values[k])})
	}
	return cs
}

// ChangesetFromStruct reads the exported fields of v into a changeset. Column
// names come from the `db` tag, falling back to the field name; fields tagged
// `db:"-"` are skipped and embedded structs are flattened. Times and
// driver.Valuer structs are kept as single values.
func ChangesetFromStruct(v any) (Changeset, error) {
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Struct || isLeaf(rv.Type()) {
		return Changeset{}, fmt.Errorf("changeset source must be a struct, got %T", v)
	}

	values := map[string]any{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "db",
		Squash:     true,
		DecodeHook: mapstructure.DecodeHookFuncValue(wrapLeaf),
		Result:     &values,
	})
	if err != nil {
		return Changeset{}, err
	}
	if err := decoder.Decode(v); err != nil {
		return Changeset{}, fmt.Errorf("failed to read %T: %w", v, err)
	}
	for k, val := range values {
		if m, ok := val.(map[string]any); ok && len(m) == 1 {
			if leaf, ok := m[leafKey]; ok {
				values[k] = leaf
			}
		}
	}
	return ChangesetFromMap(values), nil
}

// leafKey carries a struct value through mapstructure, which otherwise turns
// every struct field into a nested map.
const leafKey = "\x00"

var (
	timeType   = reflect.TypeOf(time.Time{})
	valuerType = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
)

func isLeaf(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t == timeType || t.Implements(valuerType) || reflect.PointerTo(t).Implements(valuerType)
}

func wrapLeaf(from, to reflect.Value) (any, error) {
	if to.Kind() != reflect.Map || !isLeaf(from.Type()) {
		return from.Interface(), nil
	}
	return map[string]any{leafKey: reflect.Indirect(from).Interface()}, nil
}

// ParamChangeset assigns every column from a parameter bound from the column
// of the same name. It is the shape cached commands are built from.
func ParamChangeset(columns ...string) Changeset {
	cs := Changeset{pairs: make([]Pair, len(columns))}
	for i, c := range columns {
		cs.pairs[i] = Pair{Column: c, Value: Param{Column: c}}
	}
	return cs
}
