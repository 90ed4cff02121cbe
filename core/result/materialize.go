package result

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/burakenal/data/core/table"
	"github.com/burakenal/data/core/utils"
)

// Options control how a cursor is consumed.
type Options struct {
	// Skip is the number of leading rows to drop. It only applies when
	// ApplySkip is set, i.e. when the command did not apply the offset itself.
	Skip      int
	ApplySkip bool
	// Max caps the number of rows read after skipping. Zero means no cap.
	Max int
	// Fields is the field list of the originating query. Scalar reads of a
	// multi-column result use the first entry.
	Fields []string
	// Renames maps result column names to target field names.
	Renames map[string]string
	// Decode overrides DecodeRecord for structured reads.
	Decode DecodeFunc
}

// First reads the first row into T. Zero rows yield T's zero value and no error.
func First[T any](ctx context.Context, cur Cursor, opts Options) (T, error) {
	defer cur.Close()
	var out T
	opts.Max = 1
	err := each(ctx, cur, opts, func() error {
		v, err := read[T](cur, opts)
		out = v
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// ToDictionary reads the first row as a mapping. Zero rows yield nil.
func ToDictionary(ctx context.Context, cur Cursor, opts Options) (map[string]any, error) {
	defer cur.Close()
	var out map[string]any
	opts.Max = 1
	err := each(ctx, cur, opts, func() error {
		out = record(cur, opts.Renames)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ToList reads up to opts.Max rows into a slice of T, in cursor order.
func ToList[T any](ctx context.Context, cur Cursor, opts Options) ([]T, error) {
	defer cur.Close()
	out := make([]T, 0)
	err := each(ctx, cur, opts, func() error {
		v, err := read[T](cur, opts)
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ToDictionaryList reads up to opts.Max rows as mappings.
func ToDictionaryList(ctx context.Context, cur Cursor, opts Options) ([]map[string]any, error) {
	defer cur.Close()
	out := make([]map[string]any, 0)
	err := each(ctx, cur, opts, func() error {
		out = append(out, record(cur, opts.Renames))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ToTable materializes the cursor into a new table named name. The column
// schema is inferred once; every row is loaded Unchanged.
func ToTable(ctx context.Context, cur Cursor, name string, opts Options) (*table.Table, error) {
	t := table.New(name)
	if _, err := Fill(ctx, cur, t, opts); err != nil {
		return nil, err
	}
	return t, nil
}

// Fill loads the cursor's rows into t as Unchanged rows and returns how many
// were loaded. A table without columns gets its schema inferred from the
// cursor; otherwise cursor fields are matched to columns by name and columns
// missing from the cursor are loaded as nil.
func Fill(ctx context.Context, cur Cursor, t *table.Table, opts Options) (int, error) {
	defer cur.Close()

	var ordinals []int
	bind := func(firstRow bool) error {
		if len(t.Columns()) == 0 {
			if err := applySchema(cur, t, firstRow); err != nil {
				return err
			}
		}
		ordinals = make([]int, cur.FieldCount())
		for i := range ordinals {
			ordinals[i] = t.Ordinal(cur.FieldName(i))
		}
		return nil
	}

	loaded := 0
	width := len(t.Columns())
	err := each(ctx, cur, opts, func() error {
		if ordinals == nil {
			if err := bind(true); err != nil {
				return err
			}
			width = len(t.Columns())
		}
		values := make([]any, width)
		for i, ord := range ordinals {
			if ord >= 0 {
				values[ord] = cur.Value(i)
			}
		}
		if _, err := t.Load(values...); err != nil {
			return err
		}
		loaded++
		return nil
	})
	if err != nil {
		return loaded, err
	}
	// an empty result still describes its columns
	if ordinals == nil && len(t.Columns()) == 0 {
		if err := bind(false); err != nil {
			return 0, err
		}
	}
	return loaded, nil
}

// each advances the cursor, honoring the client-side offset and the row cap.
// The context is checked before every advance.
func each(ctx context.Context, cur Cursor, opts Options, fn func() error) error {
	if opts.ApplySkip {
		for i := 0; i < opts.Skip; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !cur.Next() {
				return cur.Err()
			}
		}
	}
	for n := 0; opts.Max <= 0 || n < opts.Max; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !cur.Next() {
			return cur.Err()
		}
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

func record(cur Cursor, renames map[string]string) map[string]any {
	out := make(map[string]any, cur.FieldCount())
	for i := 0; i < cur.FieldCount(); i++ {
		name := cur.FieldName(i)
		if to, ok := renames[name]; ok {
			name = to
		}
		out[name] = cur.Value(i)
	}
	return out
}

func read[T any](cur Cursor, opts Options) (T, error) {
	var zero T
	rt := reflect.TypeOf(&zero).Elem()

	if utils.IsScalarType(rt) {
		if cur.FieldCount() == 1 {
			return utils.ConvertTo[T](cur.Value(0))
		}
		if len(opts.Fields) > 0 {
			v, ok := cur.ValueByName(opts.Fields[0])
			if !ok {
				return zero, fmt.Errorf("%w: %s", ErrFieldNotFound, opts.Fields[0])
			}
			return utils.ConvertTo[T](v)
		}
		return zero, nil
	}

	rec := record(cur, opts.Renames)
	if m, ok := any(rec).(T); ok {
		return m, nil
	}
	decode := opts.Decode
	if decode == nil {
		decode = DecodeRecord
	}
	var out T
	if err := decode(rec, &out); err != nil {
		return zero, fmt.Errorf("failed to map row onto %s: %w", rt, err)
	}
	return out, nil
}

func applySchema(cur Cursor, t *table.Table, firstRow bool) error {
	cols, keys, err := inferSchema(cur, firstRow)
	if err != nil {
		return err
	}
	if err := t.AddColumns(cols...); err != nil {
		return err
	}
	if len(keys) > 0 {
		return t.SetPrimaryKey(keys...)
	}
	return nil
}

// inferSchema prefers rich metadata from a SchemaCursor and falls back to
// field names with coarse types. Columns still untyped are typed from the
// current row when one is available.
func inferSchema(cur Cursor, firstRow bool) ([]table.Column, []string, error) {
	n := cur.FieldCount()
	cols := make([]table.Column, n)
	var keys []string

	rich := false
	if sc, ok := cur.(SchemaCursor); ok {
		schema, err := sc.Schema()
		switch {
		case err == nil && len(schema) == n:
			rich = true
			for i, s := range schema {
				cols[i] = table.Column{Name: s.Name, Type: s.Type, IsIdentity: s.IsIdentity, Nullable: s.Nullable}
				if s.IsKey {
					keys = append(keys, s.Name)
				}
			}
		case err != nil && !errors.Is(err, ErrNoSchema):
			return nil, nil, err
		}
	}
	if !rich {
		for i := 0; i < n; i++ {
			cols[i] = table.Column{Name: cur.FieldName(i), Type: cur.FieldType(i), Nullable: true}
		}
	}

	if firstRow {
		for i := range cols {
			if cols[i].Type == table.TypeAny {
				cols[i].Type = table.TypeOf(cur.Value(i))
			}
		}
	}
	return cols, keys, nil
}
