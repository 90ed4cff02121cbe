package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
	bytesType    = reflect.TypeOf([]byte(nil))
)

// ConversionError reports a value that could not be converted to the requested type.
type ConversionError struct {
	Value  any
	Target string
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %#v (%T) to %s: %v", e.Value, e.Value, e.Target, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// IsScalarType reports whether values of t are read from a single column:
// booleans, numbers, strings, byte slices and times, including named types
// over those kinds.
func IsScalarType(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t == timeType || t == bytesType {
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// ConvertTo converts v to T without regard to locale: numbers use '.' as the
// decimal separator and times are parsed by spf13/cast's fixed layouts.
// nil converts to T's zero value.
func ConvertTo[T any](v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	if t, ok := v.(T); ok {
		return t, nil
	}

	target := reflect.TypeOf(&zero).Elem()
	out, err := convert(v, target)
	if err != nil {
		return zero, &ConversionError{Value: v, Target: target.String(), Err: err}
	}
	return out.Interface().(T), nil
}

// Convert is the non-generic form of ConvertTo.
func Convert(v any, target reflect.Type) (any, error) {
	if v == nil {
		return reflect.Zero(target).Interface(), nil
	}
	out, err := convert(v, target)
	if err != nil {
		return nil, &ConversionError{Value: v, Target: target.String(), Err: err}
	}
	return out.Interface(), nil
}

func convert(v any, target reflect.Type) (reflect.Value, error) {
	// drivers return text columns as []byte
	if b, ok := v.([]byte); ok && target != bytesType {
		v = string(b)
	}
	if rv := reflect.ValueOf(v); sameKind(rv.Type(), target) {
		return rv.Convert(target), nil
	}

	out := reflect.New(target).Elem()
	switch {
	case target == timeType:
		t, err := cast.ToTimeE(v)
		if err != nil {
			return out, err
		}
		out.Set(reflect.ValueOf(t))
		return out, nil
	case target == durationType:
		d, err := cast.ToDurationE(v)
		if err != nil {
			return out, err
		}
		out.SetInt(int64(d))
		return out, nil
	case target == bytesType:
		s, err := cast.ToStringE(v)
		if err != nil {
			return out, err
		}
		out.SetBytes([]byte(s))
		return out, nil
	}

	switch target.Kind() {
	case reflect.Bool:
		b, err := cast.ToBoolE(v)
		if err != nil {
			return out, err
		}
		out.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := ToInt64E(v)
		if err != nil {
			return out, err
		}
		if out.OverflowInt(n) {
			return out, fmt.Errorf("value %d overflows %s", n, target)
		}
		out.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := ToUint64E(v)
		if err != nil {
			return out, err
		}
		if out.OverflowUint(n) {
			return out, fmt.Errorf("value %d overflows %s", n, target)
		}
		out.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return out, err
		}
		out.SetFloat(f)
	case reflect.String:
		s, err := cast.ToStringE(v)
		if err != nil {
			return out, err
		}
		out.SetString(s)
	default:
		return out, fmt.Errorf("unsupported target type %s", target)
	}
	return out, nil
}

// ToInt64E converts v to an int64. Strings are parsed as base 10 integers,
// floats must be integral and in range, and unsigned values above
// math.MaxInt64 are rejected.
func ToInt64E(v any) (int64, error) {
	switch x := v.(type) {
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	case json.Number:
		return strconv.ParseInt(string(x), 10, 64)
	case float32:
		return floatToInt64(float64(x))
	case float64:
		return floatToInt64(x)
	case uint:
		return uintToInt64(uint64(x))
	case uint64:
		return uintToInt64(x)
	case uintptr:
		return uintToInt64(uint64(x))
	}
	return cast.ToInt64E(v)
}

// ToUint64E converts v to a uint64 with the same rules as ToInt64E. Negative
// values are rejected.
func ToUint64E(v any) (uint64, error) {
	switch x := v.(type) {
	case string:
		return strconv.ParseUint(strings.TrimSpace(x), 10, 64)
	case json.Number:
		return strconv.ParseUint(string(x), 10, 64)
	case float32:
		return floatToUint64(float64(x))
	case float64:
		return floatToUint64(x)
	}
	return cast.ToUint64E(v)
}

// 2^63 is exactly representable; MaxInt64 is not.
const twoPow63 = float64(1 << 63)

func floatToInt64(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	if f < -twoPow63 || f >= twoPow63 {
		return 0, fmt.Errorf("%v is out of int64 range", f)
	}
	return int64(f), nil
}

func floatToUint64(f float64) (uint64, error) {
	if f < 0 {
		return 0, fmt.Errorf("%v is negative", f)
	}
	if f < twoPow63 {
		n, err := floatToInt64(f)
		return uint64(n), err
	}
	if f >= 2*twoPow63 {
		return 0, fmt.Errorf("%v is out of uint64 range", f)
	}
	n, err := floatToInt64(f - twoPow63)
	return uint64(n) + 1<<63, err
}

func uintToInt64(n uint64) (int64, error) {
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("%d is out of int64 range", n)
	}
	return int64(n), nil
}

// sameKind limits reflect conversions to named types over the same basic
// kind; everything else goes through cast so overflow is checked and an int is
// never turned into a one-rune string.
func sameKind(from, to reflect.Type) bool {
	if from.Kind() != to.Kind() {
		return false
	}
	switch to.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
