package result

import (
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cast"
)

// DecodeFunc copies a record onto target, a non-nil pointer.
type DecodeFunc func(record map[string]any, target any) error

var (
	bytesType = reflect.TypeOf([]byte(nil))
	timeType  = reflect.TypeOf(time.Time{})
)

// bytesToString lets weakly typed decoding read driver text from []byte into
// numbers and times as well as strings.
func bytesToString(from, to reflect.Type, data any) (any, error) {
	if from == bytesType && to != bytesType {
		return string(data.([]byte)), nil
	}
	return data, nil
}

func stringToTime(from, to reflect.Type, data any) (any, error) {
	if from.Kind() == reflect.String && to == timeType {
		return cast.ToTimeE(data)
	}
	return data, nil
}

// DecodeRecord is the default DecodeFunc. Fields are matched by their `db` tag,
// falling back to a case-insensitive match on the field name.
func DecodeRecord(record map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "db",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.DecodeHookFuncType(bytesToString),
			mapstructure.DecodeHookFuncType(stringToTime),
		),
		Result: target,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(record)
}
