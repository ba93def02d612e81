package typeutils

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/reservoir-data/tap-pushbullet/types"
)

var ErrNullValue = errors.New("null value")

func reflectToInt64(v any) int64 {
	return reflect.ValueOf(v).Int()
}

func reflectToUint64(v any) uint64 {
	return reflect.ValueOf(v).Uint()
}

func reflectToFloat64(v any) float64 {
	return reflect.ValueOf(v).Float()
}

func getFirstNotNullType(datatypes []types.DataType) types.DataType {
	for _, datatype := range datatypes {
		if datatype != types.Null {
			return datatype
		}
	}

	return types.Null
}

// ReformatRecord conforms a record to its declared schema in place; fields
// the schema does not declare are dropped so output stays conformant even
// when the API starts returning new ones.
func ReformatRecord(schema *types.TypeSchema, record types.Record) error {
	for key, value := range record {
		found, property := schema.GetProperty(key)
		if !found {
			delete(record, key)
			continue
		}
		if value == nil {
			continue
		}

		reformatted, err := ReformatValueOnDataTypes(property.Type.Array(), value)
		if err != nil {
			if errors.Is(err, ErrNullValue) {
				record[key] = nil
				continue
			}
			return fmt.Errorf("failed to reformat field [%s] value [%v]: %s", key, value, err)
		}
		record[key] = reformatted
	}

	return nil
}

func ReformatValueOnDataTypes(datatypes []types.DataType, value any) (any, error) {
	return ReformatValue(getFirstNotNullType(datatypes), value)
}

func ReformatValue(dataType types.DataType, value any) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch dataType {
	case types.Null:
		return nil, ErrNullValue
	case types.Bool:
		return ReformatBool(value)
	case types.Int64:
		return ReformatInt64(value)
	case types.Float64:
		return ReformatFloat64(value)
	case types.String:
		return reformatString(value)
	case types.Timestamp, types.TimestampMilli, types.TimestampMicro, types.TimestampNano:
		return ReformatDate(value)
	case types.Object:
		return reformatObject(value)
	case types.Array:
		if arr, ok := value.([]any); ok {
			return arr, nil
		}
		return []any{value}, nil
	default:
		return value, nil
	}
}

func ReformatBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case int, int8, int16, int32, int64:
		return reflectToInt64(v) != 0, nil
	case float32, float64:
		return reflectToFloat64(v) != 0, nil
	case string:
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("failed to change string %q to bool: %s", v, err)
		}
		return parsed, nil
	default:
		return false, fmt.Errorf("failed to change %v (%T) to bool", value, value)
	}
}

func ReformatInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int, int8, int16, int32, int64:
		return reflectToInt64(v), nil
	case uint, uint8, uint16, uint32, uint64:
		return int64(reflectToUint64(v)), nil
	case float32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case json.Number:
		return v.Int64()
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return parsed, nil
		}
		// fall back for numbers serialized with a fraction
		float, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil {
			return 0, fmt.Errorf("failed to change string %q to int64: %s", v, err)
		}
		return int64(float), nil
	default:
		return 0, fmt.Errorf("failed to change %v (%T) to int64", value, value)
	}
}

func ReformatFloat64(value any) (float64, error) {
	switch v := value.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case int, int8, int16, int32, int64:
		return float64(reflectToInt64(v)), nil
	case uint, uint8, uint16, uint32, uint64:
		return float64(reflectToUint64(v)), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case json.Number:
		return v.Float64()
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("failed to change string %q to float64: %s", v, err)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("failed to change %v (%T) to float64", value, value)
	}
}

// ReformatDate parses timestamps out of the shapes they arrive in; plain
// numbers are treated as unix seconds with an optional fraction.
func ReformatDate(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, fmt.Errorf("nil time value")
		}
		return *v, nil
	case Time:
		return v.Time, nil
	case int, int8, int16, int32, int64:
		return time.Unix(reflectToInt64(v), 0), nil
	case float32:
		return unixFromFloat(float64(v)), nil
	case float64:
		return unixFromFloat(v), nil
	case json.Number:
		float, err := v.Float64()
		if err != nil {
			return time.Time{}, err
		}
		return unixFromFloat(float), nil
	case string:
		return parseStringTimestamp(v)
	default:
		return time.Time{}, fmt.Errorf("failed to change %v (%T) to timestamp", value, value)
	}
}

func unixFromFloat(seconds float64) time.Time {
	sec := int64(seconds)
	nsec := int64((seconds - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func parseStringTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}

	return time.Time{}, fmt.Errorf("value %q does not match any timestamp layout", value)
}

func reformatString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	case map[string]any, []any:
		raw, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to stringify %T: %s", value, err)
		}
		return string(raw), nil
	default:
		return fmt.Sprintf("%v", value), nil
	}
}

func reformatObject(value any) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		return v, nil
	case string:
		decoded := map[string]any{}
		if err := json.Unmarshal([]byte(v), &decoded); err != nil {
			return nil, fmt.Errorf("failed to change string to object: %s", err)
		}
		return decoded, nil
	default:
		return nil, fmt.Errorf("failed to change %v (%T) to object", value, value)
	}
}
