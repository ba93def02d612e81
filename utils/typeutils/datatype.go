package typeutils

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/reservoir-data/tap-pushbullet/types"
)

// TypeFromValue maps a decoded JSON value onto a schema datatype; strings
// that parse as timestamps are promoted so derived fields keep their shape.
func TypeFromValue(v interface{}) types.DataType {
	if v == nil {
		return types.Null
	}

	switch val := v.(type) {
	case bool:
		return types.Bool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return types.Int64
	case float32, float64:
		return types.Float64
	case json.Number:
		// json.Decoder with UseNumber() hands numbers over as strings
		if _, err := val.Int64(); err == nil {
			return types.Int64
		}
		return types.Float64
	case string:
		if t, err := parseStringTimestamp(val); err == nil {
			return detectTimestampPrecision(t)
		}
		return types.String
	case []byte:
		return types.String
	case time.Time:
		return detectTimestampPrecision(val)
	case []any:
		return types.Array
	case map[string]any:
		return types.Object
	default:
		return types.Unknown
	}
}

// Detect timestamp precision depending on time value
func detectTimestampPrecision(t time.Time) types.DataType {
	nanos := t.Nanosecond()
	if nanos == 0 {
		return types.Timestamp
	}
	switch {
	case nanos%int(time.Millisecond) == 0:
		return types.TimestampMilli
	case nanos%int(time.Microsecond) == 0:
		return types.TimestampMicro
	default:
		return types.TimestampNano
	}
}
