package types

import (
	"time"

	"github.com/parquet-go/parquet-go"
)

// DataType holds the JSON Schema name of a field type; timestamp variants
// carry precision for file destinations and never appear on the wire.
type DataType string

const (
	Null           DataType = "null"
	Int64          DataType = "integer"
	Float64        DataType = "number"
	String         DataType = "string"
	Bool           DataType = "boolean"
	Object         DataType = "object"
	Array          DataType = "array"
	Unknown        DataType = "unknown"
	Timestamp      DataType = "timestamp"
	TimestampMilli DataType = "timestamp_milli" // storing datetime upto 3 precisions
	TimestampMicro DataType = "timestamp_micro" // storing datetime upto 6 precisions
	TimestampNano  DataType = "timestamp_nano"  // storing datetime upto 9 precisions
)

type Record map[string]any

// RawRecord wraps an API resource with the moment it left the source
type RawRecord struct {
	Data          Record    `json:"data"`
	TimeExtracted time.Time `json:"time_extracted"`
}

func CreateRawRecord(data Record, extractedAt time.Time) RawRecord {
	return RawRecord{
		Data:          data,
		TimeExtracted: extractedAt,
	}
}

// ToNewParquet returns the optional parquet node equivalent of the datatype
func (d DataType) ToNewParquet() parquet.Node {
	var node parquet.Node
	switch d {
	case Int64:
		node = parquet.Int(64)
	case Float64:
		node = parquet.Leaf(parquet.DoubleType)
	case Bool:
		node = parquet.Leaf(parquet.BooleanType)
	case Timestamp, TimestampMilli:
		node = parquet.Timestamp(parquet.Millisecond)
	case TimestampMicro:
		node = parquet.Timestamp(parquet.Microsecond)
	case TimestampNano:
		node = parquet.Timestamp(parquet.Nanosecond)
	case Object, Array:
		node = parquet.JSON()
	default:
		node = parquet.String()
	}

	return parquet.Optional(node)
}
