package typeutils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reservoir-data/tap-pushbullet/types"
)

func TestReformat_GetFirstNotNullType(t *testing.T) {
	tests := []struct {
		name   string
		input  []types.DataType
		output types.DataType
	}{
		{
			name:   "single non-null type",
			input:  []types.DataType{types.String},
			output: types.String,
		},
		{
			name:   "first non-null type mixed array",
			input:  []types.DataType{types.Null, types.Int64, types.String},
			output: types.Int64,
		},
		{
			name:   "all null types",
			input:  []types.DataType{types.Null, types.Null},
			output: types.Null,
		},
		{
			name:   "empty array",
			input:  []types.DataType{},
			output: types.Null,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := getFirstNotNullType(tc.input)
			assert.Equal(t, tc.output, result)
		})
	}
}

func TestReformat_ReformatValue(t *testing.T) {
	tests := []struct {
		name         string
		datatype     types.DataType
		value        any
		output       any
		outputErr    bool
		outputErrMsg string
	}{
		{
			name:         "null type returns error",
			datatype:     types.Null,
			value:        "any value",
			outputErr:    true,
			outputErrMsg: "null value",
		},
		{
			name:     "nil value passes through",
			datatype: types.String,
			value:    nil,
			output:   nil,
		},
		{
			name:     "bool from bool",
			datatype: types.Bool,
			value:    true,
			output:   true,
		},
		{
			name:     "bool from int",
			datatype: types.Bool,
			value:    0,
			output:   false,
		},
		{
			name:     "int64 from float64",
			datatype: types.Int64,
			value:    float64(42.7),
			output:   int64(42),
		},
		{
			name:     "int64 from string",
			datatype: types.Int64,
			value:    "42",
			output:   int64(42),
		},
		{
			name:     "float64 from string",
			datatype: types.Float64,
			value:    "3.14",
			output:   float64(3.14),
		},
		{
			name:     "float64 from int",
			datatype: types.Float64,
			value:    42,
			output:   float64(42),
		},
		{
			name:     "string from int",
			datatype: types.String,
			value:    42,
			output:   "42",
		},
		{
			name:     "string from bytes",
			datatype: types.String,
			value:    []byte("hello"),
			output:   "hello",
		},
		{
			name:     "string from object",
			datatype: types.String,
			value:    map[string]any{"a": float64(1)},
			output:   `{"a":1}`,
		},
		{
			name:     "timestamp from rfc3339 string",
			datatype: types.Timestamp,
			value:    "2023-01-01T12:00:00Z",
			output:   time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			name:     "timestamp from unix seconds",
			datatype: types.Timestamp,
			value:    int64(1672574400),
			output:   time.Unix(1672574400, 0),
		},
		{
			name:     "array passes through",
			datatype: types.Array,
			value:    []any{1, 2, 3},
			output:   []any{1, 2, 3},
		},
		{
			name:     "array wraps scalar",
			datatype: types.Array,
			value:    42,
			output:   []any{42},
		},
		{
			name:     "object passes through",
			datatype: types.Object,
			value:    map[string]any{"iden": "x"},
			output:   map[string]any{"iden": "x"},
		},
		{
			name:     "unknown type passes through",
			datatype: types.Unknown,
			value:    "some value",
			output:   "some value",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := ReformatValue(tc.datatype, tc.value)

			if tc.outputErr {
				assert.Error(t, err)
				if tc.outputErrMsg != "" {
					assert.Contains(t, err.Error(), tc.outputErrMsg)
				}
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.output, result)
			}
		})
	}
}

func TestReformat_ReformatDateFromFloatSeconds(t *testing.T) {
	// replication cursors arrive as unix seconds with a fraction
	parsed, err := ReformatDate(1718000000.5)
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1718000000, int64(500*time.Millisecond)).UTC(), parsed.UTC())
}

func TestReformat_ReformatRecord(t *testing.T) {
	newSchema := func(fields map[string]types.DataType) *types.TypeSchema {
		schema := types.NewTypeSchema()
		for column, datatype := range fields {
			schema.AddTypes(column, datatype, types.Null)
		}
		return schema
	}

	tests := []struct {
		name      string
		schema    *types.TypeSchema
		record    types.Record
		output    types.Record
		outputErr bool
	}{
		{
			name: "successful reformat",
			schema: newSchema(map[string]types.DataType{
				"iden":     types.String,
				"modified": types.Float64,
				"active":   types.Bool,
			}),
			record: types.Record{
				"iden":     "ujpah72o0sjAoRtnM0jc",
				"modified": "1718000000.5",
				"active":   true,
			},
			output: types.Record{
				"iden":     "ujpah72o0sjAoRtnM0jc",
				"modified": float64(1718000000.5),
				"active":   true,
			},
		},
		{
			name: "undeclared field dropped",
			schema: newSchema(map[string]types.DataType{
				"iden": types.String,
			}),
			record: types.Record{
				"iden":       "x",
				"surprising": "new api field",
			},
			output: types.Record{
				"iden": "x",
			},
		},
		{
			name: "nil values kept",
			schema: newSchema(map[string]types.DataType{
				"iden": types.String,
				"body": types.String,
			}),
			record: types.Record{
				"iden": "x",
				"body": nil,
			},
			output: types.Record{
				"iden": "x",
				"body": nil,
			},
		},
		{
			name: "unconvertible value errors",
			schema: newSchema(map[string]types.DataType{
				"modified": types.Float64,
			}),
			record: types.Record{
				"modified": "not-a-number",
			},
			outputErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ReformatRecord(tc.schema, tc.record)
			if tc.outputErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.output, tc.record)
			}
		})
	}
}
