// Package flatten lifts nested objects to the top level of a record so every
// emitted column is a scalar or a serialized blob.
package flatten

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/reservoir-data/tap-pushbullet/types"
)

const DefaultSeparator = "__"

// Flattener rewrites records and their schemas into a single level. Nested
// objects are traversed up to maxLevel; anything deeper, and arrays at any
// depth, is serialized into a JSON string column.
type Flattener struct {
	separator string
	maxLevel  int
}

func NewFlattener(separator string, maxLevel int) Flattener {
	if separator == "" {
		separator = DefaultSeparator
	}

	return Flattener{
		separator: separator,
		maxLevel:  maxLevel,
	}
}

// Enabled reports whether flattening was requested at all; zero depth leaves
// records and schemas untouched.
func (f Flattener) Enabled() bool {
	return f.maxLevel > 0
}

func (f Flattener) FlattenRecord(record types.Record) (types.Record, error) {
	if !f.Enabled() {
		return record, nil
	}

	flattened := make(types.Record)
	if err := f.flattenInto(flattened, "", record, 1); err != nil {
		return nil, err
	}

	return flattened, nil
}

func (f Flattener) flattenInto(destination types.Record, prefix string, node map[string]any, level int) error {
	for key, value := range node {
		flatKey := key
		if prefix != "" {
			flatKey = prefix + f.separator + key
		}

		switch typed := value.(type) {
		case map[string]any:
			if level <= f.maxLevel {
				if err := f.flattenInto(destination, flatKey, typed, level+1); err != nil {
					return err
				}
				continue
			}

			serialized, err := json.Marshal(typed)
			if err != nil {
				return fmt.Errorf("failed to serialize object at column [%s]: %s", flatKey, err)
			}

			destination[flatKey] = string(serialized)
		case []any:
			// arrays have no keys to merge upward, serialize them as is
			serialized, err := json.Marshal(typed)
			if err != nil {
				return fmt.Errorf("failed to serialize array at column [%s]: %s", flatKey, err)
			}

			destination[flatKey] = string(serialized)
		default:
			destination[flatKey] = value
		}
	}

	return nil
}

// FlattenSchema mirrors FlattenRecord on declared schemas so SCHEMA output
// stays aligned with the records that follow it. Object and array properties
// that are not traversed become string columns.
func (f Flattener) FlattenSchema(schema *types.TypeSchema) *types.TypeSchema {
	if !f.Enabled() {
		return schema
	}

	flattened := types.NewTypeSchema()
	schema.Properties.Range(func(key, value any) bool {
		f.flattenProperty(flattened, key.(string), value.(*types.Property), 1)
		return true
	})

	return flattened
}

func (f Flattener) flattenProperty(destination *types.TypeSchema, flatKey string, property *types.Property, level int) {
	if property.DataType() == types.Object && len(property.Properties) > 0 && level <= f.maxLevel {
		for name, nested := range property.Properties {
			f.flattenProperty(destination, flatKey+f.separator+name, nested, level+1)
		}
		return
	}

	destination.Properties.Store(flatKey, f.leafProperty(property))
}

// leafProperty copies a property into the flattened schema; untraversed
// objects and arrays turn into strings to match the serialized record values.
func (f Flattener) leafProperty(property *types.Property) *types.Property {
	switch property.DataType() {
	case types.Object, types.Array:
		serialized := &types.Property{
			Type:        types.NewSet(types.String),
			Description: property.Description,
		}
		if property.Nullable() {
			serialized.Type.Insert(types.Null)
		}

		return serialized
	default:
		return &types.Property{
			Type:        types.NewSet(property.Type.Array()...),
			Description: property.Description,
			Format:      property.Format,
			Enum:        property.Enum,
		}
	}
}
