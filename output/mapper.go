package output

import (
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/reservoir-data/tap-pushbullet/types"
	"github.com/reservoir-data/tap-pushbullet/utils/typeutils"
)

const (
	// nullToken inside a stream map removes the stream (or a property) entirely.
	nullToken = "__NULL__"
	// aliasToken renames the outgoing stream.
	aliasToken = "__alias__"
	// elseToken controls what happens to properties the map doesn't mention.
	elseToken = "__else__"

	configPrefix = "config."
	fakePrefix   = "fake."
)

// FakerConfig seeds the generators behind fake.* mapping expressions so that
// masked datasets stay reproducible across runs.
type FakerConfig struct {
	Seed   int64  `json:"seed,omitempty"`
	Locale string `json:"locale,omitempty"`
}

type opKind int

const (
	opCopy opKind = iota
	opConstant
	opFake
)

type propertyOp struct {
	kind   opKind
	source string
	value  any
	fake   func() any
}

// StreamTransform is the compiled per-stream plan: which properties get
// dropped, renamed, copied, faked or pinned to constants.
type StreamTransform struct {
	alias    string
	elseDrop bool
	drops    map[string]bool
	ops      map[string]propertyOp
}

// Mapper holds the parsed stream_maps configuration for every stream. Parsing
// happens once; schema and record application happen per stream and per record.
type Mapper struct {
	transforms map[string]*StreamTransform
	dropped    map[string]bool
}

func NewMapper(streamMaps, streamMapConfig map[string]any, fakerConfig *FakerConfig) (*Mapper, error) {
	mapper := &Mapper{
		transforms: make(map[string]*StreamTransform),
		dropped:    make(map[string]bool),
	}
	if len(streamMaps) == 0 {
		return mapper, nil
	}

	var seed uint64
	if fakerConfig != nil && fakerConfig.Seed != 0 {
		seed = uint64(fakerConfig.Seed)
	}
	faker := gofakeit.New(seed)
	generators := fakeGenerators(faker)

	for streamName, rawMap := range streamMaps {
		if rawMap == nil || rawMap == nullToken {
			mapper.dropped[streamName] = true
			continue
		}

		definition, yes := rawMap.(map[string]any)
		if !yes {
			return nil, fmt.Errorf("stream map for [%s] must be an object or null", streamName)
		}

		transform := &StreamTransform{
			drops: make(map[string]bool),
			ops:   make(map[string]propertyOp),
		}
		for key, value := range definition {
			switch key {
			case aliasToken:
				alias, yes := value.(string)
				if !yes || alias == "" {
					return nil, fmt.Errorf("stream map for [%s] has a non-string %s", streamName, aliasToken)
				}
				transform.alias = alias
			case elseToken:
				if value != nil && value != nullToken {
					return nil, fmt.Errorf("stream map for [%s] only supports null as the %s value", streamName, elseToken)
				}
				transform.elseDrop = true
			default:
				operation, err := parsePropertyOp(streamName, key, value, streamMapConfig, generators)
				if err != nil {
					return nil, err
				}
				if operation == nil {
					transform.drops[key] = true
					continue
				}
				transform.ops[key] = *operation
			}
		}
		mapper.transforms[streamName] = transform
	}
	return mapper, nil
}

// parsePropertyOp compiles one "target: expression" pair. A nil operation with
// a nil error means the target property gets dropped.
func parsePropertyOp(streamName, target string, value any, vars map[string]any, generators map[string]func() any) (*propertyOp, error) {
	switch typed := value.(type) {
	case nil:
		return nil, nil
	case string:
		if typed == nullToken {
			return nil, nil
		}
		if strings.HasPrefix(typed, configPrefix) {
			key := strings.TrimPrefix(typed, configPrefix)
			constant, found := vars[key]
			if !found {
				return nil, fmt.Errorf("stream map for [%s] references missing stream_map_config key [%s]", streamName, key)
			}
			return &propertyOp{kind: opConstant, value: constant}, nil
		}
		if strings.HasPrefix(typed, fakePrefix) {
			name := strings.TrimPrefix(typed, fakePrefix)
			generator, found := generators[name]
			if !found {
				return nil, fmt.Errorf("stream map for [%s] uses unknown faker function [%s]", streamName, name)
			}
			return &propertyOp{kind: opFake, fake: generator}, nil
		}
		return &propertyOp{kind: opCopy, source: typed}, nil
	case bool, float64, int, int64:
		return &propertyOp{kind: opConstant, value: typed}, nil
	default:
		return nil, fmt.Errorf("stream map for [%s] has an unsupported expression for [%s]", streamName, target)
	}
}

// StreamDropped reports whether the map configuration removed the stream; the
// reader skips dropped streams entirely instead of discarding records late.
func (m *Mapper) StreamDropped(name string) bool {
	return m.dropped[name]
}

// TransformStream builds the outgoing stream for one source stream. The result
// is always an independent copy so downstream schema rewrites never leak back
// into the catalog. The returned transform is nil when records pass through
// unchanged.
func (m *Mapper) TransformStream(stream types.StreamInterface) (types.StreamInterface, *StreamTransform, error) {
	transform := m.transforms[stream.Name()]

	outName := stream.Name()
	if transform != nil && transform.alias != "" {
		outName = transform.alias
	}
	out := types.NewStream(outName).WithSyncMode(stream.SupportedSyncModes().Array()...)
	out.WithPrimaryKey(stream.Keys()...)
	if cursor := stream.Cursor(); cursor != "" {
		out.WithCursorField(cursor)
	}
	out.SyncMode = stream.GetSyncMode()

	sourceSchema := stream.Schema()
	for _, column := range sourceSchema.Columns() {
		if transform != nil {
			if transform.drops[column] {
				continue
			}
			if _, shadowed := transform.ops[column]; shadowed {
				continue
			}
			if transform.elseDrop {
				continue
			}
		}
		_, property := sourceSchema.GetProperty(column)
		out.AddProperty(column, cloneProperty(property))
	}

	if transform != nil {
		for target, operation := range transform.ops {
			property, err := operationProperty(stream, target, operation)
			if err != nil {
				return nil, nil, err
			}
			out.AddProperty(target, property)
		}

		for _, key := range stream.Keys() {
			if found, _ := out.Schema.GetProperty(key); !found {
				return nil, nil, fmt.Errorf("stream map for [%s] removes primary key [%s]", stream.Name(), key)
			}
		}
		if cursor := stream.Cursor(); cursor != "" {
			if found, _ := out.Schema.GetProperty(cursor); !found {
				return nil, nil, fmt.Errorf("stream map for [%s] removes replication key [%s]", stream.Name(), cursor)
			}
		}
	}

	return out.Wrap(), transform, nil
}

func operationProperty(stream types.StreamInterface, target string, operation propertyOp) (*types.Property, error) {
	switch operation.kind {
	case opCopy:
		found, property := stream.Schema().GetProperty(operation.source)
		if !found {
			return nil, fmt.Errorf("stream map for [%s] references unknown property [%s]", stream.Name(), operation.source)
		}
		return cloneProperty(property), nil
	case opConstant:
		return types.NewProperty("", typeutils.TypeFromValue(operation.value)), nil
	default:
		return types.NewProperty("", types.String), nil
	}
}

func cloneProperty(property *types.Property) *types.Property {
	return &types.Property{
		Type:        types.NewSet(property.Type.Array()...),
		Description: property.Description,
		Format:      property.Format,
		Enum:        property.Enum,
		Properties:  property.Properties,
		Items:       property.Items,
	}
}

// ApplyRecord runs the compiled plan over one record and returns the outgoing
// shape. Copy operations referencing absent values leave the target absent.
func (t *StreamTransform) ApplyRecord(record types.Record) types.Record {
	out := make(types.Record)
	if !t.elseDrop {
		for key, value := range record {
			if t.drops[key] {
				continue
			}
			if _, shadowed := t.ops[key]; shadowed {
				continue
			}
			out[key] = value
		}
	}
	for target, operation := range t.ops {
		switch operation.kind {
		case opCopy:
			if value, found := record[operation.source]; found {
				out[target] = value
			}
		case opConstant:
			out[target] = operation.value
		case opFake:
			out[target] = operation.fake()
		}
	}
	return out
}

// Alias returns the outgoing stream name override, empty when the stream keeps
// its own name.
func (t *StreamTransform) Alias() string {
	if t == nil {
		return ""
	}
	return t.alias
}

func fakeGenerators(faker *gofakeit.Faker) map[string]func() any {
	return map[string]func() any{
		"name":         func() any { return faker.Name() },
		"first_name":   func() any { return faker.FirstName() },
		"last_name":    func() any { return faker.LastName() },
		"email":        func() any { return faker.Email() },
		"user_name":    func() any { return faker.Username() },
		"phone_number": func() any { return faker.Phone() },
		"company":      func() any { return faker.Company() },
		"city":         func() any { return faker.City() },
		"country":      func() any { return faker.Country() },
		"url":          func() any { return faker.URL() },
		"uuid":         func() any { return faker.UUID() },
		"word":         func() any { return faker.Word() },
		"sentence":     func() any { return faker.Sentence(8) },
	}
}
