package types

import (
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/parquet-go/parquet-go"

	"github.com/reservoir-data/tap-pushbullet/utils"
)

type TypeSchema struct {
	Properties sync.Map `json:"-"`
}

func NewTypeSchema() *TypeSchema {
	return &TypeSchema{
		Properties: sync.Map{},
	}
}

// MarshalJSON custom marshaller to handle sync.Map encoding
func (t *TypeSchema) MarshalJSON() ([]byte, error) {
	propertiesMap := make(map[string]*Property)
	t.Properties.Range(func(key, value interface{}) bool {
		strKey, ok := key.(string)
		if !ok {
			return false
		}
		prop, ok := value.(*Property)
		if !ok {
			return false
		}
		propertiesMap[strKey] = prop
		return true
	})

	return json.Marshal(&struct {
		Type       DataType             `json:"type"`
		Properties map[string]*Property `json:"properties,omitempty"`
	}{
		Type:       Object,
		Properties: propertiesMap,
	})
}

// UnmarshalJSON custom unmarshaller to handle sync.Map decoding
func (t *TypeSchema) UnmarshalJSON(data []byte) error {
	aux := &struct {
		Type       DataType             `json:"type"`
		Properties map[string]*Property `json:"properties,omitempty"`
	}{}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	for key, value := range aux.Properties {
		t.Properties.Store(key, value)
	}

	return nil
}

func (t *TypeSchema) GetType(column string) (DataType, error) {
	p, found := t.Properties.Load(column)
	if !found {
		return "", fmt.Errorf("column [%s] missing from type schema", column)
	}

	return p.(*Property).DataType(), nil
}

func (t *TypeSchema) AddTypes(column string, types ...DataType) {
	p, found := t.Properties.Load(column)
	if !found {
		t.Properties.Store(column, &Property{
			Type: NewSet(types...),
		})
		return
	}

	property := p.(*Property)
	property.Type.Insert(types...)
}

func (t *TypeSchema) GetProperty(column string) (bool, *Property) {
	p, found := t.Properties.Load(column)
	if !found {
		return false, nil
	}

	return true, p.(*Property)
}

// Columns returns the declared column names
func (t *TypeSchema) Columns() []string {
	columns := []string{}
	t.Properties.Range(func(key, _ interface{}) bool {
		columns = append(columns, key.(string))
		return true
	})

	return columns
}

func (t *TypeSchema) ToParquet() *parquet.Schema {
	groupNode := parquet.Group{}
	t.Properties.Range(func(key, value interface{}) bool {
		groupNode[key.(string)] = value.(*Property).DataType().ToNewParquet()
		return true
	})

	return parquet.NewSchema("records", groupNode)
}

// Property is a dto for catalog properties representation
type Property struct {
	Type        *Set[DataType]       `json:"type,omitempty"`
	Description string               `json:"description,omitempty"`
	Format      string               `json:"format,omitempty"`
	Enum        []string             `json:"enum,omitempty"`
	Properties  map[string]*Property `json:"properties,omitempty"`
	Items       *Property            `json:"items,omitempty"`
}

// NewProperty builds a nullable property; every API field can come back
// absent, so nullability is the default for declared schemas.
func NewProperty(description string, dtype DataType) *Property {
	return &Property{
		Type:        NewSet(dtype, Null),
		Description: description,
	}
}

func (p *Property) WithEnum(values ...string) *Property {
	p.Enum = values
	return p
}

func (p *Property) WithItems(items *Property) *Property {
	p.Items = items
	return p
}

func (p *Property) WithProperties(nested map[string]*Property) *Property {
	p.Properties = nested
	return p
}

// DataType returns the first non null type of the property
func (p *Property) DataType() DataType {
	types := p.Type.Array()
	i, found := utils.ArrayContains(types, func(elem DataType) bool {
		return elem != Null
	})
	if !found {
		return Null
	}

	return types[i]
}

func (p *Property) Nullable() bool {
	_, found := utils.ArrayContains(p.Type.Array(), func(elem DataType) bool {
		return elem == Null
	})

	return found
}
