package types

type SyncMode string

const (
	FULLTABLE   SyncMode = "FULL_TABLE"
	INCREMENTAL SyncMode = "INCREMENTAL"
)

// Stream is a dto for a catalog stream; wire fields follow the tap catalog
// layout where the entry is keyed by tap_stream_id.
type Stream struct {
	Name                    string         `json:"stream"`
	TapStreamID             string         `json:"tap_stream_id"`
	Schema                  *TypeSchema    `json:"schema,omitempty"`
	SupportedSyncModes      *Set[SyncMode] `json:"supported_sync_modes,omitempty"`
	SourceDefinedPrimaryKey *Set[string]   `json:"key_properties,omitempty"`
	AvailableCursorFields   *Set[string]   `json:"valid_replication_keys,omitempty"`
	ReplicationKey          string         `json:"replication_key,omitempty"`

	// resolved at catalog validation, not serialized on its own; the
	// metadata breadcrumbs carry it on the wire
	SyncMode SyncMode `json:"-"`
}

func NewStream(name string) *Stream {
	return &Stream{
		Name:                    name,
		TapStreamID:             name,
		Schema:                  NewTypeSchema(),
		SupportedSyncModes:      NewSet(FULLTABLE),
		SourceDefinedPrimaryKey: NewSet[string](),
		AvailableCursorFields:   NewSet[string](),
		SyncMode:                FULLTABLE,
	}
}

func (s *Stream) ID() string {
	return s.TapStreamID
}

func (s *Stream) WithSyncMode(modes ...SyncMode) *Stream {
	s.SupportedSyncModes.Insert(modes...)
	return s
}

func (s *Stream) WithPrimaryKey(keys ...string) *Stream {
	s.SourceDefinedPrimaryKey.Insert(keys...)
	return s
}

// WithCursorField registers an incremental cursor; the stream defaults to
// incremental replication once it has one.
func (s *Stream) WithCursorField(fields ...string) *Stream {
	s.AvailableCursorFields.Insert(fields...)
	s.SupportedSyncModes.Insert(INCREMENTAL)
	if s.ReplicationKey == "" && len(fields) > 0 {
		s.ReplicationKey = fields[0]
	}
	s.SyncMode = INCREMENTAL
	return s
}

func (s *Stream) UpsertField(column string, typ DataType, nullable bool) {
	property := &Property{
		Type: NewSet(typ),
	}
	if nullable {
		property.Type.Insert(Null)
	}

	s.Schema.Properties.Store(column, property)
}

func (s *Stream) AddProperty(column string, property *Property) *Stream {
	s.Schema.Properties.Store(column, property)
	return s
}

func (s *Stream) Cursor() string {
	return s.ReplicationKey
}

// Wrap converts a source stream into a catalog entry with generated metadata
func (s *Stream) Wrap() *ConfiguredStream {
	return &ConfiguredStream{
		Stream:   s,
		Metadata: GenerateMetadata(s),
	}
}
