package types

import (
	"fmt"

	"github.com/goccy/go-json"
)

const (
	MetadataSelected          = "selected"
	MetadataInclusion         = "inclusion"
	MetadataReplicationMethod = "replication-method"
	MetadataReplicationKey    = "replication-key"
	MetadataTableKeyProps     = "table-key-properties"
	MetadataValidReplKeys     = "valid-replication-keys"

	InclusionAvailable = "available"
	InclusionAutomatic = "automatic"
)

// Metadata is a catalog metadata entry; an empty breadcrumb addresses the
// stream itself, ["properties", name] addresses a single field.
type Metadata struct {
	Breadcrumb []string       `json:"breadcrumb"`
	Metadata   map[string]any `json:"metadata"`
}

// StreamMetadata carries the stream level metadata resolved from breadcrumbs
type StreamMetadata struct {
	Selected          *bool
	ReplicationMethod string
	ReplicationKey    string
}

// ConfiguredStream is a catalog entry; stream fields sit flattened next to
// the metadata array on the wire.
type ConfiguredStream struct {
	StreamMetadata StreamMetadata `json:"-"`
	Stream         *Stream        `json:"-"`
	Metadata       []Metadata     `json:"-"`
}

func (s *ConfiguredStream) MarshalJSON() ([]byte, error) {
	type Alias Stream
	return json.Marshal(&struct {
		*Alias
		Metadata []Metadata `json:"metadata,omitempty"`
	}{
		Alias:    (*Alias)(s.Stream),
		Metadata: s.Metadata,
	})
}

func (s *ConfiguredStream) UnmarshalJSON(data []byte) error {
	stream := NewStream("")
	aux := &struct {
		*Stream
		Metadata []Metadata `json:"metadata,omitempty"`
	}{
		Stream: stream,
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	s.Stream = stream
	s.Metadata = aux.Metadata
	if s.Stream.TapStreamID == "" {
		s.Stream.TapStreamID = s.Stream.Name
	}
	s.resolveMetadata()
	return nil
}

// resolveMetadata folds the stream level breadcrumb entry into typed fields
// and applies replication overrides onto the stream
func (s *ConfiguredStream) resolveMetadata() {
	for _, entry := range s.Metadata {
		if len(entry.Breadcrumb) != 0 {
			continue
		}

		if selected, found := entry.Metadata[MetadataSelected].(bool); found {
			s.StreamMetadata.Selected = &selected
		}
		if method, found := entry.Metadata[MetadataReplicationMethod].(string); found {
			s.StreamMetadata.ReplicationMethod = method
			s.Stream.SyncMode = SyncMode(method)
		}
		if key, found := entry.Metadata[MetadataReplicationKey].(string); found {
			s.StreamMetadata.ReplicationKey = key
			s.Stream.ReplicationKey = key
		}
	}
}

// IsSelected treats streams without explicit selection metadata as selected
func (s *ConfiguredStream) IsSelected() bool {
	if s.StreamMetadata.Selected == nil {
		return true
	}

	return *s.StreamMetadata.Selected
}

func (s *ConfiguredStream) ID() string {
	return s.Stream.ID()
}

func (s *ConfiguredStream) Self() *ConfiguredStream {
	return s
}

func (s *ConfiguredStream) Name() string {
	return s.Stream.Name
}

func (s *ConfiguredStream) GetStream() *Stream {
	return s.Stream
}

func (s *ConfiguredStream) Schema() *TypeSchema {
	return s.Stream.Schema
}

func (s *ConfiguredStream) SupportedSyncModes() *Set[SyncMode] {
	return s.Stream.SupportedSyncModes
}

func (s *ConfiguredStream) GetSyncMode() SyncMode {
	return s.Stream.SyncMode
}

func (s *ConfiguredStream) Cursor() string {
	return s.Stream.ReplicationKey
}

func (s *ConfiguredStream) Keys() []string {
	return s.Stream.SourceDefinedPrimaryKey.Array()
}

// Validate checks a catalog entry against the source stream and fills in
// the source knowledge the catalog may omit
func (s *ConfiguredStream) Validate(source *Stream) error {
	if s.Stream.SyncMode == "" {
		s.Stream.SyncMode = source.SyncMode
	}
	if s.Stream.ReplicationKey == "" {
		s.Stream.ReplicationKey = source.ReplicationKey
	}
	if s.Stream.SourceDefinedPrimaryKey.Len() == 0 {
		s.Stream.SourceDefinedPrimaryKey = source.SourceDefinedPrimaryKey
	}
	if s.Stream.Schema == nil || len(s.Stream.Schema.Columns()) == 0 {
		s.Stream.Schema = source.Schema
	}

	if !source.SupportedSyncModes.Exists(s.Stream.SyncMode) {
		return fmt.Errorf("invalid sync mode[%s]; valid are %v", s.Stream.SyncMode, source.SupportedSyncModes)
	}

	if s.Stream.SyncMode == INCREMENTAL && !source.AvailableCursorFields.Exists(s.Stream.ReplicationKey) {
		return fmt.Errorf("invalid replication key [%s]; valid are %v", s.Stream.ReplicationKey, source.AvailableCursorFields)
	}

	if s.Stream.SourceDefinedPrimaryKey.ProperSubsetOf(source.SourceDefinedPrimaryKey) {
		return fmt.Errorf("difference found with primary keys: %v", s.Stream.SourceDefinedPrimaryKey.Difference(source.SourceDefinedPrimaryKey).Array())
	}

	return nil
}
