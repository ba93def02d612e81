package types

import (
	"sort"

	"github.com/spf13/viper"

	"github.com/reservoir-data/tap-pushbullet/constants"
	"github.com/reservoir-data/tap-pushbullet/utils/logger"
)

// Catalog is a dto for the discovery document serialization
type Catalog struct {
	Streams []*ConfiguredStream `json:"streams"`
}

func GetWrappedCatalog(streams []*Stream) *Catalog {
	catalog := &Catalog{
		Streams: []*ConfiguredStream{},
	}

	for _, stream := range streams {
		catalog.Streams = append(catalog.Streams, stream.Wrap())
	}

	return catalog
}

// GenerateMetadata builds the breadcrumb entries for a discovered stream;
// key and cursor fields are marked automatic, everything else available.
func GenerateMetadata(stream *Stream) []Metadata {
	streamLevel := map[string]any{
		MetadataInclusion:         InclusionAvailable,
		MetadataSelected:          true,
		MetadataTableKeyProps:     stream.SourceDefinedPrimaryKey.Array(),
		MetadataReplicationMethod: string(stream.SyncMode),
	}
	if stream.ReplicationKey != "" {
		streamLevel[MetadataReplicationKey] = stream.ReplicationKey
		streamLevel[MetadataValidReplKeys] = stream.AvailableCursorFields.Array()
	}
	entries := []Metadata{{Breadcrumb: []string{}, Metadata: streamLevel}}

	automatic := NewSet(stream.SourceDefinedPrimaryKey.Array()...)
	if stream.ReplicationKey != "" {
		automatic.Insert(stream.ReplicationKey)
	}

	columns := stream.Schema.Columns()
	sort.Strings(columns)
	for _, column := range columns {
		inclusion := InclusionAvailable
		if automatic.Exists(column) {
			inclusion = InclusionAutomatic
		}
		entries = append(entries, Metadata{
			Breadcrumb: []string{"properties", column},
			Metadata:   map[string]any{MetadataInclusion: inclusion},
		})
	}

	return entries
}

// LogCatalog writes the catalog document to stdout and keeps a copy at the
// configured catalog path so later sync runs can pick it up
func LogCatalog(streams []*Stream) {
	catalog := GetWrappedCatalog(streams)
	logger.WriteIndented(catalog)

	catalogPath := viper.GetString(constants.CatalogPath)
	if catalogPath == "" {
		return
	}
	if err := logger.FileLoggerWithPath(catalog, catalogPath); err != nil {
		logger.Fatalf("failed to write catalog file: %s", err)
	}
}
