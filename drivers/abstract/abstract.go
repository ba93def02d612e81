package abstract

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/reservoir-data/tap-pushbullet/constants"
	"github.com/reservoir-data/tap-pushbullet/output"
	"github.com/reservoir-data/tap-pushbullet/types"
	"github.com/reservoir-data/tap-pushbullet/utils"
	"github.com/reservoir-data/tap-pushbullet/utils/logger"
)

// AbstractDriver drives a source through the tap lifecycle: discovery fans
// out per stream, sync runs full table streams before incremental ones and
// keeps bookmarks honest. Sources stay small; they only know how to list,
// describe and fetch their streams.
type AbstractDriver struct {
	driver DriverInterface
	state  *types.State
}

func NewAbstractDriver(_ context.Context, driver DriverInterface) *AbstractDriver {
	return &AbstractDriver{driver: driver}
}

func (a *AbstractDriver) SetupState(state *types.State) {
	a.state = state
	a.driver.SetupState(state)
}

func (a *AbstractDriver) GetConfigRef() Config {
	return a.driver.GetConfigRef()
}

func (a *AbstractDriver) Spec() any {
	return a.driver.Spec()
}

func (a *AbstractDriver) Type() string {
	return a.driver.Type()
}

func (a *AbstractDriver) Setup(ctx context.Context) error {
	return a.driver.Setup(ctx)
}

func (a *AbstractDriver) WriterConfig() *types.WriterConfig {
	return a.driver.WriterConfig()
}

func (a *AbstractDriver) PipelineSettings() *output.Settings {
	return a.driver.PipelineSettings()
}

// Discover declares every stream the source exposes. Metadata columns get
// attached here so they show up in the announced schemas, not just in records.
func (a *AbstractDriver) Discover(ctx context.Context) ([]*types.Stream, error) {
	names, err := a.driver.GetStreamNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream names: %s", err)
	}

	var streamMap sync.Map
	err = utils.Concurrent(ctx, names, len(names), func(ctx context.Context, name string, _ int) error {
		stream, err := a.driver.ProduceSchema(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to produce schema for stream %s: %s", name, err)
		}
		streamMap.Store(stream.ID(), stream)
		return nil
	})
	if err != nil {
		return nil, err
	}

	addMetadata := false
	if settings := a.driver.PipelineSettings(); settings != nil {
		addMetadata = settings.AddRecordMetadata
	}

	var streams []*types.Stream
	streamMap.Range(func(_, value any) bool {
		stream, _ := value.(*types.Stream)
		if addMetadata {
			attachMetadataColumns(stream)
		}
		streams = append(streams, stream)
		return true
	})
	return streams, nil
}

// attachMetadataColumns declares the record metadata columns the pipeline
// fills in while records flow through.
func attachMetadataColumns(stream *types.Stream) {
	for _, column := range []string{constants.SDCExtractedAt, constants.SDCReceivedAt, constants.SDCBatchedAt} {
		property := types.NewProperty("", types.String)
		property.Format = "date-time"
		stream.AddProperty(column, property)
	}
	stream.UpsertField(constants.SDCSequence, types.Int64, true)
}

// Read syncs the selected streams one at a time: the API is a single rate
// limited endpoint, so stream level parallelism buys nothing here. Full table
// streams go first, incremental streams follow and leave bookmarks behind.
// A failed stream gets replayed whole; its bookmark never moved, so the retry
// covers the same window.
func (a *AbstractDriver) Read(ctx context.Context, pool *output.WriterPool, streams *types.StreamCategories) error {
	for _, stream := range streams.FullTableStreams {
		if pool.StreamDropped(stream.Name()) {
			logger.Infof("Skipping stream %s, removed by stream maps", stream.ID())
			continue
		}
		err := RetryOnBackoff(a.driver.MaxRetries(), time.Minute, func() error {
			return a.fullTable(ctx, pool, stream)
		})
		if err != nil {
			return fmt.Errorf("failed full table sync for stream %s: %s", stream.ID(), err)
		}
	}

	for _, stream := range streams.IncrementalStreams {
		if pool.StreamDropped(stream.Name()) {
			logger.Infof("Skipping stream %s, removed by stream maps", stream.ID())
			continue
		}
		err := RetryOnBackoff(a.driver.MaxRetries(), time.Minute, func() error {
			return a.incremental(ctx, pool, stream)
		})
		if err != nil {
			return fmt.Errorf("failed incremental sync for stream %s: %s", stream.ID(), err)
		}
	}
	return nil
}

// generateThreadID creates a unique thread ID for a stream
func generateThreadID(streamID string) string {
	return fmt.Sprintf("%s_%s", streamID, utils.ULID())
}
