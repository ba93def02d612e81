package abstract

import (
	"context"
	"sync"

	"github.com/reservoir-data/tap-pushbullet/output"
	"github.com/reservoir-data/tap-pushbullet/types"
)

// MemoryWriter keeps written records in memory so tests can assert on what
// reached the destination side of the pipeline.
type MemoryWriter struct {
	config *MemoryConfig
	stream types.StreamInterface
}

type MemoryConfig struct{}

func (c *MemoryConfig) Validate() error {
	return nil
}

var memorySink = struct {
	mu      sync.Mutex
	records map[string][]types.Record
}{records: map[string][]types.Record{}}

func resetMemorySink() {
	memorySink.mu.Lock()
	defer memorySink.mu.Unlock()
	memorySink.records = map[string][]types.Record{}
}

func writtenRecords(stream string) []types.Record {
	memorySink.mu.Lock()
	defer memorySink.mu.Unlock()
	return memorySink.records[stream]
}

func (w *MemoryWriter) GetConfigRef() output.Config {
	w.config = &MemoryConfig{}
	return w.config
}

func (w *MemoryWriter) Spec() any                     { return MemoryConfig{} }
func (w *MemoryWriter) Type() string                  { return "memory" }
func (w *MemoryWriter) Check(_ context.Context) error { return nil }
func (w *MemoryWriter) Close(_ context.Context) error { return nil }

func (w *MemoryWriter) Setup(stream types.StreamInterface, _ *output.Options) error {
	w.stream = stream
	return nil
}

func (w *MemoryWriter) Write(_ context.Context, record types.RawRecord) error {
	memorySink.mu.Lock()
	defer memorySink.mu.Unlock()
	memorySink.records[w.stream.Name()] = append(memorySink.records[w.stream.Name()], record.Data)
	return nil
}

// Register the memory writer for tests
func init() {
	output.RegisteredWriters["memory"] = func() output.Writer {
		return new(MemoryWriter)
	}
}

// MockDriver implements DriverInterface with overridable behavior per test
type MockDriver struct {
	getStreamNamesFunc func(ctx context.Context) ([]string, error)
	produceSchemaFunc  func(ctx context.Context, stream string) (*types.Stream, error)
	streamChangesFunc  func(ctx context.Context, stream types.StreamInterface, since any, processFn RecordMsgFn) error
	settings           *output.Settings
	state              *types.State
	maxRetries         int
}

func (m *MockDriver) GetConfigRef() Config          { return &MemoryConfig{} }
func (m *MockDriver) Spec() any                     { return MemoryConfig{} }
func (m *MockDriver) Type() string                  { return "mock" }
func (m *MockDriver) Setup(_ context.Context) error { return nil }
func (m *MockDriver) SetupState(state *types.State) { m.state = state }

// MaxRetries defaults to a single attempt so failure tests stay fast
func (m *MockDriver) MaxRetries() int {
	if m.maxRetries > 0 {
		return m.maxRetries
	}
	return 1
}

func (m *MockDriver) GetStreamNames(ctx context.Context) ([]string, error) {
	if m.getStreamNamesFunc != nil {
		return m.getStreamNamesFunc(ctx)
	}
	return []string{}, nil
}

func (m *MockDriver) ProduceSchema(ctx context.Context, stream string) (*types.Stream, error) {
	if m.produceSchemaFunc != nil {
		return m.produceSchemaFunc(ctx, stream)
	}
	return sourceStream(stream), nil
}

func (m *MockDriver) StreamChanges(ctx context.Context, stream types.StreamInterface, since any, processFn RecordMsgFn) error {
	if m.streamChangesFunc != nil {
		return m.streamChangesFunc(ctx, stream, since, processFn)
	}
	return nil
}

func (m *MockDriver) WriterConfig() *types.WriterConfig {
	return &types.WriterConfig{Type: "memory"}
}

func (m *MockDriver) PipelineSettings() *output.Settings {
	if m.settings != nil {
		return m.settings
	}
	return &output.Settings{}
}

// sourceStream builds the shape discovery would declare for a test stream
func sourceStream(name string) *types.Stream {
	stream := types.NewStream(name).WithPrimaryKey("iden").WithCursorField("modified")
	stream.UpsertField("iden", types.String, false)
	stream.UpsertField("modified", types.Float64, false)
	stream.UpsertField("nickname", types.String, true)
	return stream
}

// fullTableStream builds a stream with no cursor, replicated as full table
func fullTableStream(name string) *types.Stream {
	stream := types.NewStream(name).WithPrimaryKey("iden")
	stream.UpsertField("iden", types.String, false)
	stream.UpsertField("nickname", types.String, true)
	return stream
}
