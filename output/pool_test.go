package output

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/reservoir-data/tap-pushbullet/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const captureType types.WriterType = "capture"

type capture struct {
	mu       sync.Mutex
	streams  []types.StreamInterface
	records  []types.Record
	writeErr error
}

type captureConfig struct{}

func (c *captureConfig) Validate() error { return nil }

type captureWriter struct {
	config *captureConfig
	stream types.StreamInterface
	sink   *capture
}

func (c *captureWriter) GetConfigRef() Config {
	c.config = &captureConfig{}
	return c.config
}

func (c *captureWriter) Spec() any                     { return captureConfig{} }
func (c *captureWriter) Type() string                  { return string(captureType) }
func (c *captureWriter) Check(_ context.Context) error { return nil }
func (c *captureWriter) Close(_ context.Context) error { return nil }

func (c *captureWriter) Setup(stream types.StreamInterface, _ *Options) error {
	c.stream = stream
	c.sink.mu.Lock()
	defer c.sink.mu.Unlock()
	c.sink.streams = append(c.sink.streams, stream)
	return nil
}

func (c *captureWriter) Write(_ context.Context, record types.RawRecord) error {
	c.sink.mu.Lock()
	defer c.sink.mu.Unlock()
	if c.sink.writeErr != nil {
		return c.sink.writeErr
	}
	c.sink.records = append(c.sink.records, record.Data)
	return nil
}

func newTestPool(t *testing.T, settings *Settings, sink *capture) *WriterPool {
	t.Helper()

	RegisteredWriters[captureType] = func() Writer {
		return &captureWriter{sink: sink}
	}
	t.Cleanup(func() { delete(RegisteredWriters, captureType) })

	pool, err := NewWriterPool(context.Background(), &types.WriterConfig{Type: captureType}, settings)
	require.NoError(t, err)
	return pool
}

func metadataStream(t *testing.T) types.StreamInterface {
	t.Helper()

	stream := types.NewStream("chats").WithPrimaryKey("iden").WithCursorField("modified")
	stream.UpsertField("iden", types.String, false)
	stream.UpsertField("modified", types.Float64, false)
	stream.AddProperty("with", types.NewProperty("", types.Object).WithProperties(map[string]*types.Property{
		"email": types.NewProperty("", types.String),
	}))
	stream.UpsertField("_sdc_extracted_at", types.String, true)
	stream.UpsertField("_sdc_received_at", types.String, true)
	stream.UpsertField("_sdc_sequence", types.Int64, true)
	return stream.Wrap()
}

func TestNewWriterPoolRejectsUnknownWriter(t *testing.T) {
	_, err := NewWriterPool(context.Background(), &types.WriterConfig{Type: "carrier-pigeon"}, &Settings{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid writer type")
}

func TestThreadRunsMiddlewareChain(t *testing.T) {
	sink := &capture{}
	pool := newTestPool(t, &Settings{
		AddRecordMetadata:  true,
		FlatteningEnabled:  true,
		FlatteningMaxDepth: 1,
	}, sink)

	thread, err := pool.NewThread(context.Background(), metadataStream(t))
	require.NoError(t, err)

	err = thread.Push(context.Background(), types.CreateRawRecord(types.Record{
		"iden":       "ujpah72o0sjAoRtnD0jc",
		"modified":   1412047948.579029,
		"with":       map[string]any{"email": "gdb@pushbullet.com"},
		"undeclared": "dropped by conformance",
	}, time.Now()))
	require.NoError(t, err)
	require.NoError(t, thread.Close(context.Background()))

	require.Len(t, sink.records, 1)
	record := sink.records[0]

	assert.Equal(t, "gdb@pushbullet.com", record["with__email"])
	assert.NotContains(t, record, "with")
	assert.NotContains(t, record, "undeclared")
	assert.IsType(t, "", record["_sdc_extracted_at"])
	assert.IsType(t, int64(0), record["_sdc_sequence"])
	assert.Equal(t, int64(1), pool.TotalRecords())

	// the announced schema must describe the flattened shape
	require.Len(t, sink.streams, 1)
	assert.Contains(t, sink.streams[0].Schema().Columns(), "with__email")
	assert.NotContains(t, sink.streams[0].Schema().Columns(), "with")
}

func TestThreadAppliesStreamMaps(t *testing.T) {
	sink := &capture{}
	pool := newTestPool(t, &Settings{
		StreamMaps: map[string]any{
			"chats": map[string]any{
				"__alias__": "contacts",
				"with":      nil,
			},
		},
	}, sink)

	thread, err := pool.NewThread(context.Background(), metadataStream(t))
	require.NoError(t, err)

	err = thread.Push(context.Background(), types.CreateRawRecord(types.Record{
		"iden":     "ujpah72o0sjAoRtnD0jc",
		"modified": 1412047948.579029,
		"with":     map[string]any{"email": "gdb@pushbullet.com"},
	}, time.Now()))
	require.NoError(t, err)
	require.NoError(t, thread.Close(context.Background()))

	assert.Equal(t, "contacts", thread.StreamName())
	require.Len(t, sink.records, 1)
	assert.NotContains(t, sink.records[0], "with")
	assert.Equal(t, "ujpah72o0sjAoRtnD0jc", sink.records[0]["iden"])
}

func TestThreadSurfacesWriterFailures(t *testing.T) {
	sink := &capture{writeErr: errors.New("sink exploded")}
	pool := newTestPool(t, &Settings{}, sink)

	thread, err := pool.NewThread(context.Background(), metadataStream(t))
	require.NoError(t, err)

	_ = thread.Push(context.Background(), types.CreateRawRecord(types.Record{
		"iden": "x", "modified": 1.0,
	}, time.Now()))

	err = thread.Close(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink exploded")

	// second close reports nothing new
	assert.NoError(t, thread.Close(context.Background()))
}

func TestPoolDropsStreamsFromMaps(t *testing.T) {
	pool := newTestPool(t, &Settings{
		StreamMaps: map[string]any{"devices": nil},
	}, &capture{})

	assert.True(t, pool.StreamDropped("devices"))
	assert.False(t, pool.StreamDropped("chats"))
}
