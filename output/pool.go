package output

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/reservoir-data/tap-pushbullet/constants"
	"github.com/reservoir-data/tap-pushbullet/types"
	"github.com/reservoir-data/tap-pushbullet/utils"
	"github.com/reservoir-data/tap-pushbullet/utils/flatten"
	"github.com/reservoir-data/tap-pushbullet/utils/typeutils"
)

// Settings carries the record pipeline knobs shared by every writer thread.
// They come from the tap config, not from the writer config, because they
// shape records before any writer sees them.
type Settings struct {
	StreamMaps         map[string]any
	StreamMapConfig    map[string]any
	Faker              *FakerConfig
	FlatteningEnabled  bool
	FlatteningMaxDepth int
	AddRecordMetadata  bool
	StateEveryRows     int64
	State              *types.State
}

// WriterPool spawns one writer thread per outgoing stream. Every thread runs
// the same record middleware before handing records to its writer: metadata
// columns, stream maps, flattening, then schema conformance.
type WriterPool struct {
	totalRecords  atomic.Int64
	threadCounter atomic.Int64
	config        any
	init          NewFunc
	mapper        *Mapper
	flattener     flatten.Flattener
	addMetadata   bool
	stateEvery    int64
	state         *types.State
	tmu           sync.Mutex
}

func NewWriterPool(ctx context.Context, config *types.WriterConfig, settings *Settings) (*WriterPool, error) {
	newfunc, found := RegisteredWriters[config.Type]
	if !found {
		return nil, fmt.Errorf("invalid writer type has been passed [%s]", config.Type)
	}

	adapter := newfunc()
	if err := utils.Unmarshal(config.WriterConfig, adapter.GetConfigRef()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal writer config: %s", err)
	}
	if err := adapter.GetConfigRef().Validate(); err != nil {
		return nil, fmt.Errorf("invalid writer config: %s", err)
	}
	if err := adapter.Check(ctx); err != nil {
		return nil, fmt.Errorf("failed to test writer: %s", err)
	}

	mapper, err := NewMapper(settings.StreamMaps, settings.StreamMapConfig, settings.Faker)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stream maps: %s", err)
	}

	maxDepth := 0
	if settings.FlatteningEnabled {
		maxDepth = settings.FlatteningMaxDepth
		if maxDepth < 1 {
			maxDepth = 1
		}
	}

	stateEvery := settings.StateEveryRows
	if stateEvery <= 0 {
		stateEvery = constants.DefaultBatchSizeRows
	}

	return &WriterPool{
		config:      config.WriterConfig,
		init:        newfunc,
		mapper:      mapper,
		flattener:   flatten.NewFlattener(flatten.DefaultSeparator, maxDepth),
		addMetadata: settings.AddRecordMetadata,
		stateEvery:  stateEvery,
		state:       settings.State,
	}, nil
}

// StreamDropped reports streams removed by the stream maps so the reader can
// skip fetching them at all.
func (w *WriterPool) StreamDropped(name string) bool {
	return w.mapper.StreamDropped(name)
}

// TotalRecords returns the count of records written across all threads.
func (w *WriterPool) TotalRecords() int64 {
	return w.totalRecords.Load()
}

// WriterThread owns one writer bound to one outgoing stream. Records flow
// through a buffered channel into a single consumer goroutine, so writers
// never need their own locking.
type WriterThread struct {
	pool       *WriterPool
	writer     Writer
	stream     types.StreamInterface
	transform  *StreamTransform
	recordChan chan types.RawRecord
	group      *utils.CxGroup
	closed     bool
}

// NewThread sets up a writer for the stream and starts its consumer. The
// writer announces the outgoing schema during Setup, before any record
// reaches it.
func (w *WriterPool) NewThread(ctx context.Context, stream types.StreamInterface, options ...ThreadOptions) (*WriterThread, error) {
	opts := &Options{Number: w.threadCounter.Add(1)}
	for _, one := range options {
		one(opts)
	}
	if opts.Identifier == "" {
		opts.Identifier = stream.ID()
	}

	writer := w.init()
	err := func() error {
		w.tmu.Lock()
		defer w.tmu.Unlock()
		return utils.Unmarshal(w.config, writer.GetConfigRef())
	}()
	if err != nil {
		return nil, fmt.Errorf("failed to configure writer thread[%d]: %s", opts.Number, err)
	}

	outStream, transform, err := w.mapper.TransformStream(stream)
	if err != nil {
		return nil, err
	}
	if w.flattener.Enabled() {
		outStream.GetStream().Schema = w.flattener.FlattenSchema(outStream.Schema())
	}

	if err := writer.Setup(outStream, opts); err != nil {
		return nil, fmt.Errorf("failed to setup writer for stream %s: %s", outStream.Name(), err)
	}

	thread := &WriterThread{
		pool:       w,
		writer:     writer,
		stream:     outStream,
		transform:  transform,
		recordChan: make(chan types.RawRecord, int(w.stateEvery)),
		group:      utils.NewCGroup(ctx),
	}
	thread.group.Add(thread.consume)
	return thread, nil
}

// StreamName returns the outgoing stream name after aliasing.
func (t *WriterThread) StreamName() string {
	return t.stream.Name()
}

// Push hands a record to the consumer, or surfaces the consumer failure when
// it already stopped.
func (t *WriterThread) Push(ctx context.Context, record types.RawRecord) error {
	select {
	case <-t.group.Ctx().Done():
		if err := t.group.Block(); err != nil {
			return err
		}
		return t.group.Ctx().Err()
	case <-ctx.Done():
		return ctx.Err()
	case t.recordChan <- record:
		return nil
	}
}

// Close drains the channel, waits for the consumer and closes the writer.
// Safe to call twice; teardown paths rely on that.
func (t *WriterThread) Close(ctx context.Context) error {
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.recordChan)

	return utils.ErrExecSequential(
		t.group.Block,
		utils.ErrExecFormat("failed to close writer: %s", func() error {
			return t.writer.Close(ctx)
		}),
	)
}

func (t *WriterThread) consume(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case record, open := <-t.recordChan:
			if !open {
				return nil
			}
			if err := t.process(ctx, record); err != nil {
				return err
			}
		}
	}
}

// process runs the middleware chain over one record. Metadata columns go in
// first so stream maps can reference them; conformance runs last so every
// writer receives values matching the announced schema.
func (t *WriterThread) process(ctx context.Context, record types.RawRecord) error {
	data := record.Data
	if t.pool.addMetadata {
		data[constants.SDCExtractedAt] = record.TimeExtracted
		data[constants.SDCReceivedAt] = time.Now().UTC()
		data[constants.SDCSequence] = time.Now().UnixNano()
	}

	if t.transform != nil {
		data = t.transform.ApplyRecord(data)
	}

	data, err := t.pool.flattener.FlattenRecord(data)
	if err != nil {
		return fmt.Errorf("failed to flatten record of stream %s: %s", t.stream.Name(), err)
	}

	if err := typeutils.ReformatRecord(t.stream.Schema(), data); err != nil {
		return fmt.Errorf("failed to conform record of stream %s: %s", t.stream.Name(), err)
	}

	record.Data = data
	if err := t.writer.Write(ctx, record); err != nil {
		return fmt.Errorf("failed to write record of stream %s: %s", t.stream.Name(), err)
	}

	total := t.pool.totalRecords.Add(1)
	if total%t.pool.stateEvery == 0 && t.pool.state != nil && !t.pool.state.IsZero() {
		t.pool.state.LogState()
	}
	return nil
}
