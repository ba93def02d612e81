package stdout

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/reservoir-data/tap-pushbullet/output"
	"github.com/reservoir-data/tap-pushbullet/types"
	"github.com/reservoir-data/tap-pushbullet/utils/logger"
)

// Stdout emits the stream as wire messages on standard output: one SCHEMA
// line at setup, then a RECORD line per record. State lines are owned by the
// pool, not the writer.
type Stdout struct {
	config  *Config
	stream  types.StreamInterface
	options *output.Options
	records atomic.Int64
}

type Config struct{}

func (c *Config) Validate() error {
	return nil
}

func (s *Stdout) GetConfigRef() output.Config {
	s.config = &Config{}
	return s.config
}

func (s *Stdout) Spec() any {
	return Config{}
}

func (s *Stdout) Type() string {
	return string(types.StdoutType)
}

func (s *Stdout) Check(_ context.Context) error {
	return nil
}

func (s *Stdout) Setup(stream types.StreamInterface, options *output.Options) error {
	s.stream = stream
	s.options = options

	message := types.Message{
		Type:          types.SchemaMessage,
		Stream:        stream.Name(),
		Schema:        stream.Schema(),
		KeyProperties: stream.Keys(),
	}
	if cursor := stream.Cursor(); cursor != "" {
		message.BookmarkProperties = []string{cursor}
	}
	logger.WriteMessage(message)
	return nil
}

func (s *Stdout) Write(_ context.Context, record types.RawRecord) error {
	logger.WriteMessage(types.Message{
		Type:          types.RecordMessage,
		Stream:        s.stream.Name(),
		Record:        record.Data,
		TimeExtracted: record.TimeExtracted.UTC().Format(time.RFC3339Nano),
	})
	s.records.Add(1)
	return nil
}

func (s *Stdout) Close(_ context.Context) error {
	logger.Debugf("Thread[%s]: emitted %d records for stream %s", s.options.Identifier, s.records.Load(), s.stream.Name())
	return nil
}

func init() {
	output.RegisteredWriters[types.StdoutType] = func() output.Writer {
		return new(Stdout)
	}
}
