package abstract

import (
	"context"

	"github.com/reservoir-data/tap-pushbullet/output"
	"github.com/reservoir-data/tap-pushbullet/types"
)

// RecordMsgFn receives one upstream resource at a time while a stream syncs.
type RecordMsgFn func(ctx context.Context, record map[string]any) error

type Config interface {
	Validate() error
}

// DriverInterface is what a source has to provide; everything above it, from
// discovery fan-out to bookmark upkeep, lives in AbstractDriver.
type DriverInterface interface {
	GetConfigRef() Config
	Spec() any
	Type() string
	// specific to test & setup
	Setup(ctx context.Context) error
	SetupState(state *types.State)
	// sync artifacts
	MaxRetries() int
	// specific to discover
	GetStreamNames(ctx context.Context) ([]string, error)
	ProduceSchema(ctx context.Context, stream string) (*types.Stream, error)
	// specific to sync; a nil cursor value means everything the configured
	// window allows, processFn runs once per record in arrival order
	StreamChanges(ctx context.Context, stream types.StreamInterface, since any, processFn RecordMsgFn) error
	// destination routing and record pipeline knobs resolved from the config
	WriterConfig() *types.WriterConfig
	PipelineSettings() *output.Settings
}
