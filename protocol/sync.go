package protocol

import (
	"context"

	"github.com/reservoir-data/tap-pushbullet/output"
	"github.com/reservoir-data/tap-pushbullet/types"
	"github.com/reservoir-data/tap-pushbullet/utils"
	"github.com/reservoir-data/tap-pushbullet/utils/logger"
)

// runSync wires config, catalog and state into the writer pool and runs the
// replication loop. Without --catalog every discovered stream is selected, so
// a bare `--config` invocation syncs the whole source.
func runSync(ctx context.Context) error {
	if err := connector.Setup(ctx); err != nil {
		return err
	}

	catalog := &types.Catalog{}
	if catalogPath != "" {
		if err := utils.UnmarshalFile(catalogPath, catalog, false); err != nil {
			return err
		}
	}

	state := types.NewState()
	if statePath != "" {
		if err := utils.UnmarshalFile(statePath, state, false); err != nil {
			return err
		}
	}
	connector.SetupState(state)

	streams, err := connector.Discover(ctx)
	if err != nil {
		return err
	}
	if len(catalog.Streams) == 0 {
		catalog = types.GetWrappedCatalog(streams)
	}

	categories, err := types.IdentifySelectedStreams(catalog, streams)
	if err != nil {
		return err
	}

	settings := connector.PipelineSettings()
	settings.State = state
	pool, err := output.NewWriterPool(ctx, connector.WriterConfig(), settings)
	if err != nil {
		return err
	}

	if err := connector.Read(ctx, pool, categories); err != nil {
		return err
	}

	logger.Infof("Total records read: %d", pool.TotalRecords())
	if !state.IsZero() {
		state.LogState()
	}

	return nil
}
