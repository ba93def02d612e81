package abstract

import (
	"context"
	"fmt"
	"time"

	"github.com/reservoir-data/tap-pushbullet/output"
	"github.com/reservoir-data/tap-pushbullet/types"
	"github.com/reservoir-data/tap-pushbullet/utils"
	"github.com/reservoir-data/tap-pushbullet/utils/logger"
)

// fullTable replays the whole stream without touching bookmarks.
func (a *AbstractDriver) fullTable(ctx context.Context, pool *output.WriterPool, stream types.StreamInterface) error {
	threadID := generateThreadID(stream.ID())
	inserter, err := pool.NewThread(ctx, stream, output.WithIdentifier(threadID))
	if err != nil {
		return fmt.Errorf("failed to create writer thread: %s", err)
	}

	logger.Infof("Thread[%s]: starting full table sync for stream %s", threadID, stream.ID())
	start := time.Now()

	syncErr := a.driver.StreamChanges(ctx, stream, nil, func(ctx context.Context, record map[string]any) error {
		return inserter.Push(ctx, types.CreateRawRecord(record, time.Now()))
	})

	err = utils.ErrExecSequential(
		func() error { return syncErr },
		utils.ErrExecFormat("failed to close writer thread: %s", func() error {
			return inserter.Close(ctx)
		}),
	)
	if err != nil {
		return err
	}

	logger.Infof("Thread[%s]: finished full table sync for stream %s in %s", threadID, stream.ID(), time.Since(start).Round(time.Millisecond))
	return nil
}
