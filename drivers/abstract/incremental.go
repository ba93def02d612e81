package abstract

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/reservoir-data/tap-pushbullet/output"
	"github.com/reservoir-data/tap-pushbullet/types"
	"github.com/reservoir-data/tap-pushbullet/utils"
	"github.com/reservoir-data/tap-pushbullet/utils/logger"
	"github.com/reservoir-data/tap-pushbullet/utils/typeutils"
)

// incremental syncs changes past the stored bookmark and advances it only
// after every record reached the writer; a failed run keeps the old bookmark
// so the next run replays the window instead of losing it.
func (a *AbstractDriver) incremental(ctx context.Context, pool *output.WriterPool, stream types.StreamInterface) error {
	since, err := a.cursorFromState(stream)
	if err != nil {
		return err
	}

	threadID := generateThreadID(stream.ID())
	inserter, err := pool.NewThread(ctx, stream, output.WithIdentifier(threadID))
	if err != nil {
		return fmt.Errorf("failed to create writer thread: %s", err)
	}

	logger.Infof("Thread[%s]: starting incremental sync for stream %s since cursor [%v]", threadID, stream.ID(), since)
	start := time.Now()

	var cursorMu sync.Mutex
	maxCursor := since
	cursorField := stream.Cursor()

	syncErr := a.driver.StreamChanges(ctx, stream, since, func(ctx context.Context, record map[string]any) error {
		if value, found := record[cursorField]; found && value != nil {
			cursorMu.Lock()
			maxCursor = utils.Ternary(typeutils.Compare(value, maxCursor) == 1, value, maxCursor)
			cursorMu.Unlock()
		}
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

	if maxCursor != nil && typeutils.Compare(maxCursor, since) == 1 {
		a.state.SetCursor(stream, maxCursor)
		a.state.LogState()
	}

	logger.Infof("Thread[%s]: finished incremental sync for stream %s in %s", threadID, stream.ID(), time.Since(start).Round(time.Millisecond))
	return nil
}

// cursorFromState typecasts the stored bookmark against the schema; state
// read back from disk carries JSON types, not the ones the sync compared.
func (a *AbstractDriver) cursorFromState(stream types.StreamInterface) (any, error) {
	stored := a.state.GetCursor(stream)
	if stored == nil {
		return nil, nil
	}

	cursorType, err := stream.Schema().GetType(stream.Cursor())
	if err != nil {
		return nil, fmt.Errorf("failed to get cursor column type: %s", err)
	}

	typed, err := typeutils.ReformatValue(cursorType, stored)
	if err != nil {
		return nil, fmt.Errorf("failed to typecast cursor value [%v]: %s", stored, err)
	}
	return typed, nil
}
