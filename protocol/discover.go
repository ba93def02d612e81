package protocol

import (
	"context"
	"errors"

	"github.com/reservoir-data/tap-pushbullet/types"
)

// runDiscover connects, enumerates the streams and prints the catalog
// document; a copy lands next to the config unless --no-save was passed.
func runDiscover(ctx context.Context) error {
	if err := connector.Setup(ctx); err != nil {
		return err
	}

	streams, err := connector.Discover(ctx)
	if err != nil {
		return err
	}

	if len(streams) == 0 {
		return errors.New("no streams found in connector")
	}

	types.LogCatalog(streams)
	return nil
}
