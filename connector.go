package tap

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/reservoir-data/tap-pushbullet/drivers/abstract"
	_ "github.com/reservoir-data/tap-pushbullet/output/batch"  // registering the batch file writer
	_ "github.com/reservoir-data/tap-pushbullet/output/stdout" // registering the stdout writer
	"github.com/reservoir-data/tap-pushbullet/protocol"
	"github.com/reservoir-data/tap-pushbullet/utils/logger"
	"github.com/reservoir-data/tap-pushbullet/utils/safego"
)

func RegisterDriver(driver abstract.DriverInterface) {
	defer safego.Recovery(true)

	// SIGINT/SIGTERM cancel the command context so in-flight streams drain
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Execute the root command
	err := protocol.CreateRootCommand(driver).ExecuteContext(ctx)
	if err != nil {
		logger.Fatal(err)
	}

	os.Exit(0)
}
