package abstract

import (
	"strings"
	"time"

	"github.com/reservoir-data/tap-pushbullet/utils/logger"
)

// RetryOnBackoff replays f up to attempts times with doubling sleeps in
// between. Bookmarks only advance after a clean pass, so a replayed stream
// re-emits records instead of losing them.
func RetryOnBackoff(attempts int, sleep time.Duration, f func() error) (err error) {
	for cur := 0; cur < attempts; cur++ {
		if err = f(); err == nil {
			return nil
		}
		if strings.Contains(err.Error(), "context canceled") {
			break // global context canceled, break the retry loop
		}
		if attempts > 1 && cur != attempts-1 {
			logger.Infof("retry attempt[%d], retrying after %.2f seconds due to err: %s", cur+1, sleep.Seconds(), err)
			time.Sleep(sleep)
			sleep = sleep * 2
		}
	}

	return err
}
