package abstract

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryOnBackoff_Success(t *testing.T) {
	calls := 0
	err := RetryOnBackoff(3, 10*time.Millisecond, func() error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryOnBackoff_AllFail(t *testing.T) {
	calls := 0
	err := RetryOnBackoff(3, 10*time.Millisecond, func() error {
		calls++
		return errors.New("persistent failure")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persistent failure")
	assert.Equal(t, 3, calls)
}

func TestRetryOnBackoff_EventualSuccess(t *testing.T) {
	calls := 0
	err := RetryOnBackoff(5, 10*time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient failure")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryOnBackoff_ContextCanceled(t *testing.T) {
	calls := 0
	err := RetryOnBackoff(5, 10*time.Millisecond, func() error {
		calls++
		return errors.New("fetch page: context canceled")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "cancellation must stop the retry loop")
}
