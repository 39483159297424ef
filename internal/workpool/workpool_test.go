package workpool_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid3/hewg/internal/workpool"
)

func TestSubmitResolvesWithResult(t *testing.T) {
	pool := workpool.New(context.Background(), 2)
	defer pool.Close()

	h := pool.Submit(func(ctx context.Context, workerID int) (interface{}, error) {
		return 42, nil
	})
	val, err := h.Wait()
	require.NoError(t, err)
	assert.Equal(t, 42, val)
}

func TestWorkerIDsAreStable(t *testing.T) {
	pool := workpool.New(context.Background(), 1)
	defer pool.Close()

	h := pool.Submit(func(ctx context.Context, workerID int) (interface{}, error) {
		return workerID, nil
	})
	val, err := h.Wait()
	require.NoError(t, err)
	assert.Equal(t, 0, val)
}

func TestDrainCancelsNotYetStartedTasks(t *testing.T) {
	pool := workpool.New(context.Background(), 1)
	defer pool.Close()

	started := make(chan struct{})
	release := make(chan struct{})

	// occupy the sole worker so the next two tasks queue up
	firstHandle := pool.Submit(func(ctx context.Context, workerID int) (interface{}, error) {
		close(started)
		<-release
		return "first", nil
	})

	<-started
	var ranSecond int32
	secondHandle := pool.Submit(func(ctx context.Context, workerID int) (interface{}, error) {
		atomic.AddInt32(&ranSecond, 1)
		return "second", nil
	})

	pool.Drain()
	close(release)

	firstVal, err := firstHandle.Wait()
	require.NoError(t, err)
	assert.Equal(t, "first", firstVal)

	_, err = secondHandle.Wait()
	assert.Error(t, err)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&ranSecond))
}

func TestCloseWaitsForInFlightTasks(t *testing.T) {
	pool := workpool.New(context.Background(), 1)

	var finished int32
	h := pool.Submit(func(ctx context.Context, workerID int) (interface{}, error) {
		time.Sleep(10 * time.Millisecond)
		atomic.StoreInt32(&finished, 1)
		return nil, nil
	})

	require.NoError(t, pool.Close())
	_, _ = h.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&finished))
}
