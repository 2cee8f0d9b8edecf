package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsAllTasks(t *testing.T) {
	pool, err := NewPool(context.Background(), 4, 8)
	require.NoError(t, err)

	var done atomic.Int32
	for i := 0; i < 20; i++ {
		require.NoError(t, pool.Submit(context.Background(), func(context.Context) error {
			done.Add(1)
			return nil
		}))
	}
	require.NoError(t, pool.Wait())
	assert.Equal(t, int32(20), done.Load())
}

func TestPoolValidatesBounds(t *testing.T) {
	_, err := NewPool(context.Background(), 0, 4)
	assert.Error(t, err)
	_, err = NewPool(context.Background(), 2, 0)
	assert.Error(t, err)
}

func TestPoolPropagatesFirstError(t *testing.T) {
	pool, err := NewPool(context.Background(), 2, 4)
	require.NoError(t, err)

	boom := errors.New("transform failed")
	require.NoError(t, pool.Submit(context.Background(), func(context.Context) error {
		return boom
	}))

	waitErr := pool.Wait()
	require.Error(t, waitErr)
	assert.ErrorIs(t, waitErr, boom)
}

func TestPoolCancelsInFlightOnError(t *testing.T) {
	pool, err := NewPool(context.Background(), 2, 8)
	require.NoError(t, err)

	boom := errors.New("boom")
	require.NoError(t, pool.Submit(context.Background(), func(context.Context) error {
		return boom
	}))

	canceled := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			close(canceled)
			return ctx.Err()
		case <-time.After(5 * time.Second):
			t.Error("pool context was not canceled after first error")
			return nil
		}
	}))

	_ = pool.Wait()
	select {
	case <-canceled:
	default:
		// The second task may have been drained without running, which is
		// also an acceptable outcome after a failure.
	}
}

func TestSubmitAfterWaitFails(t *testing.T) {
	pool, err := NewPool(context.Background(), 1, 1)
	require.NoError(t, err)
	require.NoError(t, pool.Wait())

	err = pool.Submit(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestSubmitBackpressureRespectsContext(t *testing.T) {
	pool, err := NewPool(context.Background(), 1, 1)
	require.NoError(t, err)

	block := make(chan struct{})
	// Occupy the single worker and fill the queue.
	require.NoError(t, pool.Submit(context.Background(), func(context.Context) error {
		<-block
		return nil
	}))
	require.NoError(t, pool.Submit(context.Background(), func(context.Context) error { return nil }))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = pool.Submit(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(block)
	require.NoError(t, pool.Wait())
}

func TestSubmitNilTask(t *testing.T) {
	pool, err := NewPool(context.Background(), 1, 1)
	require.NoError(t, err)
	defer func() { _ = pool.Wait() }()

	assert.Error(t, pool.Submit(context.Background(), nil))
}
