package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitReturnsTaskResult(t *testing.T) {
	p := New(&Config{MaxWorkers: 2, QueueSize: 4}, nil)
	defer func() { _ = p.Shutdown(context.Background()) }()

	want := errors.New("import failed")
	assert.ErrorIs(t, p.Submit(context.Background(), func(context.Context) error { return want }), want)
	assert.NoError(t, p.Submit(context.Background(), func(context.Context) error { return nil }))
}

func TestSubmitRecoversPanic(t *testing.T) {
	p := New(&Config{MaxWorkers: 1, QueueSize: 1}, nil)
	defer func() { _ = p.Shutdown(context.Background()) }()

	err := p.Submit(context.Background(), func(context.Context) error { panic("bad row") })
	assert.Error(t, err)
}

func TestShutdownWaitsForAsyncTasks(t *testing.T) {
	p := New(&Config{MaxWorkers: 2, QueueSize: 8}, nil)

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		require.NoError(t, p.SubmitAsync(context.Background(), func(context.Context) error {
			time.Sleep(5 * time.Millisecond)
			ran.Add(1)
			return nil
		}))
	}

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, int32(5), ran.Load())
	assert.ErrorIs(t, p.SubmitAsync(context.Background(), func(context.Context) error { return nil }), ErrWorkerPoolClosed)
}

func TestCancelledContextSkipsTask(t *testing.T) {
	p := New(&Config{MaxWorkers: 1, QueueSize: 1}, nil)
	defer func() { _ = p.Shutdown(context.Background()) }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Bool
	err := p.Submit(ctx, func(context.Context) error { ran.Store(true); return nil })
	assert.Error(t, err)
	assert.False(t, ran.Load())
}
