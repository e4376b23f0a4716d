package workerpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolProcessesSubmittedWork(t *testing.T) {
	var processed int64
	p := New(2, 10, func(_ context.Context, v int) error {
		atomic.AddInt64(&processed, int64(v))
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, p.Start(ctx))

	for i := 1; i <= 5; i++ {
		require.NoError(t, p.Submit(i))
	}

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&processed) == 15
	}, time.Second, time.Millisecond)

	require.NoError(t, p.Stop(time.Second))
}

func TestSubmitBeforeStartFails(t *testing.T) {
	p := New(1, 1, func(context.Context, int) error { return nil })
	err := p.Submit(1)
	assert.ErrorIs(t, err, ErrPoolNotStarted)
}

func TestSubmitAfterStopFails(t *testing.T) {
	p := New(1, 1, func(context.Context, int) error { return nil })
	ctx := context.Background()
	require.NoError(t, p.Start(ctx))
	require.NoError(t, p.Stop(time.Second))

	err := p.Submit(1)
	assert.ErrorIs(t, err, ErrPoolStopped)
}
