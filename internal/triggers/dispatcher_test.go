package triggers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDispatcher_LimitsConcurrency(t *testing.T) {
	d := NewDispatcher(2, zap.NewNop())

	var running, peak atomic.Int32
	for i := 0; i < 6; i++ {
		err := d.Dispatch(context.Background(), func() {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			running.Add(-1)
		})
		require.NoError(t, err)
	}

	require.NoError(t, d.Wait(context.Background()))
	assert.Equal(t, int32(2), peak.Load())
	assert.Zero(t, running.Load())
}

func TestDispatcher_CancelledWhileFull(t *testing.T) {
	d := NewDispatcher(1, zap.NewNop())
	release := make(chan struct{})

	require.NoError(t, d.Dispatch(context.Background(), func() { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	ran := false
	err := d.Dispatch(ctx, func() { ran = true })
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer waitCancel()
	assert.ErrorIs(t, d.Wait(waitCtx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, d.Wait(context.Background()))
	assert.False(t, ran)
}
