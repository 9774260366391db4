package triggers

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Dispatcher runs invocations on their own goroutines, at most
// maxConcurrency at a time. Sources block in Dispatch while the limit is
// reached, which pushes back on the event stream.
type Dispatcher struct {
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	logger *zap.Logger
}

func NewDispatcher(maxConcurrency int, logger *zap.Logger) *Dispatcher {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Dispatcher{
		sem:    semaphore.NewWeighted(int64(maxConcurrency)),
		logger: logger,
	}
}

// Dispatch starts fn once a slot frees up. It returns ctx.Err() if ctx is
// done first, in which case fn never runs.
func (d *Dispatcher) Dispatch(ctx context.Context, fn func()) error {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		d.logger.Warn("Dropping invocation, dispatcher is shutting down", zap.Error(err))
		return err
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.sem.Release(1)
		fn()
	}()
	return nil
}

// Wait blocks until every dispatched invocation has returned or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
