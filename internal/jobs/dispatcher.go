package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Lllllllleong/pdftomarkdown/internal/models"
)

// ErrShuttingDown is returned by Submit once Shutdown has been called.
var ErrShuttingDown = errors.New("dispatcher is shutting down")

// JobRunner runs one job to completion.
type JobRunner interface {
	Run(ctx context.Context, job models.Job) Result
}

// Dispatcher starts every submitted job on its own goroutine. There is no
// bound on concurrent jobs and no deduplication: submitting the same job
// twice runs it twice.
type Dispatcher struct {
	runner  JobRunner
	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	running atomic.Int64
}

// NewDispatcher creates a dispatcher for runner.
func NewDispatcher(runner JobRunner) *Dispatcher {
	return &Dispatcher{runner: runner}
}

// Submit schedules job and returns immediately. The job keeps the values of
// ctx but not its cancellation, so it outlives the request that submitted it.
func (d *Dispatcher) Submit(ctx context.Context, job models.Job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrShuttingDown
	}

	jobCtx := context.WithoutCancel(ctx)
	d.wg.Add(1)
	d.running.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.running.Add(-1)
		d.runner.Run(jobCtx, job)
	}()
	slog.Debug("Job scheduled.", "jobId", job.ID, "fileName", job.FileName)
	return nil
}

// Running returns the number of jobs that have not finished yet.
func (d *Dispatcher) Running() int64 {
	return d.running.Load()
}

// Shutdown stops accepting jobs and waits for running ones until ctx is done.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%d jobs still running: %w", d.Running(), ctx.Err())
	}
}
