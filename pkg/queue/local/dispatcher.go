// Package local runs report jobs on goroutines of the current process.
package local

import (
	"context"
	"errors"
	"sync"

	"storepulse/pkg/interfaces"
	"storepulse/pkg/logger"
)

// ErrDispatcherClosed is returned by Dispatch after Close
var ErrDispatcherClosed = errors.New("dispatcher closed")

// Dispatcher starts one goroutine per report job
type Dispatcher struct {
	runner interfaces.ReportRunner

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a goroutine dispatcher
func NewDispatcher(runner interfaces.ReportRunner) *Dispatcher {
	return &Dispatcher{runner: runner}
}

// Dispatch returns as soon as the worker goroutine is started. The job outlives ctx.
func (d *Dispatcher) Dispatch(ctx context.Context, reportID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	if d.runner == nil {
		return errors.New("dispatcher has no runner")
	}

	jobCtx := logger.WithReportID(context.WithoutCancel(ctx), reportID)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.runner.Run(jobCtx, reportID); err != nil {
			logger.ErrorCtx(jobCtx, "report job ended with error: %v", err)
		}
	}()
	return nil
}

// Start is a no-op; jobs run as they are dispatched
func (d *Dispatcher) Start() error {
	return nil
}

// Stop waits for in-flight jobs
func (d *Dispatcher) Stop() {
	_ = d.Close()
}

// Close rejects new jobs and waits for the running ones
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
	return nil
}
