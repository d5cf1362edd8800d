package interfaces

import (
	"context"
)

// Dispatcher hands a pending report job to a worker.
// Implementations: in-process goroutines, asynq (Redis backed) queue.
type Dispatcher interface {
	// Dispatch schedules the job; it must not block on the computation itself
	Dispatch(ctx context.Context, reportID string) error

	// Close waits for or releases in-flight work
	Close() error
}

// ReportRunner executes one report job end to end
type ReportRunner interface {
	Run(ctx context.Context, reportID string) error
}
