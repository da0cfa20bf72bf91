// Package workers runs a batch of tasks on a fixed number of goroutines.
// The first failing task stops the batch.
package workers

import (
	"context"
	"time"
)

// Task represents a unit of work to be executed by a worker.
type Task struct {
	ID      string // Unique task identifier, used in logs
	Payload any    // Task payload handed to the executor
}

// TaskExecutor runs one task. A non-nil error aborts the batch.
type TaskExecutor func(context.Context, Task) error

// PoolMetrics tracks execution metrics for the worker pool.
type PoolMetrics struct {
	TasksSubmitted uint64
	TasksCompleted uint64
	TasksFailed    uint64
	TotalDuration  time.Duration
	MaxInFlight    int
}

// InFlightGauge receives the number of running tasks whenever it changes.
type InFlightGauge interface {
	SetInFlight(n int)
}

// DefaultPoolSize is the number of concurrent workers.
const DefaultPoolSize = 5
