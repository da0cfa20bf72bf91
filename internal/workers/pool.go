package workers

import (
	"context"
	"sync"

	"github.com/aatumaykin/twpurge/internal/logger"
	"golang.org/x/sync/errgroup"
)

// Pool executes batches of tasks with a fixed concurrency limit.
// A task is handed to a worker only when that worker is free, so at most
// Size tasks run at any moment.
type Pool struct {
	workers int
	logger  *logger.Logger
	gauge   InFlightGauge

	mu       sync.RWMutex
	metrics  PoolMetrics
	inFlight int
}

// NewPool creates a pool with the given number of workers.
// gauge may be nil.
func NewPool(workers int, log *logger.Logger, gauge InFlightGauge) *Pool {
	if workers <= 0 {
		workers = DefaultPoolSize
	}
	return &Pool{
		workers: workers,
		logger:  log,
		gauge:   gauge,
	}
}

// Size returns the concurrency limit.
func (p *Pool) Size() int {
	return p.workers
}

// Run executes every task with exec and blocks until the batch ends.
//
// The first executor error stops dispatching: queued tasks are dropped,
// tasks already running finish, and that error is returned. Running tasks
// receive ctx itself, so an abort never interrupts a call halfway; only
// cancelling ctx does. If ctx is cancelled Run returns ctx.Err().
func (p *Pool) Run(ctx context.Context, tasks []Task, exec TaskExecutor) error {
	if len(tasks) == 0 {
		return nil
	}

	workers := min(p.workers, len(tasks))
	p.logger.InfoCtx(ctx, "starting worker pool",
		logger.Field{Key: "workers", Value: workers},
		logger.Field{Key: "tasks", Value: len(tasks)})

	g, dispatchCtx := errgroup.WithContext(ctx)
	queue := make(chan Task)

	g.Go(func() error {
		defer close(queue)
		for _, task := range tasks {
			select {
			case queue <- task:
				p.incrementSubmitted()
			case <-dispatchCtx.Done():
				return nil
			}
		}
		return nil
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return p.worker(ctx, dispatchCtx, i, queue, exec)
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	metrics := p.Metrics()
	p.logger.InfoCtx(ctx, "worker pool finished",
		logger.Field{Key: "tasks_submitted", Value: metrics.TasksSubmitted},
		logger.Field{Key: "tasks_completed", Value: metrics.TasksCompleted},
		logger.Field{Key: "tasks_failed", Value: metrics.TasksFailed},
		logger.Field{Key: "max_in_flight", Value: metrics.MaxInFlight})

	return err
}
