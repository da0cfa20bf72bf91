package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/aatumaykin/twpurge/internal/logger"
)

// worker pulls tasks until the queue closes or the batch is aborted.
func (p *Pool) worker(ctx, dispatchCtx context.Context, id int, queue <-chan Task, exec TaskExecutor) error {
	p.logger.DebugCtx(ctx, "worker started",
		logger.Field{Key: "worker_id", Value: id})

	for task := range queue {
		if dispatchCtx.Err() != nil {
			return nil
		}
		if err := p.processTask(ctx, id, task, exec); err != nil {
			return err
		}
	}

	p.logger.DebugCtx(ctx, "worker stopping",
		logger.Field{Key: "worker_id", Value: id})
	return nil
}

// processTask handles a single task execution with metrics and panic recovery.
func (p *Pool) processTask(ctx context.Context, workerID int, task Task, exec TaskExecutor) (err error) {
	startTime := time.Now()
	p.taskStarted()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", task.ID, r)
			p.logger.ErrorCtx(ctx, "task panic recovered", err,
				logger.Field{Key: "worker_id", Value: workerID},
				logger.Field{Key: "task_id", Value: task.ID})
		}
		duration := time.Since(startTime)
		p.taskFinished(duration, err != nil)

		p.logger.DebugCtx(ctx, "task processed",
			logger.Field{Key: "worker_id", Value: workerID},
			logger.Field{Key: "task_id", Value: task.ID},
			logger.Field{Key: "duration_ms", Value: duration.Milliseconds()},
			logger.Field{Key: "error", Value: err})
	}()

	return exec(ctx, task)
}
