package purge

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aatumaykin/twpurge/internal/logger"
	"github.com/aatumaykin/twpurge/internal/metrics"
	"github.com/aatumaykin/twpurge/internal/retry"
	"github.com/aatumaykin/twpurge/internal/storage"
	"github.com/aatumaykin/twpurge/internal/twitter"
	"github.com/aatumaykin/twpurge/internal/workers"
	"golang.org/x/time/rate"
)

const (
	// DefaultDeleteAttempts is one call plus three retries.
	DefaultDeleteAttempts = 4
	// DefaultDeletePause is the minimum gap between any two delete calls.
	DefaultDeletePause = 100 * time.Millisecond
)

// Outcome is the result of the per-tweet delete protocol.
type Outcome int

const (
	// Deleted means the remote delete succeeded.
	Deleted Outcome = iota
	// AlreadyGone means the remote reported the tweet missing.
	AlreadyGone
	// Skipped means the tweet is whitelisted and was left alone.
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Deleted:
		return metrics.OutcomeDeleted
	case AlreadyGone:
		return metrics.OutcomeAlreadyGone
	case Skipped:
		return metrics.OutcomeSkipped
	default:
		return "unknown"
	}
}

// DeleterOptions tunes the delete protocol.
type DeleterOptions struct {
	Attempts int
	Pause    time.Duration
}

// Deleter removes single tweets and keeps the checkpoint in step.
// It is safe for concurrent use; all callers share one pause limiter.
type Deleter struct {
	client     twitter.Client
	checkpoint *storage.Checkpoint
	whitelist  *storage.Whitelist
	limiter    *rate.Limiter
	attempts   int
	logger     *logger.Logger
	metrics    *metrics.PrometheusMetrics
}

// NewDeleter creates a deleter.
func NewDeleter(client twitter.Client, checkpoint *storage.Checkpoint, whitelist *storage.Whitelist, opts DeleterOptions, log *logger.Logger, m *metrics.PrometheusMetrics) *Deleter {
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultDeleteAttempts
	}
	if opts.Pause == 0 {
		opts.Pause = DefaultDeletePause
	}
	limit := rate.Inf
	if opts.Pause > 0 {
		limit = rate.Every(opts.Pause)
	}
	return &Deleter{
		client:     client,
		checkpoint: checkpoint,
		whitelist:  whitelist,
		limiter:    rate.NewLimiter(limit, 1),
		attempts:   opts.Attempts,
		logger:     log,
		metrics:    m,
	}
}

// Delete runs the per-tweet protocol:
//   - a whitelisted tweet is dropped from the checkpoint without a remote call;
//   - otherwise the remote delete is tried up to the attempt limit;
//   - a tweet the remote no longer has counts as deleted;
//   - only after the remote confirmed is the tweet removed from the checkpoint.
//
// Any other final failure is wrapped in ErrBatchAborted, a failed checkpoint
// write in ErrPersistence.
func (d *Deleter) Delete(ctx context.Context, tw twitter.Tweet) (Outcome, error) {
	start := time.Now()

	if d.whitelist.Contains(tw.ID) {
		d.logger.InfoCtx(ctx, "skipping whitelisted tweet",
			logger.Field{Key: "tweet_id", Value: tw.ID})
		if err := d.forget(tw.ID); err != nil {
			return Skipped, err
		}
		d.metrics.RecordDelete(metrics.OutcomeSkipped, time.Since(start))
		return Skipped, nil
	}

	cfg := retry.Config{
		MaxAttempts:    d.attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		Strategy:       retry.Constant,
		Retryable: func(err error) bool {
			return !errors.Is(err, twitter.ErrAlreadyDeleted) && !errors.Is(err, context.Canceled)
		},
		OnRetry: func(attempt int, err error, _ time.Duration) {
			d.metrics.DeleteRetried()
			d.logger.WarnCtx(ctx, "delete failed, retrying",
				logger.Field{Key: "tweet_id", Value: tw.ID},
				logger.Field{Key: "attempt", Value: attempt + 1},
				logger.Field{Key: "error", Value: err.Error()})
		},
	}

	err := retry.Do(ctx, cfg, func(int) error {
		if err := d.limiter.Wait(ctx); err != nil {
			return err
		}
		return d.client.DestroyTweet(ctx, tw.ID)
	})

	outcome := Deleted
	switch {
	case err == nil:
	case errors.Is(err, twitter.ErrAlreadyDeleted):
		outcome = AlreadyGone
	case ctx.Err() != nil:
		return outcome, ctx.Err()
	default:
		d.metrics.RecordDelete(metrics.OutcomeFailed, time.Since(start))
		d.logger.ErrorCtx(ctx, "delete failed", err,
			logger.Field{Key: "tweet_id", Value: tw.ID})
		return outcome, fmt.Errorf("%w: tweet %s: %w", ErrBatchAborted, tw.ID, err)
	}

	if err := d.forget(tw.ID); err != nil {
		return outcome, err
	}

	d.metrics.RecordDelete(outcome.String(), time.Since(start))
	d.logger.DebugCtx(ctx, "tweet deleted",
		logger.Field{Key: "tweet_id", Value: tw.ID},
		logger.Field{Key: "outcome", Value: outcome.String()})
	return outcome, nil
}

func (d *Deleter) forget(id string) error {
	if _, err := d.checkpoint.Remove(id); err != nil {
		return fmt.Errorf("%w: remove tweet %s from checkpoint: %w", ErrPersistence, id, err)
	}
	return nil
}

// DeleteStats counts outcomes of a batch.
type DeleteStats struct {
	Deleted     int
	AlreadyGone int
	Skipped     int
}

// DeleteAll runs Delete for every tweet on pool. The first failure stops the
// batch; stats then cover the tweets finished before the pool drained.
func (d *Deleter) DeleteAll(ctx context.Context, pool *workers.Pool, tweets []twitter.Tweet) (DeleteStats, error) {
	tasks := make([]workers.Task, len(tweets))
	for i, tw := range tweets {
		tasks[i] = workers.Task{ID: tw.ID, Payload: tw}
	}

	var deleted, gone, skipped atomic.Int64
	err := pool.Run(ctx, tasks, func(ctx context.Context, task workers.Task) error {
		outcome, err := d.Delete(ctx, task.Payload.(twitter.Tweet))
		if err != nil {
			return err
		}
		switch outcome {
		case Deleted:
			deleted.Add(1)
		case AlreadyGone:
			gone.Add(1)
		case Skipped:
			skipped.Add(1)
		}
		return nil
	})

	return DeleteStats{
		Deleted:     int(deleted.Load()),
		AlreadyGone: int(gone.Load()),
		Skipped:     int(skipped.Load()),
	}, err
}
