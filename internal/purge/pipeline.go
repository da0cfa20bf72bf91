// Package purge deletes a user's tweets older than a cutoff date.
//
// A run locates the cutoff tweet, collects everything below it into the
// checkpoint, deletes low-engagement tweets on a worker pool and asks the
// operator about the rest. The checkpoint shrinks with every confirmed delete
// and ends as an empty array, so an interrupted run can be started again and
// continues where it stopped.
package purge

import (
	"context"
	"fmt"
	"time"

	"github.com/aatumaykin/twpurge/internal/logger"
	"github.com/aatumaykin/twpurge/internal/metrics"
	"github.com/aatumaykin/twpurge/internal/prompt"
	"github.com/aatumaykin/twpurge/internal/retry"
	"github.com/aatumaykin/twpurge/internal/storage"
	"github.com/aatumaykin/twpurge/internal/twitter"
	"github.com/aatumaykin/twpurge/internal/workers"
)

// Options configures a pipeline. Zero values select the defaults.
type Options struct {
	PageSize        int
	MaxCutoffPages  int
	PageDelay       time.Duration
	StopOnShortPage bool
	DeleteAttempts  int
	DeletePause     time.Duration
	Workers         int
	Fetch           retry.Config // page request retries
}

// DefaultFetchRetry retries a page request with linearly growing waits.
func DefaultFetchRetry() retry.Config {
	return retry.Config{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		MaxBackoff:     10 * time.Second,
		Strategy:       retry.Linear,
	}
}

// Summary reports what a run did.
type Summary struct {
	Resumed     bool
	CutoffID    string
	Collected   int
	Deleted     int
	AlreadyGone int
	Skipped     int
	Reviewed    int
	Whitelisted int
}

// Pipeline wires the purge stages together.
type Pipeline struct {
	checkpoint *storage.Checkpoint
	whitelist  *storage.Whitelist
	asker      prompt.Asker
	locator    *Locator
	collector  *Collector
	deleter    *Deleter
	review     *ReviewGate
	pool       *workers.Pool
	logger     *logger.Logger
	metrics    *metrics.PrometheusMetrics
}

// New creates a pipeline. m may be nil.
func New(client twitter.Client, checkpoint *storage.Checkpoint, whitelist *storage.Whitelist, asker prompt.Asker, opts Options, log *logger.Logger, m *metrics.PrometheusMetrics) *Pipeline {
	if opts.Fetch.MaxAttempts == 0 {
		opts.Fetch = DefaultFetchRetry()
	}

	deleter := NewDeleter(client, checkpoint, whitelist, DeleterOptions{
		Attempts: opts.DeleteAttempts,
		Pause:    opts.DeletePause,
	}, log, m)

	var gauge workers.InFlightGauge
	if m != nil {
		gauge = m
	}

	return &Pipeline{
		checkpoint: checkpoint,
		whitelist:  whitelist,
		asker:      asker,
		locator:    NewLocator(client, opts.PageSize, opts.MaxCutoffPages, opts.Fetch, log, m),
		collector: NewCollector(client, checkpoint, CollectorOptions{
			PageSize:        opts.PageSize,
			PageDelay:       opts.PageDelay,
			StopOnShortPage: opts.StopOnShortPage,
			Fetch:           opts.Fetch,
		}, log, m),
		deleter: deleter,
		review:  NewReviewGate(asker, deleter, whitelist, checkpoint, log, m),
		pool:    workers.NewPool(opts.Workers, log, gauge),
		logger:  log,
		metrics: m,
	}
}

// Run purges tweets created before cutoff.
//
// With an empty checkpoint the operator first confirms the cutoff tweet.
// A non-empty checkpoint is the leftover of an interrupted run: the cutoff
// search is skipped and collection resumes below the stored tweets.
func (p *Pipeline) Run(ctx context.Context, cutoff time.Time) (Summary, error) {
	var summary Summary

	stored, err := p.checkpoint.Load()
	if err != nil {
		return summary, fmt.Errorf("%w: load checkpoint: %w", ErrPersistence, err)
	}

	cutoffID := ""
	if len(stored) > 0 {
		summary.Resumed = true
		p.logger.InfoCtx(ctx, "checkpoint found, skipping cutoff search",
			logger.Field{Key: "stored", Value: len(stored)})
	} else {
		tw, err := p.locator.Locate(ctx, cutoff, p.asker, p.whitelist)
		if err != nil {
			return summary, err
		}
		cutoffID = tw.ID
	}
	summary.CutoffID = cutoffID

	collected, err := p.collector.Collect(ctx, cutoffID, p.whitelist)
	if err != nil {
		return summary, err
	}
	summary.Collected = len(collected)
	p.metrics.SetCheckpointSize(len(collected))

	toDelete, toReview := Classify(collected)
	p.logger.InfoCtx(ctx, "tweets classified",
		logger.Field{Key: "to_delete", Value: len(toDelete)},
		logger.Field{Key: "to_review", Value: len(toReview)})

	stats, err := p.deleter.DeleteAll(ctx, p.pool, toDelete)
	summary.Deleted = stats.Deleted
	summary.AlreadyGone = stats.AlreadyGone
	summary.Skipped = stats.Skipped
	if err != nil {
		return summary, err
	}

	review, err := p.review.Review(ctx, toReview)
	summary.Reviewed = review.Reviewed
	summary.Deleted += review.Deleted
	summary.AlreadyGone += review.AlreadyGone
	summary.Whitelisted = review.Whitelisted
	if err != nil {
		return summary, err
	}

	if err := p.checkpoint.Reset(); err != nil {
		return summary, fmt.Errorf("%w: reset checkpoint: %w", ErrPersistence, err)
	}
	p.metrics.SetCheckpointSize(0)

	p.logger.InfoCtx(ctx, "purge complete",
		logger.Field{Key: "collected", Value: summary.Collected},
		logger.Field{Key: "deleted", Value: summary.Deleted},
		logger.Field{Key: "already_gone", Value: summary.AlreadyGone},
		logger.Field{Key: "whitelisted", Value: summary.Whitelisted})
	return summary, nil
}
