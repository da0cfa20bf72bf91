package purge

import (
	"context"
	"fmt"

	"github.com/aatumaykin/twpurge/internal/logger"
	"github.com/aatumaykin/twpurge/internal/metrics"
	"github.com/aatumaykin/twpurge/internal/prompt"
	"github.com/aatumaykin/twpurge/internal/storage"
	"github.com/aatumaykin/twpurge/internal/twitter"
)

const reviewQuestion = "Would you like to delete this high-quality tweet?"

// ReviewGate asks the operator about each high-engagement tweet.
// Approved tweets go through the delete protocol one at a time; the rest
// are whitelisted.
type ReviewGate struct {
	asker      prompt.Asker
	deleter    *Deleter
	whitelist  *storage.Whitelist
	checkpoint *storage.Checkpoint
	logger     *logger.Logger
	metrics    *metrics.PrometheusMetrics
}

// NewReviewGate creates a review gate.
func NewReviewGate(asker prompt.Asker, deleter *Deleter, whitelist *storage.Whitelist, checkpoint *storage.Checkpoint, log *logger.Logger, m *metrics.PrometheusMetrics) *ReviewGate {
	return &ReviewGate{
		asker:      asker,
		deleter:    deleter,
		whitelist:  whitelist,
		checkpoint: checkpoint,
		logger:     log,
		metrics:    m,
	}
}

// ReviewStats counts review decisions.
type ReviewStats struct {
	Reviewed    int
	Deleted     int
	AlreadyGone int
	Whitelisted int
}

// Review handles tweets in order and stops at the first error.
func (r *ReviewGate) Review(ctx context.Context, tweets []twitter.Tweet) (ReviewStats, error) {
	var stats ReviewStats

	for _, tw := range tweets {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		ok, err := r.asker.Confirm(reviewQuestion, Describe(tw))
		if err != nil {
			return stats, fmt.Errorf("review tweet %s: %w", tw.ID, err)
		}
		stats.Reviewed++

		if ok {
			outcome, err := r.deleter.Delete(ctx, tw)
			if err != nil {
				return stats, err
			}
			switch outcome {
			case Deleted:
				stats.Deleted++
			case AlreadyGone:
				stats.AlreadyGone++
			}
			continue
		}

		if err := r.keep(ctx, tw); err != nil {
			return stats, err
		}
		stats.Whitelisted++
	}

	return stats, nil
}

// keep whitelists tw, then drops it from the checkpoint.
func (r *ReviewGate) keep(ctx context.Context, tw twitter.Tweet) error {
	if err := r.whitelist.Add(tw.ID); err != nil {
		return fmt.Errorf("%w: whitelist tweet %s: %w", ErrPersistence, tw.ID, err)
	}
	if _, err := r.checkpoint.Remove(tw.ID); err != nil {
		return fmt.Errorf("%w: remove tweet %s from checkpoint: %w", ErrPersistence, tw.ID, err)
	}
	r.metrics.Whitelisted()
	r.logger.InfoCtx(ctx, "tweet kept",
		logger.Field{Key: "tweet_id", Value: tw.ID})
	return nil
}
