package purge

import (
	"context"
	"fmt"
	"time"

	"github.com/aatumaykin/twpurge/internal/logger"
	"github.com/aatumaykin/twpurge/internal/metrics"
	"github.com/aatumaykin/twpurge/internal/retry"
	"github.com/aatumaykin/twpurge/internal/storage"
	"github.com/aatumaykin/twpurge/internal/twitter"
)

const (
	// DefaultPageSize is the largest page the timeline endpoint serves.
	DefaultPageSize = twitter.MaxPageSize
	// DefaultPageDelay is the pause between two collection pages.
	DefaultPageDelay = time.Second
)

// Collector pages through the timeline below the cutoff and stores every
// tweet it finds in the checkpoint, one page at a time.
type Collector struct {
	client          twitter.Client
	checkpoint      *storage.Checkpoint
	pageSize        int
	pageDelay       time.Duration
	stopOnShortPage bool
	fetch           retry.Config
	logger          *logger.Logger
	metrics         *metrics.PrometheusMetrics
}

// CollectorOptions tunes paging.
type CollectorOptions struct {
	PageSize  int
	PageDelay time.Duration // negative disables the pause
	// StopOnShortPage also ends collection when a page holds fewer tweets than
	// requested, instead of relying only on a page with nothing new.
	StopOnShortPage bool
	Fetch           retry.Config
}

// NewCollector creates a collector writing to checkpoint.
func NewCollector(client twitter.Client, checkpoint *storage.Checkpoint, opts CollectorOptions, log *logger.Logger, m *metrics.PrometheusMetrics) *Collector {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.PageDelay == 0 {
		opts.PageDelay = DefaultPageDelay
	}
	return &Collector{
		client:          client,
		checkpoint:      checkpoint,
		pageSize:        opts.PageSize,
		pageDelay:       opts.PageDelay,
		stopOnShortPage: opts.StopOnShortPage,
		fetch:           opts.Fetch,
		logger:          log,
		metrics:         m,
	}
}

// Collect gathers all tweets at or below cutoffID into the checkpoint and
// returns the checkpoint contents.
//
// A non-empty checkpoint takes precedence over cutoffID: paging resumes below
// its oldest tweet, so an interrupted run loses at most the unsaved page.
// Tweets already stored or whitelisted are never added. Collection ends with
// the first page holding no tweet this call has not seen; that is a heuristic,
// the API gives no explicit end-of-timeline signal.
//
// Whitelisted tweets count as seen progress even though they are not stored.
// A page whose unseen tweets are all whitelisted adds nothing to the
// checkpoint and still does not end collection. Stopping on a page that is
// empty after filtering would treat a run of whitelisted tweets as the end of
// the timeline.
func (c *Collector) Collect(ctx context.Context, cutoffID string, whitelist *storage.Whitelist) ([]twitter.Tweet, error) {
	stored, err := c.checkpoint.Load()
	if err != nil {
		return nil, fmt.Errorf("%w: load checkpoint: %w", ErrPersistence, err)
	}

	known := make(map[string]struct{}, len(stored))
	for _, tw := range stored {
		known[tw.ID] = struct{}{}
	}

	cursor := cutoffID
	if len(stored) > 0 {
		cursor = stored[len(stored)-1].ID
		c.logger.InfoCtx(ctx, "resuming collection from checkpoint",
			logger.Field{Key: "stored", Value: len(stored)},
			logger.Field{Key: "max_id", Value: cursor})
	}
	if cursor == "" {
		return nil, fmt.Errorf("%w: no cursor to collect from", ErrCutoffNotFound)
	}

	total := len(stored)
	for page := 1; ; page++ {
		tweets, err := fetchPage(ctx, c.client, c.fetch, cursor, c.pageSize, c.logger)
		if err != nil {
			return nil, fmt.Errorf("fetch timeline page below %s: %w", cursor, err)
		}
		c.metrics.PageFetched(metrics.StageCollect)

		var fresh []twitter.Tweet
		unseen := 0
		for _, tw := range tweets {
			if _, ok := known[tw.ID]; ok {
				continue
			}
			known[tw.ID] = struct{}{}
			unseen++
			if whitelist.Contains(tw.ID) {
				continue
			}
			fresh = append(fresh, tw)
		}

		if unseen == 0 {
			c.logger.InfoCtx(ctx, "collection complete",
				logger.Field{Key: "pages", Value: page},
				logger.Field{Key: "collected", Value: total})
			break
		}

		if len(fresh) > 0 {
			if _, err := c.checkpoint.Append(fresh...); err != nil {
				return nil, fmt.Errorf("%w: save checkpoint: %w", ErrPersistence, err)
			}
			total += len(fresh)
			c.metrics.TweetsCollected(len(fresh))
			c.metrics.SetCheckpointSize(total)
		}

		c.logger.InfoCtx(ctx, "collected page",
			logger.Field{Key: "page", Value: page},
			logger.Field{Key: "new", Value: len(fresh)},
			logger.Field{Key: "collected", Value: total})

		cursor = tweets[len(tweets)-1].ID

		if c.stopOnShortPage && len(tweets) < c.pageSize {
			c.logger.InfoCtx(ctx, "collection complete on short page",
				logger.Field{Key: "page_tweets", Value: len(tweets)},
				logger.Field{Key: "collected", Value: total})
			break
		}

		if err := sleep(ctx, c.pageDelay); err != nil {
			return nil, err
		}
	}

	items, err := c.checkpoint.Load()
	if err != nil {
		return nil, fmt.Errorf("%w: load checkpoint: %w", ErrPersistence, err)
	}
	return items, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
