package purge

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/aatumaykin/twpurge/internal/logger"
	"github.com/aatumaykin/twpurge/internal/metrics"
	"github.com/aatumaykin/twpurge/internal/prompt"
	"github.com/aatumaykin/twpurge/internal/retry"
	"github.com/aatumaykin/twpurge/internal/storage"
	"github.com/aatumaykin/twpurge/internal/twitter"
)

const (
	// DefaultMaxCutoffPages bounds the page requests of one cutoff search.
	DefaultMaxCutoffPages = 5

	cutoffQuestion = "Is this the last tweet you would like to delete?"
)

// Locator finds the newest tweet older than the cutoff date.
type Locator struct {
	client   twitter.Client
	pageSize int
	maxPages int
	fetch    retry.Config
	logger   *logger.Logger
	metrics  *metrics.PrometheusMetrics
}

// NewLocator creates a locator. fetch controls retries of a single page request.
func NewLocator(client twitter.Client, pageSize, maxPages int, fetch retry.Config, log *logger.Logger, m *metrics.PrometheusMetrics) *Locator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxCutoffPages
	}
	fetch.Strategy = retry.Linear
	return &Locator{
		client:   client,
		pageSize: pageSize,
		maxPages: maxPages,
		fetch:    fetch,
		logger:   log,
		metrics:  m,
	}
}

// Candidates streams tweets created before cutoff, newest first, one at a time.
// Pages are only requested as the consumer advances. When the page budget or
// the timeline runs out the stream ends with ErrCutoffNotFound; any other
// error ends it too. The consumer may stop at any point.
func (l *Locator) Candidates(ctx context.Context, cutoff time.Time) iter.Seq2[twitter.Tweet, error] {
	return func(yield func(twitter.Tweet, error) bool) {
		cursor := ""
		seen := make(map[string]struct{})

		for page := 0; page < l.maxPages; page++ {
			tweets, err := fetchPage(ctx, l.client, l.fetch, cursor, l.pageSize, l.logger)
			if err != nil {
				yield(twitter.Tweet{}, fmt.Errorf("fetch timeline page: %w", err))
				return
			}
			l.metrics.PageFetched(metrics.StageLocate)

			l.logger.DebugCtx(ctx, "cutoff search page fetched",
				logger.Field{Key: "page", Value: page + 1},
				logger.Field{Key: "max_id", Value: cursor},
				logger.Field{Key: "tweets", Value: len(tweets)})

			fresh := 0
			for _, tw := range tweets {
				if _, ok := seen[tw.ID]; ok {
					continue
				}
				seen[tw.ID] = struct{}{}
				fresh++

				if !tw.CreatedAt.Before(cutoff) {
					continue
				}
				if !yield(tw, nil) {
					return
				}
			}

			if fresh == 0 {
				break
			}
			cursor = tweets[len(tweets)-1].ID
		}

		yield(twitter.Tweet{}, ErrCutoffNotFound)
	}
}

// Locate walks the candidates and asks the operator to confirm one.
// Whitelisted tweets are never offered. A declined candidate is passed over
// for this search only.
func (l *Locator) Locate(ctx context.Context, cutoff time.Time, asker prompt.Asker, whitelist *storage.Whitelist) (twitter.Tweet, error) {
	l.logger.InfoCtx(ctx, "searching for cutoff tweet",
		logger.Field{Key: "cutoff", Value: cutoff.Format(time.RFC3339Nano)})

	for tw, err := range l.Candidates(ctx, cutoff) {
		if err != nil {
			return twitter.Tweet{}, err
		}
		if whitelist.Contains(tw.ID) {
			continue
		}

		ok, err := asker.Confirm(cutoffQuestion, Describe(tw))
		if err != nil {
			return twitter.Tweet{}, fmt.Errorf("confirm cutoff: %w", err)
		}
		if ok {
			l.logger.InfoCtx(ctx, "cutoff tweet confirmed",
				logger.Field{Key: "tweet_id", Value: tw.ID},
				logger.Field{Key: "created_at", Value: tw.CreatedAt})
			return tw, nil
		}
		l.logger.DebugCtx(ctx, "cutoff candidate declined",
			logger.Field{Key: "tweet_id", Value: tw.ID})
	}

	return twitter.Tweet{}, ErrCutoffNotFound
}

// Describe renders a tweet for the operator.
func Describe(tw twitter.Tweet) string {
	kind := "tweet"
	if tw.IsRetweet {
		kind = "retweet"
	}
	return fmt.Sprintf("%s %s (id %s) retweets: %d favorites: %d\n%s",
		tw.CreatedAt.UTC().Format("2006-01-02 15:04"), kind, tw.ID,
		tw.RetweetCount, tw.FavoriteCount, tw.Text)
}

// fetchPage requests one timeline page, retrying transient failures.
func fetchPage(ctx context.Context, client twitter.Client, cfg retry.Config, maxID string, count int, log *logger.Logger) ([]twitter.Tweet, error) {
	var tweets []twitter.Tweet
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		log.WarnCtx(ctx, "timeline request failed, retrying",
			logger.Field{Key: "attempt", Value: attempt + 1},
			logger.Field{Key: "max_id", Value: maxID},
			logger.Field{Key: "wait", Value: wait.String()},
			logger.Field{Key: "error", Value: err.Error()})
	}
	err := retry.Do(ctx, cfg, func(int) error {
		page, err := client.UserTimeline(ctx, maxID, count)
		if err != nil {
			return err
		}
		tweets = page
		return nil
	})
	return tweets, err
}
