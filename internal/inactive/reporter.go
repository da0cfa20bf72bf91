// Package inactive finds followed accounts that stopped posting and can
// unfollow them.
package inactive

import (
	"context"
	"fmt"
	"io"
	"iter"
	"time"

	"github.com/aatumaykin/twpurge/internal/logger"
	"github.com/aatumaykin/twpurge/internal/metrics"
	"github.com/aatumaykin/twpurge/internal/retry"
	"github.com/aatumaykin/twpurge/internal/storage"
	"github.com/aatumaykin/twpurge/internal/twitter"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPeriod is how long an account may stay silent.
	DefaultPeriod = 14 * 24 * time.Hour
	// DefaultPageDelay is the pause between two friends pages.
	DefaultPageDelay = time.Second
)

// Options tunes the reporter.
type Options struct {
	PageSize  int
	PageDelay time.Duration // negative disables the pause
	Fetch     retry.Config
}

// Reporter pages through the accounts the user follows.
type Reporter struct {
	client    twitter.Client
	report    *storage.Report
	pageSize  int
	pageDelay time.Duration
	fetch     retry.Config
	logger    *logger.Logger
	metrics   *metrics.PrometheusMetrics
	now       func() time.Time
}

// NewReporter creates a reporter storing results in report.
func NewReporter(client twitter.Client, report *storage.Report, opts Options, log *logger.Logger, m *metrics.PrometheusMetrics) *Reporter {
	if opts.PageSize <= 0 {
		opts.PageSize = twitter.MaxPageSize
	}
	if opts.PageDelay == 0 {
		opts.PageDelay = DefaultPageDelay
	}
	return &Reporter{
		client:    client,
		report:    report,
		pageSize:  opts.PageSize,
		pageDelay: opts.PageDelay,
		fetch:     opts.Fetch,
		logger:    log,
		metrics:   m,
		now:       time.Now,
	}
}

// Inactive streams followed accounts whose latest tweet is older than period.
// Accounts that never tweeted are left out.
func (r *Reporter) Inactive(ctx context.Context, period time.Duration) iter.Seq2[twitter.User, error] {
	return func(yield func(twitter.User, error) bool) {
		threshold := r.now().Add(-period)
		cursor := ""

		for page := 1; ; page++ {
			var result twitter.FriendsPage
			err := retry.Do(ctx, r.fetch, func(int) error {
				var err error
				result, err = r.client.Friends(ctx, cursor, r.pageSize)
				return err
			})
			if err != nil {
				yield(twitter.User{}, fmt.Errorf("fetch friends page %d: %w", page, err))
				return
			}
			r.metrics.PageFetched(metrics.StageFriends)

			r.logger.DebugCtx(ctx, "friends page fetched",
				logger.Field{Key: "page", Value: page},
				logger.Field{Key: "users", Value: len(result.Users)})

			for _, u := range result.Users {
				if !u.HasStatus() || !u.LastStatusAt.Before(threshold) {
					continue
				}
				if !yield(u, nil) {
					return
				}
			}

			if result.NextCursor == "" || result.NextCursor == "0" {
				return
			}
			cursor = result.NextCursor

			if err := sleep(ctx, r.pageDelay); err != nil {
				yield(twitter.User{}, err)
				return
			}
		}
	}
}

// Collect merges every inactive account into the report, saving after each
// new one, and returns the full report.
func (r *Reporter) Collect(ctx context.Context, period time.Duration) ([]twitter.User, error) {
	found := 0
	for u, err := range r.Inactive(ctx, period) {
		if err != nil {
			return nil, err
		}
		added, err := r.report.Append(u)
		if err != nil {
			return nil, fmt.Errorf("save report: %w", err)
		}
		if len(added) > 0 {
			found++
			r.logger.InfoCtx(ctx, "inactive friend found",
				logger.Field{Key: "screen_name", Value: u.ScreenName},
				logger.Field{Key: "last_status_at", Value: u.LastStatusAt})
		}
	}

	users, err := r.report.Load()
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}
	r.logger.InfoCtx(ctx, "inactive report updated",
		logger.Field{Key: "new", Value: found},
		logger.Field{Key: "total", Value: len(users)})
	return users, nil
}

// Unfollow destroys the friendship with each user and drops the user from
// the report once the remote call succeeded. It stops at the first failure.
func (r *Reporter) Unfollow(ctx context.Context, users []twitter.User) (int, error) {
	done := 0
	for _, u := range users {
		err := retry.Do(ctx, r.fetch, func(int) error {
			return r.client.DestroyFriendship(ctx, u.ID)
		})
		if err != nil {
			return done, fmt.Errorf("unfollow %s: %w", u.ScreenName, err)
		}
		if _, err := r.report.Remove(u.ID); err != nil {
			return done, fmt.Errorf("update report: %w", err)
		}
		done++
		r.metrics.Unfollowed()
		r.logger.InfoCtx(ctx, "unfollowed",
			logger.Field{Key: "screen_name", Value: u.ScreenName},
			logger.Field{Key: "user_id", Value: u.ID})
	}
	return done, nil
}

// WriteYAML renders users as a YAML sequence.
func WriteYAML(w io.Writer, users []twitter.User) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(users); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
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
