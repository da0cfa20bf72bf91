package purge

import (
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/aatumaykin/twpurge/internal/logger"
	"github.com/aatumaykin/twpurge/internal/retry"
	"github.com/aatumaykin/twpurge/internal/storage"
	"github.com/aatumaykin/twpurge/internal/twitter"
	"github.com/stretchr/testify/require"
)

var (
	before = time.Date(2019, 6, 1, 12, 0, 0, 0, time.UTC)
	after  = time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
	cutoff = time.Date(2020, 1, 1, 23, 59, 59, int(999*time.Millisecond), time.UTC)
)

type env struct {
	client     *twitter.MockClient
	checkpoint *storage.Checkpoint
	whitelist  *storage.Whitelist
	dir        string
}

func newEnv(t *testing.T, timeline []twitter.Tweet, whitelisted ...string) *env {
	t.Helper()
	dir := t.TempDir()

	wl, err := storage.LoadWhitelist(filepath.Join(dir, "whitelist.json"), logger.Nop())
	require.NoError(t, err)
	for _, id := range whitelisted {
		require.NoError(t, wl.Add(id))
	}

	return &env{
		client:     twitter.NewMockClient(timeline),
		checkpoint: storage.NewCheckpoint(filepath.Join(dir, "cache.json"), logger.Nop()),
		whitelist:  wl,
		dir:        dir,
	}
}

func fastFetch() retry.Config {
	return retry.Config{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Strategy:       retry.Linear,
	}
}

func fastOptions() Options {
	return Options{
		PageSize:    3,
		PageDelay:   -1,
		DeletePause: -1,
		Fetch:       fastFetch(),
	}
}

// mkTweet builds a tweet; engagement is (retweets, favorites).
func mkTweet(id string, created time.Time, retweets, favorites int) twitter.Tweet {
	return twitter.Tweet{
		ID:            id,
		CreatedAt:     created,
		RetweetCount:  retweets,
		FavoriteCount: favorites,
		Text:          "tweet " + id,
	}
}

// olderTimeline returns ids n..1, all before the cutoff, newest first.
func olderTimeline(n int) []twitter.Tweet {
	out := make([]twitter.Tweet, 0, n)
	for i := n; i >= 1; i-- {
		out = append(out, mkTweet(strconv.Itoa(i), before.Add(time.Duration(i)*time.Hour), 0, 0))
	}
	return out
}

func ids(tweets []twitter.Tweet) []string {
	out := make([]string, len(tweets))
	for i, t := range tweets {
		out[i] = t.ID
	}
	return out
}

func (e *env) storedIDs(t *testing.T) []string {
	t.Helper()
	items, err := e.checkpoint.Load()
	require.NoError(t, err)
	return ids(items)
}
