package inactive

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aatumaykin/twpurge/internal/logger"
	"github.com/aatumaykin/twpurge/internal/retry"
	"github.com/aatumaykin/twpurge/internal/storage"
	"github.com/aatumaykin/twpurge/internal/twitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestReporter(t *testing.T, friends []twitter.User) (*Reporter, *twitter.MockClient, *storage.Report) {
	t.Helper()
	client := twitter.NewMockClient(nil)
	client.SetFriends(friends)
	report := storage.NewReport(filepath.Join(t.TempDir(), "i-results.json"), logger.Nop())

	r := NewReporter(client, report, Options{
		PageSize:  2,
		PageDelay: -1,
		Fetch:     retry.Config{MaxAttempts: 2, InitialBackoff: time.Millisecond},
	}, logger.Nop(), nil)
	r.now = func() time.Time { return now }
	return r, client, report
}

func friends() []twitter.User {
	return []twitter.User{
		{ID: "1", ScreenName: "active", LastStatusAt: now.Add(-24 * time.Hour)},
		{ID: "2", ScreenName: "quiet", LastStatusAt: now.Add(-30 * 24 * time.Hour)},
		{ID: "3", ScreenName: "never"},
		{ID: "4", ScreenName: "gone", LastStatusAt: now.Add(-400 * 24 * time.Hour)},
		{ID: "5", ScreenName: "borderline", LastStatusAt: now.Add(-13 * 24 * time.Hour)},
	}
}

func TestReporter_InactiveAcrossPages(t *testing.T) {
	r, _, _ := newTestReporter(t, friends())

	var got []string
	for u, err := range r.Inactive(context.Background(), DefaultPeriod) {
		require.NoError(t, err)
		got = append(got, u.ScreenName)
	}

	assert.Equal(t, []string{"quiet", "gone"}, got)
}

func TestReporter_CollectMergesReport(t *testing.T) {
	r, _, report := newTestReporter(t, friends())
	_, err := report.Append(twitter.User{ID: "9", ScreenName: "earlier"})
	require.NoError(t, err)

	users, err := r.Collect(context.Background(), DefaultPeriod)
	require.NoError(t, err)
	assert.Len(t, users, 3)

	users, err = r.Collect(context.Background(), DefaultPeriod)
	require.NoError(t, err)
	assert.Len(t, users, 3, "rerun does not duplicate entries")
	assert.Equal(t, "earlier", users[0].ScreenName)
}

func TestReporter_Unfollow(t *testing.T) {
	r, client, report := newTestReporter(t, friends())
	users, err := r.Collect(context.Background(), DefaultPeriod)
	require.NoError(t, err)

	n, err := r.Unfollow(context.Background(), users)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, client.Unfollowed("2"))
	assert.True(t, client.Unfollowed("4"))
	assert.False(t, client.Unfollowed("1"))

	left, err := report.Load()
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestReporter_CancelledContext(t *testing.T) {
	r, _, _ := newTestReporter(t, friends())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Collect(ctx, DefaultPeriod)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	users := []twitter.User{{ID: "2", ScreenName: "quiet", Name: "Q", LastStatusAt: now}}

	require.NoError(t, WriteYAML(&buf, users))

	var decoded []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "2", decoded[0]["id"])
	assert.Equal(t, "quiet", decoded[0]["screen_name"])
	assert.Contains(t, buf.String(), "last_status_at:")
}
