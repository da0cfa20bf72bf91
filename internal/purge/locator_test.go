package purge

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/aatumaykin/twpurge/internal/logger"
	"github.com/aatumaykin/twpurge/internal/prompt"
	"github.com/aatumaykin/twpurge/internal/twitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mixedTimeline() []twitter.Tweet {
	return []twitter.Tweet{
		mkTweet("9", after.Add(3*time.Hour), 0, 0),
		mkTweet("8", after.Add(2*time.Hour), 0, 0),
		mkTweet("7", after.Add(time.Hour), 0, 0),
		mkTweet("6", after, 0, 0),
		mkTweet("5", before.Add(5*time.Hour), 0, 0),
		mkTweet("4", before.Add(4*time.Hour), 0, 0),
		mkTweet("3", before.Add(3*time.Hour), 0, 0),
	}
}

func newTestLocator(client twitter.Client, pageSize, maxPages int) *Locator {
	return NewLocator(client, pageSize, maxPages, fastFetch(), logger.Nop(), nil)
}

func TestLocator_ConfirmsFirstOlderTweet(t *testing.T) {
	e := newEnv(t, mixedTimeline())
	asker := prompt.NewScripted(true)

	got, err := newTestLocator(e.client, 3, 5).Locate(context.Background(), cutoff, asker, e.whitelist)

	require.NoError(t, err)
	assert.Equal(t, "5", got.ID)
	assert.Equal(t, 1, asker.Asked())
	assert.Contains(t, asker.Bodies[0], "tweet 5")
}

func TestLocator_DeclineMovesToNextCandidate(t *testing.T) {
	e := newEnv(t, mixedTimeline())
	asker := prompt.NewScripted(false, false, true)

	got, err := newTestLocator(e.client, 3, 5).Locate(context.Background(), cutoff, asker, e.whitelist)

	require.NoError(t, err)
	assert.Equal(t, "3", got.ID)
	assert.Equal(t, 3, asker.Asked())
}

func TestLocator_SkipsWhitelisted(t *testing.T) {
	e := newEnv(t, mixedTimeline(), "5")
	asker := prompt.NewScripted(true)

	got, err := newTestLocator(e.client, 3, 5).Locate(context.Background(), cutoff, asker, e.whitelist)

	require.NoError(t, err)
	assert.Equal(t, "4", got.ID)
	assert.Equal(t, 1, asker.Asked())
}

func TestLocator_PageBudgetExhausted(t *testing.T) {
	var timeline []twitter.Tweet
	for i := 30; i >= 1; i-- {
		timeline = append(timeline, mkTweet(strconv.Itoa(i), after.Add(time.Duration(i)*time.Hour), 0, 0))
	}
	e := newEnv(t, timeline)
	asker := prompt.NewScripted()

	_, err := newTestLocator(e.client, 5, 3).Locate(context.Background(), cutoff, asker, e.whitelist)

	assert.ErrorIs(t, err, ErrCutoffNotFound)
	assert.Equal(t, 3, e.client.TimelineCalls())
	assert.Zero(t, asker.Asked())
}

func TestLocator_TimelineEndsWithoutConfirmation(t *testing.T) {
	e := newEnv(t, mixedTimeline())
	asker := prompt.NewScripted(false, false, false)

	_, err := newTestLocator(e.client, 3, 10).Locate(context.Background(), cutoff, asker, e.whitelist)

	assert.ErrorIs(t, err, ErrCutoffNotFound)
	assert.Equal(t, 3, asker.Asked(), "each candidate is offered once")
}

func TestLocator_CandidatesAreLazy(t *testing.T) {
	e := newEnv(t, olderTimeline(20))
	loc := newTestLocator(e.client, 3, 5)

	var got []string
	for item, err := range loc.Candidates(context.Background(), cutoff) {
		require.NoError(t, err)
		got = append(got, item.ID)
		if len(got) == 2 {
			break
		}
	}

	assert.Equal(t, []string{"20", "19"}, got)
	assert.Equal(t, 1, e.client.TimelineCalls())
}

func TestLocator_RetriesTransientPageFailure(t *testing.T) {
	e := newEnv(t, mixedTimeline())
	e.client.FailTimeline = func(call int) error {
		if call == 0 {
			return &twitter.APIError{StatusCode: 503}
		}
		return nil
	}

	got, err := newTestLocator(e.client, 3, 5).Locate(context.Background(), cutoff, prompt.NewScripted(true), e.whitelist)

	require.NoError(t, err)
	assert.Equal(t, "5", got.ID)
}

func TestLocator_PermanentPageFailure(t *testing.T) {
	e := newEnv(t, mixedTimeline())
	e.client.FailTimeline = func(int) error {
		return &twitter.APIError{StatusCode: 401}
	}

	_, err := newTestLocator(e.client, 3, 5).Locate(context.Background(), cutoff, prompt.NewScripted(true), e.whitelist)

	require.Error(t, err)
	assert.ErrorIs(t, err, twitter.ErrUnauthorized)
	assert.Equal(t, 1, e.client.TimelineCalls())
}

func TestLocator_AskerErrorStops(t *testing.T) {
	e := newEnv(t, mixedTimeline())

	_, err := newTestLocator(e.client, 3, 5).Locate(context.Background(), cutoff, prompt.NewScripted(), e.whitelist)

	assert.True(t, errors.Is(err, prompt.ErrNoInput))
}

func TestDescribe(t *testing.T) {
	item := mkTweet("42", before, 3, 9)
	item.IsRetweet = true

	out := Describe(item)
	assert.Contains(t, out, "2019-06-01 12:00 retweet (id 42)")
	assert.Contains(t, out, "retweets: 3 favorites: 9")
	assert.Contains(t, out, "tweet 42")
}
