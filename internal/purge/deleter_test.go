package purge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aatumaykin/twpurge/internal/logger"
	"github.com/aatumaykin/twpurge/internal/metrics"
	"github.com/aatumaykin/twpurge/internal/twitter"
	"github.com/aatumaykin/twpurge/internal/workers"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDeleter(e *env, pause time.Duration) *Deleter {
	return NewDeleter(e.client, e.checkpoint, e.whitelist, DeleterOptions{Pause: pause}, logger.Nop(), nil)
}

func seed(t *testing.T, e *env, tweets []twitter.Tweet) {
	t.Helper()
	_, err := e.checkpoint.Append(tweets...)
	require.NoError(t, err)
}

func TestDeleter_DeleteThenForget(t *testing.T) {
	timeline := olderTimeline(3)
	e := newEnv(t, timeline)
	seed(t, e, timeline)

	outcome, err := newTestDeleter(e, -1).Delete(context.Background(), timeline[1])

	require.NoError(t, err)
	assert.Equal(t, Deleted, outcome)
	assert.True(t, e.client.IsDeleted("2"))
	assert.Equal(t, []string{"3", "1"}, e.storedIDs(t))
}

func TestDeleter_AlreadyGoneIsSuccess(t *testing.T) {
	timeline := olderTimeline(2)
	e := newEnv(t, timeline)
	seed(t, e, timeline)
	e.client.MarkDeleted("2")

	outcome, err := newTestDeleter(e, -1).Delete(context.Background(), timeline[0])

	require.NoError(t, err)
	assert.Equal(t, AlreadyGone, outcome)
	assert.Equal(t, 1, e.client.DeleteCalls("2"), "gone tweets are not retried")
	assert.Equal(t, []string{"1"}, e.storedIDs(t))
}

func TestDeleter_BareNotFoundIsAlreadyGone(t *testing.T) {
	timeline := olderTimeline(1)
	e := newEnv(t, timeline)
	seed(t, e, timeline)
	e.client.FailDelete = func(string, int) error {
		return &twitter.APIError{StatusCode: 404}
	}

	outcome, err := newTestDeleter(e, -1).Delete(context.Background(), timeline[0])

	require.NoError(t, err)
	assert.Equal(t, AlreadyGone, outcome)
	assert.Equal(t, 1, e.client.DeleteCalls("1"))
	assert.Empty(t, e.storedIDs(t))
}

func TestDeleter_RetriesTransientFailures(t *testing.T) {
	timeline := olderTimeline(1)
	e := newEnv(t, timeline)
	seed(t, e, timeline)
	e.client.FailDelete = func(_ string, call int) error {
		if call < 2 {
			return &twitter.APIError{StatusCode: 503}
		}
		return nil
	}

	outcome, err := newTestDeleter(e, -1).Delete(context.Background(), timeline[0])

	require.NoError(t, err)
	assert.Equal(t, Deleted, outcome)
	assert.Equal(t, 3, e.client.DeleteCalls("1"))
	assert.Empty(t, e.storedIDs(t))
}

func TestDeleter_GoneAfterTransientFailure(t *testing.T) {
	timeline := olderTimeline(1)
	e := newEnv(t, timeline)
	seed(t, e, timeline)
	e.client.FailDelete = func(id string, call int) error {
		if call == 0 {
			e.client.MarkDeleted(id)
			return errors.New("read: connection reset by peer")
		}
		return nil
	}

	outcome, err := newTestDeleter(e, -1).Delete(context.Background(), timeline[0])

	require.NoError(t, err)
	assert.Equal(t, AlreadyGone, outcome)
	assert.Equal(t, 2, e.client.DeleteCalls("1"))
	assert.Empty(t, e.storedIDs(t))
}

func TestDeleter_ExhaustionAbortsBatch(t *testing.T) {
	timeline := olderTimeline(1)
	e := newEnv(t, timeline)
	seed(t, e, timeline)
	e.client.FailDelete = func(string, int) error {
		return &twitter.APIError{StatusCode: 403}
	}

	_, err := newTestDeleter(e, -1).Delete(context.Background(), timeline[0])

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBatchAborted)
	assert.ErrorIs(t, err, twitter.ErrForbidden)
	assert.Equal(t, DefaultDeleteAttempts, e.client.DeleteCalls("1"))
	assert.Equal(t, []string{"1"}, e.storedIDs(t), "unconfirmed tweets stay in the checkpoint")
	assert.False(t, e.client.IsDeleted("1"))
}

func TestDeleter_WhitelistSafetyNet(t *testing.T) {
	timeline := olderTimeline(2)
	e := newEnv(t, timeline)
	seed(t, e, timeline)
	require.NoError(t, e.whitelist.Add("2"))

	outcome, err := newTestDeleter(e, -1).Delete(context.Background(), timeline[0])

	require.NoError(t, err)
	assert.Equal(t, Skipped, outcome)
	assert.Zero(t, e.client.DeleteCalls("2"))
	assert.False(t, e.client.IsDeleted("2"))
	assert.Equal(t, []string{"1"}, e.storedIDs(t))
}

func TestDeleter_PauseBetweenCalls(t *testing.T) {
	timeline := olderTimeline(3)
	e := newEnv(t, timeline)
	seed(t, e, timeline)
	d := newTestDeleter(e, 20*time.Millisecond)

	start := time.Now()
	for _, item := range timeline {
		_, err := d.Delete(context.Background(), item)
		require.NoError(t, err)
	}

	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestDeleter_Cancelled(t *testing.T) {
	timeline := olderTimeline(1)
	e := newEnv(t, timeline)
	seed(t, e, timeline)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestDeleter(e, -1).Delete(ctx, timeline[0])

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrBatchAborted)
	assert.Equal(t, []string{"1"}, e.storedIDs(t))
}

func TestDeleteAll_ConcurrencyBound(t *testing.T) {
	timeline := olderTimeline(30)
	e := newEnv(t, timeline)
	seed(t, e, timeline)
	e.client.Delay = 3 * time.Millisecond

	m := metrics.New("test")
	d := NewDeleter(e.client, e.checkpoint, e.whitelist, DeleterOptions{Pause: -1}, logger.Nop(), m)
	pool := workers.NewPool(5, logger.Nop(), m)

	stats, err := d.DeleteAll(context.Background(), pool, timeline)

	require.NoError(t, err)
	assert.Equal(t, 30, stats.Deleted)
	assert.LessOrEqual(t, e.client.MaxInFlight(), 5)
	assert.Equal(t, 30, e.client.TotalDeleteCalls())
	assert.Empty(t, e.storedIDs(t))

	series, err := testutil.GatherAndCount(m.Registry(), "test_deletes_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series, "only the deleted outcome was recorded")
}

func TestDeleteAll_AbortKeepsUndeletedRemainder(t *testing.T) {
	timeline := olderTimeline(12)
	e := newEnv(t, timeline)
	seed(t, e, timeline)
	e.client.FailDelete = func(id string, _ int) error {
		if id == "6" {
			return &twitter.APIError{StatusCode: 403}
		}
		return nil
	}

	pool := workers.NewPool(3, logger.Nop(), nil)
	stats, err := newTestDeleter(e, -1).DeleteAll(context.Background(), pool, timeline)

	require.ErrorIs(t, err, ErrBatchAborted)

	stored := make(map[string]bool)
	for _, id := range e.storedIDs(t) {
		stored[id] = true
	}
	confirmed := 0
	for _, item := range timeline {
		deleted := e.client.IsDeleted(item.ID)
		assert.NotEqual(t, deleted, stored[item.ID], "tweet %s: checkpoint must hold exactly the undeleted tweets", item.ID)
		if deleted {
			confirmed++
		}
	}
	assert.Equal(t, stats.Deleted, confirmed)
	assert.Equal(t, len(timeline)-confirmed, len(stored))
	assert.True(t, stored["6"])
}

func TestDeleteAll_SkipsWhitelisted(t *testing.T) {
	timeline := olderTimeline(4)
	e := newEnv(t, timeline)
	seed(t, e, timeline)
	require.NoError(t, e.whitelist.Add("3"))

	pool := workers.NewPool(2, logger.Nop(), nil)
	stats, err := newTestDeleter(e, -1).DeleteAll(context.Background(), pool, timeline)

	require.NoError(t, err)
	assert.Equal(t, 3, stats.Deleted)
	assert.Equal(t, 1, stats.Skipped)
	assert.Zero(t, e.client.DeleteCalls("3"))
	assert.Empty(t, e.storedIDs(t))
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "deleted", Deleted.String())
	assert.Equal(t, "already_gone", AlreadyGone.String())
	assert.Equal(t, "skipped", Skipped.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
