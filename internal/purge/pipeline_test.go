package purge

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aatumaykin/twpurge/internal/logger"
	"github.com/aatumaykin/twpurge/internal/metrics"
	"github.com/aatumaykin/twpurge/internal/prompt"
	"github.com/aatumaykin/twpurge/internal/twitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(e *env, asker prompt.Asker) *Pipeline {
	return New(e.client, e.checkpoint, e.whitelist, asker, fastOptions(), logger.Nop(), nil)
}

func TestPipeline_EndToEnd(t *testing.T) {
	e := newEnv(t, []twitter.Tweet{
		mkTweet("5", after.Add(time.Hour), 0, 0),
		mkTweet("4", after, 0, 0),
		mkTweet("3", before.Add(3*time.Hour), 0, 0),
		mkTweet("2", before.Add(2*time.Hour), 0, 0),
		mkTweet("1", before.Add(time.Hour), 0, 0),
	})
	asker := prompt.NewScripted(true)

	summary, err := newTestPipeline(e, asker).Run(context.Background(), cutoff)

	require.NoError(t, err)
	assert.Equal(t, Summary{CutoffID: "3", Collected: 3, Deleted: 3}, summary)

	data, err := os.ReadFile(e.checkpoint.Path())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	for _, id := range []string{"1", "2", "3"} {
		assert.Equal(t, 1, e.client.DeleteCalls(id), id)
		assert.True(t, e.client.IsDeleted(id), id)
	}
	assert.Zero(t, e.client.DeleteCalls("4"))
	assert.Zero(t, e.client.DeleteCalls("5"))
	assert.Equal(t, 1, asker.Asked())
}

func TestPipeline_ReviewAndWhitelist(t *testing.T) {
	e := newEnv(t, []twitter.Tweet{
		mkTweet("4", after, 0, 0),
		mkTweet("3", before.Add(3*time.Hour), 10, 0),
		mkTweet("2", before.Add(2*time.Hour), 0, 0),
		mkTweet("1", before.Add(time.Hour), 0, 50),
	})
	// cutoff yes, tweet 3 keep, tweet 1 delete
	asker := prompt.NewScripted(true, false, true)

	summary, err := newTestPipeline(e, asker).Run(context.Background(), cutoff)

	require.NoError(t, err)
	assert.Equal(t, 3, summary.Collected)
	assert.Equal(t, 2, summary.Deleted)
	assert.Equal(t, 2, summary.Reviewed)
	assert.Equal(t, 1, summary.Whitelisted)
	assert.True(t, e.whitelist.Contains("3"))
	assert.False(t, e.client.IsDeleted("3"))
	assert.True(t, e.client.IsDeleted("1"))
	assert.Empty(t, e.storedIDs(t))
}

func TestPipeline_ResumesWithoutCutoffQuestion(t *testing.T) {
	timeline := olderTimeline(6)
	e := newEnv(t, timeline)
	seed(t, e, timeline[:2])
	asker := prompt.NewScripted()

	summary, err := newTestPipeline(e, asker).Run(context.Background(), cutoff)

	require.NoError(t, err)
	assert.True(t, summary.Resumed)
	assert.Equal(t, 6, summary.Collected)
	assert.Equal(t, 6, summary.Deleted)
	assert.Zero(t, asker.Asked())
	assert.Empty(t, e.storedIDs(t))
}

func TestPipeline_CutoffNotFoundWritesNothing(t *testing.T) {
	e := newEnv(t, []twitter.Tweet{mkTweet("2", after, 0, 0), mkTweet("1", after, 0, 0)})

	_, err := newTestPipeline(e, prompt.NewScripted()).Run(context.Background(), cutoff)

	require.ErrorIs(t, err, ErrCutoffNotFound)
	_, statErr := os.Stat(e.checkpoint.Path())
	assert.True(t, os.IsNotExist(statErr))
}

func TestPipeline_AbortLeavesRemainder(t *testing.T) {
	timeline := olderTimeline(5)
	e := newEnv(t, timeline)
	e.client.FailDelete = func(id string, _ int) error {
		if id == "3" {
			return &twitter.APIError{StatusCode: 403}
		}
		return nil
	}
	opts := fastOptions()
	opts.Workers = 1

	p := New(e.client, e.checkpoint, e.whitelist, prompt.NewScripted(true), opts, logger.Nop(), nil)
	summary, err := p.Run(context.Background(), cutoff)

	require.ErrorIs(t, err, ErrBatchAborted)
	assert.Equal(t, 2, summary.Deleted)
	assert.Equal(t, []string{"3", "2", "1"}, e.storedIDs(t))
}

func TestPipeline_RecordsMetrics(t *testing.T) {
	e := newEnv(t, olderTimeline(3))
	m := metrics.New("twpurge")

	p := New(e.client, e.checkpoint, e.whitelist, prompt.NewScripted(true), fastOptions(), logger.Nop(), m)
	_, err := p.Run(context.Background(), cutoff)
	require.NoError(t, err)

	path := filepath.Join(e.dir, "twpurge.prom")
	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `twpurge_deletes_total{outcome="deleted"} 3`)
	assert.Contains(t, string(data), "twpurge_tweets_collected_total 3")
	assert.Contains(t, string(data), "twpurge_checkpoint_size 0")
}
