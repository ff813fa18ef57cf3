package team

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rayhaanfarooq/squire/agent"
	"github.com/rayhaanfarooq/squire/events"
	"github.com/rayhaanfarooq/squire/store"
)

func setupStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "squire.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func startTrigger(t *testing.T) events.Envelope {
	t.Helper()
	env, err := events.NewValue("squire/analysis/start", map[string]string{"event": "start"})
	require.NoError(t, err)
	return env
}

func TestAnalyzeReportsLatestReview(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	_, err := st.AddTeamReview(ctx, "Older review with nothing remarkable to say.", "amara")
	require.NoError(t, err)
	newest, err := st.AddTeamReview(ctx, reviewText, "jordan")
	require.NoError(t, err)

	out, err := New(Store(st)).Analyze(ctx, startTrigger(t))
	require.NoError(t, err)
	result, ok := out.(Result)
	require.True(t, ok)

	assert.Equal(t, Name, result.Agent)
	assert.Equal(t, agent.StatusCompleted, result.Status)
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, fmt.Sprintf("Analyzed team review #%d from jordan", newest.ID), result.Summary)

	require.Len(t, result.Analyses, 1)
	analysis := result.Analyses[0]
	assert.Equal(t, newest.ID, analysis.ReviewID)
	assert.Equal(t, "jordan", analysis.TeamMember)
	assert.Equal(t, "positive", analysis.Sentiment)
}

func TestAnalyzeWithEmptyStore(t *testing.T) {
	st := setupStore(t)

	out, err := New(Store(st)).Analyze(context.Background(), startTrigger(t))
	require.NoError(t, err)
	result, ok := out.(Result)
	require.True(t, ok)

	assert.Equal(t, agent.StatusCompleted, result.Status)
	assert.Equal(t, "No team reviews found in database", result.Message)
	assert.Empty(t, result.Analyses)
	assert.Zero(t, result.Count)
}

func TestAnalyzeOpensDatabaseAtPath(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "reviews.db")

	seed, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, seed.Migrate(ctx))
	_, err = seed.AddTeamReview(ctx, reviewText, "casey")
	require.NoError(t, err)
	require.NoError(t, seed.Close())

	analyzer := New(DBPath(path))
	for range 2 {
		out, err := analyzer.Analyze(ctx, startTrigger(t))
		require.NoError(t, err)
		assert.Equal(t, 1, out.(Result).Count)
	}
}

func TestNewReadsPathFromEnvironment(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "env.db")
	t.Setenv("SQUIRE_DB_PATH", path)

	seed, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, seed.Migrate(ctx))
	_, err = seed.AddTeamReview(ctx, "Quick status note.", "")
	require.NoError(t, err)
	require.NoError(t, seed.Close())

	out, err := New().Analyze(ctx, startTrigger(t))
	require.NoError(t, err)
	result := out.(Result)
	assert.Equal(t, 1, result.Count)
	assert.Contains(t, result.Summary, "from Anonymous")
}
