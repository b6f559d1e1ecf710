package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peerloop/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "peerloop.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestHistoryRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	turns := []types.ConversationTurn{
		{SenderLabel: "Maya", Text: "welcome"},
		{SenderLabel: "Alex", Text: "hi!"},
		{SenderLabel: "jess", Text: "hey hey"},
	}
	for _, turn := range turns {
		require.NoError(t, s.AppendTurn(ctx, "conv-1", turn))
	}

	got, err := s.History(ctx, "conv-1", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range turns {
		assert.Equal(t, turns[i].SenderLabel, got[i].SenderLabel)
		assert.Equal(t, turns[i].Text, got[i].Text)
		assert.False(t, got[i].Timestamp.IsZero())
	}
}

func TestHistoryLimitKeepsMostRecentInOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three", "four"} {
		require.NoError(t, s.AppendTurn(ctx, "conv-1", types.ConversationTurn{
			SenderLabel: "Alex", Text: text,
		}))
	}

	got, err := s.History(ctx, "conv-1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "three", got[0].Text, "limit keeps the tail, chronologically ordered")
	assert.Equal(t, "four", got[1].Text)
}

func TestHistoryIsScopedByConversation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendTurn(ctx, "conv-a", types.ConversationTurn{SenderLabel: "A", Text: "a"}))
	require.NoError(t, s.AppendTurn(ctx, "conv-b", types.ConversationTurn{SenderLabel: "B", Text: "b"}))

	got, err := s.History(ctx, "conv-a", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Text)
}

func TestLearnerLookups(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertLearner(ctx, "l1", "Alex", time.Now().AddDate(0, 0, -5)))

	name, err := s.LearnerName(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, "Alex", name)

	days, err := s.DaysSinceEnrollment(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, 6, days)

	// Upsert updates the display name without duplicating the row.
	require.NoError(t, s.UpsertLearner(ctx, "l1", "Alexandra", time.Now()))
	name, err = s.LearnerName(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, "Alexandra", name)
}

func TestUnknownLearnerDefaults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	name, err := s.LearnerName(ctx, "ghost")
	require.NoError(t, err)
	assert.Equal(t, "ghost", name, "unknown learners fall back to the id")

	days, err := s.DaysSinceEnrollment(ctx, "ghost")
	require.NoError(t, err)
	assert.Equal(t, 1, days, "unknown learners read as day 1")
}

func TestEnrollmentDayFloorsAtOne(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertLearner(ctx, "l1", "Alex", time.Now().Add(time.Hour)))
	days, err := s.DaysSinceEnrollment(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, 1, days)
}

func TestNudgeLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.LastNudge(ctx, "l1", "daily_standup")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.RecordNudge(ctx, "l1", "daily_standup"))

	issued, ok, err := s.LastNudge(ctx, "l1", "daily_standup")
	require.NoError(t, err)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), issued, time.Minute)

	// Scoped per event.
	_, ok, err = s.LastNudge(ctx, "l1", "re_engagement")
	require.NoError(t, err)
	assert.False(t, ok)

	// Re-recording moves the timestamp instead of erroring on the key.
	require.NoError(t, s.RecordNudge(ctx, "l1", "daily_standup"))
}

func TestSeedDemo(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SeedDemo(ctx))

	name, err := s.LearnerName(ctx, "demo-learner")
	require.NoError(t, err)
	assert.Equal(t, "Alex", name)

	history, err := s.History(ctx, "demo-learner", 0)
	require.NoError(t, err)
	assert.NotEmpty(t, history)
}
