package cache

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/mail-butler/internal/state"
	"github.com/brandon/mail-butler/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	c, err := NewCache(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := c.Close(); err != nil {
			t.Errorf("closing test cache: %v", err)
		}
	})
	return NewStore(c, logger)
}

func TestStoreImplementsProcessedSet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ids, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, s.Save(ctx, []string{"b", "a"}))
	require.NoError(t, s.Save(ctx, []string{"a", "b", "c"}))

	ids, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	var _ state.Store = s
}

func TestTrackerOverSQLite(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	tr := state.NewTracker(s)
	require.NoError(t, tr.Load(ctx))
	require.NoError(t, tr.Record(ctx, "42"))

	reloaded := state.NewTracker(s)
	require.NoError(t, reloaded.Load(ctx))
	assert.True(t, reloaded.Contains("42"))
}

func TestJournal(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	records := []types.TriageRecord{
		{MessageID: "1", Sender: "bot@noreply.example.com", Decision: "skip-system-sender", CreatedAt: base},
		{MessageID: "2", Sender: "alice@example.com", Decision: "skip-no-reply-needed", Rule: "closing-ack", CreatedAt: base.Add(time.Minute)},
		{MessageID: "3", Sender: "alice@example.com", Decision: "generate-and-draft", Class: "IMPORTANT", ActionID: "d-1", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, r := range records {
		require.NoError(t, s.RecordTriage(ctx, r))
	}

	all, err := s.Journal(ctx, JournalOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "3", all[0].MessageID, "newest first")
	assert.Equal(t, "d-1", all[0].ActionID)
	assert.True(t, all[0].CreatedAt.Equal(base.Add(2*time.Minute)))

	sender := "alice"
	fromAlice, err := s.Journal(ctx, JournalOptions{Sender: &sender})
	require.NoError(t, err)
	assert.Len(t, fromAlice, 2)

	decision := "skip-no-reply-needed"
	skipped, err := s.Journal(ctx, JournalOptions{Decision: &decision})
	require.NoError(t, err)
	require.Len(t, skipped, 1)
	assert.Equal(t, "closing-ack", skipped[0].Rule)

	since := base.Add(90 * time.Second)
	recent, err := s.Journal(ctx, JournalOptions{Since: &since, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	counts, err := s.CountByDecision(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		"skip-system-sender":   1,
		"skip-no-reply-needed": 1,
		"generate-and-draft":   1,
	}, counts)
}

func TestJournalSinceWithinSameSecond(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordTriage(ctx, types.TriageRecord{MessageID: "early", Decision: "generate-and-draft", CreatedAt: base.Add(-time.Second)}))
	require.NoError(t, s.RecordTriage(ctx, types.TriageRecord{MessageID: "half", Decision: "generate-and-draft", CreatedAt: base.Add(500 * time.Millisecond)}))
	require.NoError(t, s.RecordTriage(ctx, types.TriageRecord{MessageID: "exact", Decision: "generate-and-draft", CreatedAt: base}))

	recent, err := s.Journal(ctx, JournalOptions{Since: &base})
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "exact", recent[0].MessageID)
	assert.Equal(t, "half", recent[1].MessageID)
	assert.True(t, recent[1].CreatedAt.Equal(base.Add(500*time.Millisecond)))

	local := base.In(time.FixedZone("CET", 3600)).Add(200 * time.Millisecond)
	later, err := s.Journal(ctx, JournalOptions{Since: &local})
	require.NoError(t, err)
	require.Len(t, later, 1)
	assert.Equal(t, "half", later[0].MessageID)
}

func TestParseTimeReadsLegacyRows(t *testing.T) {
	got, err := parseTime("2026-03-01T04:00:00.5Z")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 3, 1, 4, 0, 0, 500_000_000, time.UTC)))
	assert.Equal(t, "2026-03-01T04:00:00.500000000Z", formatTime(got))
}
