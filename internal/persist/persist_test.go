package persist

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/pomo/internal/models"
	"github.com/joescharf/pomo/internal/store"
)

func newTestAdapter(t *testing.T) (*Adapter, *store.SQLiteStore) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return New(s), s
}

func testSession() *models.Session {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return &models.Session{
		StartedAt:          start,
		Mode:               models.ModeFocus,
		TotalIntervals:     3,
		CurrentIntervalSec: 1500,
		EndTimestamp:       start.Add(25 * time.Minute),
		TasksSnapshot:      []models.Task{{ID: "01A", Title: "write report", Estimate: 3}},
		History:            []models.HistoryRecord{},
	}
}

func TestLoadTasks_Empty(t *testing.T) {
	a, _ := newTestAdapter(t)

	tasks, err := a.LoadTasks(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func TestTasksRoundTripPreservesOrder(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	in := []models.Task{
		{ID: "c", Title: "third", Estimate: 1},
		{ID: "a", Title: "first", Estimate: 2, Done: true},
		{ID: "b", Title: "second", Estimate: 4},
	}
	rev, err := a.SaveTasks(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)

	out, err := a.LoadTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestLoadTasks_Corrupt(t *testing.T) {
	a, s := newTestAdapter(t)
	ctx := context.Background()

	_, err := s.Put(ctx, TasksKey, "{not json")
	require.NoError(t, err)

	_, err = a.LoadTasks(ctx)
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = s.Put(ctx, TasksKey, `[{"title":"no id","estimate":1}]`)
	require.NoError(t, err)

	_, err = a.LoadTasks(ctx)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestSessionRoundTrip(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	got, err := a.LoadSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, got, "no session stored means idle")

	in := testSession()
	rem := 600
	pausedAt := in.StartedAt.Add(15 * time.Minute)
	in.Paused = true
	in.PausedAt = &pausedAt
	in.RemainingSeconds = &rem
	_, err = a.SaveSession(ctx, in)
	require.NoError(t, err)

	got, err = a.LoadSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, in.Mode, got.Mode)
	assert.True(t, got.EndTimestamp.Equal(in.EndTimestamp))
	require.NotNil(t, got.RemainingSeconds)
	assert.Equal(t, 600, *got.RemainingSeconds)
	assert.Equal(t, in.TasksSnapshot, got.TasksSnapshot)
}

func TestSaveSessionNilClears(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	rev, err := a.SaveSession(ctx, testSession())
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)
	rev, err = a.SaveSession(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev)

	got, err := a.LoadSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Clearing twice is fine and leaves the revision alone
	rev, err = a.ClearSession(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), rev)
}

func TestLoadSession_Corrupt(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"bad json", `{"mode":`},
		{"unknown mode", `{"mode":"nap","total_intervals":1,"current_interval_sec":60}`},
		{"no intervals", `{"mode":"focus","total_intervals":0,"current_interval_sec":60}`},
		{"paused without remaining", `{"mode":"focus","total_intervals":2,"current_interval_sec":60,"paused":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, s := newTestAdapter(t)
			ctx := context.Background()

			_, err := s.Put(ctx, SessionKey, tt.value)
			require.NoError(t, err)

			_, err = a.LoadSession(ctx)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestRevisions(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	revs, err := a.Revisions(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{TasksKey: 0, SessionKey: 0}, revs)

	_, err = a.SaveTasks(ctx, nil)
	require.NoError(t, err)
	_, err = a.SaveSession(ctx, testSession())
	require.NoError(t, err)
	_, err = a.ClearSession(ctx)
	require.NoError(t, err)

	revs, err = a.Revisions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), revs[TasksKey])
	assert.Equal(t, int64(2), revs[SessionKey])
}
