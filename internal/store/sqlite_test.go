package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	err = s.Migrate(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "subdir", "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "subdir"))
	assert.NoError(t, err, "should create parent directory")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Running migrate again should be a no-op
	err := s.Migrate(ctx)
	assert.NoError(t, err)
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPutGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rev, err := s.Put(ctx, "pomodoro.tasks.v1", `[]`)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)

	got, err := s.Get(ctx, "pomodoro.tasks.v1")
	require.NoError(t, err)
	assert.Equal(t, `[]`, got.Value)
	assert.Equal(t, int64(1), got.Revision)
	assert.False(t, got.UpdatedAt.IsZero())

	// Overwrite
	rev, err = s.Put(ctx, "pomodoro.tasks.v1", `[{"id":"a"}]`)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev)

	got, err = s.Get(ctx, "pomodoro.tasks.v1")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"a"}]`, got.Value)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "k", "v")
	require.NoError(t, err)

	rev, err := s.Delete(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev, "delete bumps the revision")

	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again changes nothing
	rev, err = s.Delete(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev)

	rev, err = s.Delete(ctx, "never-written")
	require.NoError(t, err)
	assert.Equal(t, int64(0), rev)
}

func TestRevisions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "a", "1")
	require.NoError(t, err)
	_, err = s.Put(ctx, "a", "2")
	require.NoError(t, err)
	_, err = s.Put(ctx, "b", "1")
	require.NoError(t, err)

	revs, err := s.Revisions(ctx, "a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"a": 2, "b": 1, "c": 0}, revs)

	revs, err = s.Revisions(ctx)
	require.NoError(t, err)
	assert.Empty(t, revs)
}

func TestTwoHandlesShareRecords(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "shared.db")
	ctx := context.Background()

	first, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer first.Close()
	require.NoError(t, first.Migrate(ctx))

	second, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer second.Close()
	require.NoError(t, second.Migrate(ctx))

	_, err = first.Put(ctx, "pomodoro.session.v1", `{"mode":"focus"}`)
	require.NoError(t, err)

	got, err := second.Get(ctx, "pomodoro.session.v1")
	require.NoError(t, err)
	assert.Equal(t, `{"mode":"focus"}`, got.Value)

	revs, err := second.Revisions(ctx, "pomodoro.session.v1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), revs["pomodoro.session.v1"])
}

func TestConcurrentPuts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Put(ctx, "counter", "x")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	revs, err := s.Revisions(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(20), revs["counter"])
}

func TestNewID(t *testing.T) {
	a := NewID()
	b := NewID()
	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
}
