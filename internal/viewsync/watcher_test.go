package viewsync

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runWatcher(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
}

func waitChange(t *testing.T, w *Watcher) Change {
	t.Helper()
	select {
	case c := <-w.Changes():
		return c
	case <-time.After(3 * time.Second):
		t.Fatal("no change delivered")
		return Change{}
	}
}

func assertNoChange(t *testing.T, w *Watcher, wait time.Duration) {
	t.Helper()
	select {
	case c := <-w.Changes():
		t.Fatalf("unexpected change %+v", c)
	case <-time.After(wait):
	}
}

func TestWatcher_OriginsDiffer(t *testing.T) {
	a := NewWatcher()
	b := NewWatcher()
	assert.NotEmpty(t, a.Origin())
	assert.NotEqual(t, a.Origin(), b.Origin())
}

func TestWatcher_BusIgnoresOwnChanges(t *testing.T) {
	bus := NewBus[Change]()
	defer bus.Shutdown()

	a := NewWatcher(WithBus(bus))
	b := NewWatcher(WithBus(bus))
	runWatcher(t, a)
	runWatcher(t, b)
	require.Eventually(t, func() bool { return bus.Subscribers() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, a.Notify(context.Background()))

	c := waitChange(t, b)
	assert.Equal(t, a.Origin(), c.Origin)
	assert.Equal(t, SourceBus, c.Source)
	assertNoChange(t, a, 50*time.Millisecond)
}

func TestWatcher_CoalescesBursts(t *testing.T) {
	bus := NewBus[Change]()
	defer bus.Shutdown()

	a := NewWatcher(WithBus(bus))
	b := NewWatcher(WithBus(bus))
	runWatcher(t, b)
	require.Eventually(t, func() bool { return bus.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	for i := 0; i < 10; i++ {
		require.NoError(t, a.Notify(context.Background()))
	}
	time.Sleep(50 * time.Millisecond)

	waitChange(t, b)
	assertNoChange(t, b, 50*time.Millisecond)
}

func TestWatcher_SignalFile(t *testing.T) {
	dir := t.TempDir()

	a := NewWatcher(WithSignalDir(dir))
	b := NewWatcher(WithSignalDir(dir))
	runWatcher(t, a)
	runWatcher(t, b)
	// Give both fsnotify watchers time to register.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, a.Notify(context.Background()))

	c := waitChange(t, b)
	assert.Equal(t, SourceSignal, c.Source)
	assert.Equal(t, a.Origin(), c.Origin)

	data, err := os.ReadFile(filepath.Join(dir, SignalFileName))
	require.NoError(t, err)
	assert.Equal(t, a.Origin()+"\n", string(data))

	assertNoChange(t, a, 100*time.Millisecond)
}

func TestWatcher_PollFallback(t *testing.T) {
	src := &fakeRevisions{revs: map[string]int64{"session": 0}}
	w := NewWatcher(WithPoller(src, 10*time.Millisecond))
	runWatcher(t, w)
	time.Sleep(30 * time.Millisecond)

	src.bump("session")

	c := waitChange(t, w)
	assert.Equal(t, SourcePoll, c.Source)
}

func TestWatcher_SignalWithPollerSeesOverwrittenSignal(t *testing.T) {
	dir := t.TempDir()
	src := &fakeRevisions{revs: map[string]int64{"tasks": 1, "session": 0}}

	w := NewWatcher(WithSignalDir(dir), WithPoller(src, time.Hour))
	w.Baseline(context.Background())
	runWatcher(t, w)
	time.Sleep(100 * time.Millisecond)

	// Own write: acknowledged, so its signal is not a change.
	src.bump("session")
	require.NoError(t, w.Notify(context.Background(), Write{Key: "session", Revision: 1}))
	assertNoChange(t, w, 150*time.Millisecond)

	// Another view's write whose signal this view overwrites before
	// reading it: the file names this view, the revisions do not agree.
	src.bump("tasks")
	src.bump("session")
	require.NoError(t, w.Notify(context.Background(), Write{Key: "session", Revision: 2}))

	c := waitChange(t, w)
	assert.Equal(t, SourceSignal, c.Source)
}
