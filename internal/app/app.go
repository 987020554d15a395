// Package app is the application root: it owns the stored task list, the
// session timer and the broadcast to other views, and it is the only place
// where any of them change. Every presentation surface goes through an App.
package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/joescharf/pomo/internal/models"
	"github.com/joescharf/pomo/internal/persist"
	"github.com/joescharf/pomo/internal/timer"
	"github.com/joescharf/pomo/internal/viewsync"
)

// Persister stores tasks and the session. *persist.Adapter implements it.
type Persister interface {
	LoadTasks(ctx context.Context) ([]models.Task, error)
	SaveTasks(ctx context.Context, tasks []models.Task) (int64, error)
	LoadSession(ctx context.Context) (*models.Session, error)
	SaveSession(ctx context.Context, s *models.Session) (int64, error)
	ClearSession(ctx context.Context) (int64, error)
}

// App serializes every trigger (user input, scheduler tick, sync
// notification) through one mutex, so each view behaves as a single logical
// thread.
type App struct {
	mu        sync.Mutex
	cfg       timer.Config
	persist   Persister
	notifier  viewsync.Notifier
	logger    *slog.Logger
	clock     func() time.Time
	machine   *timer.Machine
	tasks     []models.Task
	listeners timer.Listeners
	scheduler *Scheduler
	tick      time.Duration

	// writes stored since the last notify
	pending []viewsync.Write

	lastSummary timer.Summary
	summarySeq  uint64
}

// Option customizes an App.
type Option func(*App)

// WithClock overrides the wall clock.
func WithClock(clock func() time.Time) Option {
	return func(a *App) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// WithLogger sets the logger used for storage and broadcast failures.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithNotifier sets how other views are told about changes.
func WithNotifier(n viewsync.Notifier) Option {
	return func(a *App) {
		if n != nil {
			a.notifier = n
		}
	}
}

// WithListener registers a receiver of timer events.
func WithListener(l timer.Listener) Option {
	return func(a *App) {
		if l != nil {
			a.listeners = append(a.listeners, l)
		}
	}
}

// WithTickInterval enables the periodic scheduler. Views that only run a
// single command leave it off.
func WithTickInterval(d time.Duration) Option {
	return func(a *App) { a.tick = d }
}

// New creates an App. Call Load before use.
func New(p Persister, cfg timer.Config, opts ...Option) *App {
	a := &App{
		cfg:      cfg,
		persist:  p,
		notifier: viewsync.NopNotifier{},
		logger:   slog.Default(),
		clock:    time.Now,
		tasks:    []models.Task{},
	}
	for _, opt := range opts {
		opt(a)
	}

	a.machine = timer.New(cfg, timer.WithClock(a.clock), timer.WithListener(fanout{a}))
	if a.tick > 0 {
		a.scheduler = NewScheduler(a.tick, func() { a.Tick(context.Background()) })
	}
	return a
}

// AddListener registers a receiver of timer events. Listeners are called
// with the App locked and must not call back into it.
func (a *App) AddListener(l timer.Listener) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, l)
}

// Load reads stored state and catches up on any interval that ended while
// no view was open.
func (a *App) Load(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	tasks, err := a.persist.LoadTasks(ctx)
	if err != nil {
		a.logger.Warn("load tasks, starting with an empty list", "error", err)
		tasks = []models.Task{}
	}
	a.tasks = tasks

	s, err := a.persist.LoadSession(ctx)
	if err != nil {
		a.logger.Warn("load session, starting idle", "error", err)
		s = nil
	}
	if a.machine.Recover(s) {
		a.saveSession(ctx)
		a.notify(ctx)
	}
	a.syncScheduler()
}

// Reload re-derives state after another view changed storage. A session
// that disappeared from storage was ended elsewhere.
func (a *App) Reload(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	tasks, err := a.persist.LoadTasks(ctx)
	switch {
	case errors.Is(err, persist.ErrCorrupt):
		a.logger.Warn("reload tasks", "error", err)
		a.tasks = []models.Task{}
	case err != nil:
		a.logger.Warn("reload tasks, keeping current list", "error", err)
	default:
		a.tasks = tasks
	}

	s, err := a.persist.LoadSession(ctx)
	switch {
	case errors.Is(err, persist.ErrCorrupt):
		a.logger.Warn("reload session", "error", err)
		s = nil
	case err != nil:
		a.logger.Warn("reload session, keeping current state", "error", err)
		return
	}

	if s == nil {
		a.machine.Discard()
	} else if a.machine.Recover(s) {
		a.saveSession(ctx)
		a.notify(ctx)
	}
	a.syncScheduler()
}

// Follow reloads on every change delivered by changes until ctx is done or
// the channel closes.
func (a *App) Follow(ctx context.Context, changes <-chan viewsync.Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			a.logger.Debug("state changed by another view", "origin", c.Origin, "source", c.Source)
			a.Reload(ctx)
		}
	}
}

// Close stops the scheduler.
func (a *App) Close() {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
}

// --- Session ---

// Start begins a session over the current task list.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.machine.Start(a.tasks); err != nil {
		if errors.Is(err, timer.ErrNoIntervals) {
			return &ValidationError{Field: "tasks", Message: err.Error(), Err: err}
		}
		return err
	}
	a.saveSession(ctx)
	a.notify(ctx)
	a.syncScheduler()
	return nil
}

// Pause freezes the running interval. It reports false when there was
// nothing to pause.
func (a *App) Pause(ctx context.Context) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.commit(ctx, a.machine.Pause())
}

// Resume continues a paused interval. It reports false when there was
// nothing to resume.
func (a *App) Resume(ctx context.Context) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.commit(ctx, a.machine.Resume())
}

// Toggle pauses a running session or resumes a paused one and returns the
// resulting state.
func (a *App) Toggle(ctx context.Context) timer.State {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.machine.State() {
	case timer.StateRunning:
		a.commit(ctx, a.machine.Pause())
	case timer.StatePaused:
		a.commit(ctx, a.machine.Resume())
	}
	return a.machine.State()
}

// End stops the session early and returns its summary.
func (a *App) End(ctx context.Context) (timer.Summary, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	summary, err := a.machine.End()
	if err != nil {
		return timer.Summary{}, err
	}
	a.saveSession(ctx)
	a.notify(ctx)
	a.syncScheduler()
	return summary, nil
}

// Tick completes the current interval if it is due and returns the
// displayable state.
func (a *App) Tick(ctx context.Context) timer.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap, completed := a.machine.Tick()
	if completed {
		a.saveSession(ctx)
		a.notify(ctx)
	}
	a.syncScheduler()
	return snap
}

// Snapshot returns the displayable state without completing anything.
func (a *App) Snapshot() timer.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.machine.Snapshot()
}

// Session returns a copy of the current session, or nil when idle.
func (a *App) Session() *models.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.machine.Session()
}

// State reports idle, running or paused.
func (a *App) State() timer.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.machine.State()
}

// LastSummary returns the most recent session summary and a sequence number
// that grows with every ended session. A zero sequence means no session has
// ended in this view.
func (a *App) LastSummary() (timer.Summary, uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSummary, a.summarySeq
}

// Config returns the interval configuration.
func (a *App) Config() timer.Config { return a.cfg }

// Ticking reports whether the scheduler is currently running.
func (a *App) Ticking() bool {
	return a.scheduler != nil && a.scheduler.Running()
}

func (a *App) commit(ctx context.Context, changed bool) bool {
	if changed {
		a.saveSession(ctx)
		a.notify(ctx)
		a.syncScheduler()
	}
	return changed
}

func (a *App) syncScheduler() {
	if a.scheduler == nil {
		return
	}
	if a.machine.State() == timer.StateRunning {
		a.scheduler.Start()
	} else {
		a.scheduler.Stop()
	}
}

func (a *App) saveSession(ctx context.Context) {
	rev, err := a.persist.SaveSession(ctx, a.machine.Session())
	if err != nil {
		a.logger.Warn("save session", "error", err)
		return
	}
	a.pending = append(a.pending, viewsync.Write{Key: persist.SessionKey, Revision: rev})
}

func (a *App) saveTasks(ctx context.Context) {
	rev, err := a.persist.SaveTasks(ctx, a.tasks)
	if err != nil {
		a.logger.Warn("save tasks", "error", err)
		return
	}
	a.pending = append(a.pending, viewsync.Write{Key: persist.TasksKey, Revision: rev})
}

func (a *App) notify(ctx context.Context) {
	writes := a.pending
	a.pending = nil
	if err := a.notifier.Notify(ctx, writes...); err != nil {
		a.logger.Debug("notify other views", "error", err)
	}
}

// fanout forwards machine events to the App's listeners. It runs with the
// App locked.
type fanout struct{ a *App }

func (f fanout) OnTick(s timer.Snapshot)                   { f.a.listeners.OnTick(s) }
func (f fanout) OnIntervalCompleted(m models.Mode)         { f.a.listeners.OnIntervalCompleted(m) }
func (f fanout) OnSessionStateChanged(c timer.StateChange) { f.a.listeners.OnSessionStateChanged(c) }

func (f fanout) OnSessionEnded(s timer.Summary) {
	f.a.lastSummary = s
	f.a.summarySeq++
	f.a.listeners.OnSessionEnded(s)
}
