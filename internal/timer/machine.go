package timer

import (
	"errors"
	"math"
	"time"

	"github.com/joescharf/pomo/internal/models"
)

var (
	// ErrNoIntervals is returned by Start when the tasks estimate zero
	// focus intervals in total.
	ErrNoIntervals = errors.New("add at least one estimated interval to your tasks before starting a session")
	// ErrSessionActive is returned by Start while a session is running or paused.
	ErrSessionActive = errors.New("a session is already in progress")
	// ErrIdle is returned by End when there is no session.
	ErrIdle = errors.New("no session in progress")
)

// Machine is the session timer state machine. Remaining time is always
// derived from an absolute deadline, so a machine that is not ticked for
// an arbitrary stretch of time is still correct on its next call.
//
// Machine is not safe for concurrent use; the owner serializes calls.
type Machine struct {
	cfg      Config
	clock    func() time.Time
	listener Listener
	session  *models.Session
}

// Option customizes machine construction.
type Option func(*Machine)

// WithClock overrides the wall clock. Tests use it to control time.
func WithClock(clock func() time.Time) Option {
	return func(m *Machine) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithListener registers the receiver of emitted events.
func WithListener(l Listener) Option {
	return func(m *Machine) {
		if l != nil {
			m.listener = l
		}
	}
}

// New creates an idle machine.
func New(cfg Config, opts ...Option) *Machine {
	m := &Machine{
		cfg:      cfg,
		clock:    time.Now,
		listener: NopListener{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Config returns the machine's interval configuration.
func (m *Machine) Config() Config { return m.cfg }

// Session returns a copy of the current session, or nil when idle.
func (m *Machine) Session() *models.Session { return m.session.Clone() }

// State reports idle, running or paused.
func (m *Machine) State() State {
	switch {
	case m.session == nil:
		return StateIdle
	case m.session.Paused:
		return StatePaused
	default:
		return StateRunning
	}
}

// Start begins a new session covering the estimates of tasks. The tasks are
// snapshotted; later edits to the task list do not affect the session.
func (m *Machine) Start(tasks []models.Task) error {
	if m.session != nil {
		return ErrSessionActive
	}
	total := models.TotalEstimate(tasks)
	if total < 1 {
		return ErrNoIntervals
	}

	now := m.clock()
	focus := m.cfg.Duration(models.ModeFocus)
	m.session = &models.Session{
		StartedAt:          now,
		Mode:               models.ModeFocus,
		TotalIntervals:     total,
		CurrentIntervalSec: seconds(focus),
		EndTimestamp:       now.Add(focus),
		TasksSnapshot:      append([]models.Task(nil), tasks...),
		History:            []models.HistoryRecord{},
	}
	m.notifyState()
	return nil
}

// Pause freezes the remaining time. It reports whether anything changed.
func (m *Machine) Pause() bool {
	s := m.session
	if s == nil || s.Paused {
		return false
	}

	now := m.clock()
	remaining := max(0, roundSeconds(s.EndTimestamp.Sub(now)))
	s.Paused = true
	s.PausedAt = &now
	s.RemainingSeconds = &remaining
	m.notifyState()
	return true
}

// Resume re-bases the deadline on the current wall clock so that time spent
// paused, suspended or closed is never counted. It reports whether anything
// changed.
func (m *Machine) Resume() bool {
	s := m.session
	if s == nil || !s.Paused {
		return false
	}

	now := m.clock()
	remaining := 0
	if s.RemainingSeconds != nil {
		remaining = *s.RemainingSeconds
	}
	s.EndTimestamp = now.Add(time.Duration(remaining) * time.Second)
	s.Paused = false
	s.PausedAt = nil
	s.RemainingSeconds = nil
	m.notifyState()
	return true
}

// Tick completes the current interval if its deadline has passed and
// returns what should be displayed. The bool result reports whether an
// interval was completed, i.e. whether the session changed.
func (m *Machine) Tick() (Snapshot, bool) {
	now := m.clock()
	completed := false
	if s := m.session; s != nil && !s.Paused && !now.Before(s.EndTimestamp) {
		m.completeAt(now)
		completed = true
	}
	snap := m.snapshotAt(now)
	m.listener.OnTick(snap)
	return snap, completed
}

// Snapshot returns the displayable state without completing anything.
func (m *Machine) Snapshot() Snapshot {
	return m.snapshotAt(m.clock())
}

// CompleteInterval finishes the current interval immediately. It reports
// false when idle.
func (m *Machine) CompleteInterval() bool {
	if m.session == nil {
		return false
	}
	m.completeAt(m.clock())
	return true
}

// End stops the session early and returns its summary. An interval whose
// deadline already passed is completed first, the way Recover would, so
// a late End cannot turn a finished interval into partial credit. Minutes
// already spent in an unfinished focus interval are credited only when they
// reach the configured threshold.
func (m *Machine) End() (Summary, error) {
	if m.session == nil {
		return Summary{}, ErrIdle
	}

	now := m.clock()
	if _, ended, natural := m.catchUp(now); natural {
		return ended, nil
	}
	summary := m.summary(EndManual, now, m.partialCredit(now))
	m.session = nil
	m.listener.OnSessionEnded(summary)
	m.notifyState()
	return summary, nil
}

// Recover adopts a session loaded from storage and completes the interval
// (or, with CatchUpAll, every interval) whose deadline passed while nothing
// was ticking. It reports whether the adopted session was changed.
func (m *Machine) Recover(s *models.Session) bool {
	m.session = s.Clone()

	changed, _, _ := m.catchUp(m.clock())
	if !changed {
		m.notifyState()
	}
	return changed
}

// catchUp completes overdue intervals according to the catch-up policy. It
// reports whether anything was completed and, when that ended the session,
// the natural-end summary.
func (m *Machine) catchUp(now time.Time) (changed bool, ended Summary, natural bool) {
	switch m.cfg.CatchUp {
	case CatchUpAll:
		for m.overdue(now) {
			ended, natural = m.completeAt(m.session.EndTimestamp)
			changed = true
		}
	default:
		if m.overdue(now) {
			ended, natural = m.completeAt(now)
			changed = true
		}
	}
	return changed, ended, natural
}

// Discard drops the in-memory session without a summary. It is used when
// another view ended the session. It reports whether a session was held.
func (m *Machine) Discard() bool {
	if m.session == nil {
		return false
	}
	m.session = nil
	m.notifyState()
	return true
}

func (m *Machine) overdue(now time.Time) bool {
	s := m.session
	return s != nil && !s.Paused && !now.Before(s.EndTimestamp)
}

// completeAt records the finished interval and arms the next one with its
// deadline measured from at. When that was the last focus interval it ends
// the session and returns the summary.
func (m *Machine) completeAt(at time.Time) (Summary, bool) {
	s := m.session
	finished := s.Mode

	// Records are numbered from one; a break carries the number of the focus
	// interval that follows it.
	s.History = append(s.History, models.HistoryRecord{
		Mode:          finished,
		CompletedAt:   at,
		IntervalIndex: s.IntervalIndex + 1,
	})
	if finished == models.ModeFocus {
		s.CompletedIntervals++
		s.IntervalIndex++
	}
	m.listener.OnIntervalCompleted(finished)

	if finished == models.ModeFocus && s.CompletedIntervals >= s.TotalIntervals {
		summary := m.summary(EndNatural, at, 0)
		m.session = nil
		m.listener.OnSessionEnded(summary)
		m.notifyState()
		return summary, true
	}

	next, d := m.cfg.Next(finished, s.CompletedIntervals)
	s.Mode = next
	s.CurrentIntervalSec = seconds(d)
	s.EndTimestamp = at.Add(d)
	s.Paused = false
	s.PausedAt = nil
	s.RemainingSeconds = nil
	m.notifyState()
	return Summary{}, false
}

func (m *Machine) partialCredit(now time.Time) int {
	s := m.session
	if s.Mode != models.ModeFocus {
		return 0
	}

	duration := s.IntervalDuration()
	var spent time.Duration
	if s.Paused && s.RemainingSeconds != nil {
		spent = duration - time.Duration(*s.RemainingSeconds)*time.Second
	} else {
		spent = now.Sub(s.EndTimestamp.Add(-duration))
	}
	if spent <= 0 {
		return 0
	}
	spent = min(spent, duration)

	minutes := int(spent / time.Minute)
	if time.Duration(minutes)*time.Minute < m.cfg.PartialCreditThreshold {
		return 0
	}
	return minutes
}

func (m *Machine) summary(reason EndReason, at time.Time, partial int) Summary {
	s := m.session
	return Summary{
		Reason:               reason,
		Elapsed:              at.Sub(s.StartedAt),
		CompletedIntervals:   s.CompletedIntervals,
		Tasks:                append([]models.Task(nil), s.TasksSnapshot...),
		PartialCreditMinutes: partial,
		History:              append([]models.HistoryRecord(nil), s.History...),
	}
}

func (m *Machine) snapshotAt(now time.Time) Snapshot {
	s := m.session
	if s == nil {
		return Snapshot{
			State:            StateIdle,
			Mode:             models.ModeFocus,
			Label:            "Ready",
			RemainingSeconds: seconds(m.cfg.Focus),
		}
	}

	snap := Snapshot{
		State:              StateRunning,
		Mode:               s.Mode,
		Label:              s.Mode.Label(),
		CompletedIntervals: s.CompletedIntervals,
		IntervalIndex:      s.IntervalIndex,
		TotalIntervals:     s.TotalIntervals,
	}
	if s.Paused {
		snap.State = StatePaused
		snap.Label = "Paused"
		if s.RemainingSeconds != nil {
			snap.RemainingSeconds = *s.RemainingSeconds
		} else {
			snap.RemainingSeconds = max(0, roundSeconds(s.EndTimestamp.Sub(now)))
		}
	} else {
		snap.RemainingSeconds = max(0, ceilSeconds(s.EndTimestamp.Sub(now)))
	}

	if s.CurrentIntervalSec > 0 {
		done := float64(s.CurrentIntervalSec-snap.RemainingSeconds) / float64(s.CurrentIntervalSec)
		snap.Percent = min(100, max(0, int(math.Round(done*100))))
	}
	return snap
}

func (m *Machine) notifyState() {
	change := StateChange{State: m.State()}
	if s := m.session; s != nil {
		change.CompletedIntervals = s.CompletedIntervals
		change.IntervalIndex = s.IntervalIndex
		change.TotalIntervals = s.TotalIntervals
	}
	m.listener.OnSessionStateChanged(change)
}

func seconds(d time.Duration) int { return int(d / time.Second) }

func roundSeconds(d time.Duration) int { return int(math.Round(d.Seconds())) }

func ceilSeconds(d time.Duration) int { return int(math.Ceil(d.Seconds())) }
