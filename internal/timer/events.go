package timer

import (
	"time"

	"github.com/joescharf/pomo/internal/models"
)

// State is the coarse lifecycle state of the machine.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePaused  State = "paused"
)

// EndReason tells why a session ended.
type EndReason string

const (
	EndNatural EndReason = "natural"
	EndManual  EndReason = "manual"
)

// Snapshot is the displayable state at one instant.
type Snapshot struct {
	State              State
	Mode               models.Mode
	Label              string
	RemainingSeconds   int
	Percent            int
	CompletedIntervals int
	IntervalIndex      int
	TotalIntervals     int
}

// CurrentInterval returns the 1-based number of the focus interval shown as
// in progress, or 0 when idle.
func (s Snapshot) CurrentInterval() int {
	if s.State == StateIdle || s.TotalIntervals == 0 {
		return 0
	}
	return min(s.IntervalIndex+1, s.TotalIntervals)
}

// StateChange is emitted whenever the session lifecycle or counters move.
type StateChange struct {
	State              State
	CompletedIntervals int
	IntervalIndex      int
	TotalIntervals     int
}

// Summary describes a finished session.
type Summary struct {
	Reason               EndReason
	Elapsed              time.Duration
	CompletedIntervals   int
	Tasks                []models.Task
	PartialCreditMinutes int
	History              []models.HistoryRecord
}

// Listener receives the events the machine emits. Calls happen on the
// goroutine that invoked the machine operation.
type Listener interface {
	OnTick(snap Snapshot)
	OnIntervalCompleted(mode models.Mode)
	OnSessionEnded(summary Summary)
	OnSessionStateChanged(change StateChange)
}

// NopListener ignores every event. Embed it to implement only some methods.
type NopListener struct{}

func (NopListener) OnTick(Snapshot)                   {}
func (NopListener) OnIntervalCompleted(models.Mode)   {}
func (NopListener) OnSessionEnded(Summary)            {}
func (NopListener) OnSessionStateChanged(StateChange) {}

// Listeners fans every event out to each listener in order.
type Listeners []Listener

func (ls Listeners) OnTick(snap Snapshot) {
	for _, l := range ls {
		l.OnTick(snap)
	}
}

func (ls Listeners) OnIntervalCompleted(mode models.Mode) {
	for _, l := range ls {
		l.OnIntervalCompleted(mode)
	}
}

func (ls Listeners) OnSessionEnded(summary Summary) {
	for _, l := range ls {
		l.OnSessionEnded(summary)
	}
}

func (ls Listeners) OnSessionStateChanged(change StateChange) {
	for _, l := range ls {
		l.OnSessionStateChanged(change)
	}
}
