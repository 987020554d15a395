package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joescharf/pomo/internal/models"
	"github.com/joescharf/pomo/internal/timer"
)

const eventBufferSize = 64

// SnapshotMsg carries the display state after a scheduler tick.
type SnapshotMsg timer.Snapshot

// IntervalCompletedMsg is sent when an interval finishes.
type IntervalCompletedMsg struct{ Mode models.Mode }

// SessionEndedMsg is sent when a session ends, naturally or not.
type SessionEndedMsg struct{ Summary timer.Summary }

// StateChangedMsg is sent when the session lifecycle or counters move.
type StateChangedMsg timer.StateChange

// Events turns timer events into tea messages. It never blocks the App:
// when the view falls behind, events are dropped and the next refresh
// catches up.
type Events struct {
	ch chan tea.Msg
}

// NewEvents returns an empty event queue.
func NewEvents() *Events {
	return &Events{ch: make(chan tea.Msg, eventBufferSize)}
}

func (e *Events) OnTick(s timer.Snapshot)                   { e.send(SnapshotMsg(s)) }
func (e *Events) OnIntervalCompleted(m models.Mode)         { e.send(IntervalCompletedMsg{Mode: m}) }
func (e *Events) OnSessionEnded(s timer.Summary)            { e.send(SessionEndedMsg{Summary: s}) }
func (e *Events) OnSessionStateChanged(c timer.StateChange) { e.send(StateChangedMsg(c)) }

func (e *Events) send(msg tea.Msg) {
	select {
	case e.ch <- msg:
	default:
	}
}

// wait returns a command that delivers the next queued event.
func (e *Events) wait() tea.Cmd {
	return func() tea.Msg {
		return <-e.ch
	}
}
