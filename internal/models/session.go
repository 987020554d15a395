package models

import "time"

// Mode is the kind of interval currently running.
type Mode string

const (
	ModeFocus      Mode = "focus"
	ModeShortBreak Mode = "short_break"
	ModeLongBreak  Mode = "long_break"
)

// Label returns the human-readable name of the mode.
func (m Mode) Label() string {
	switch m {
	case ModeFocus:
		return "Focus"
	case ModeShortBreak:
		return "Short break"
	case ModeLongBreak:
		return "Long break"
	default:
		return string(m)
	}
}

// IsBreak reports whether the mode is one of the break modes.
func (m Mode) IsBreak() bool {
	return m == ModeShortBreak || m == ModeLongBreak
}

// HistoryRecord is one completed interval.
type HistoryRecord struct {
	Mode          Mode      `json:"mode"`
	CompletedAt   time.Time `json:"completed_at"`
	IntervalIndex int       `json:"interval_index"`
}

// Session is the persisted state of a running or paused pomodoro session.
// A nil *Session means idle.
//
// While Paused is true, RemainingSeconds is authoritative and EndTimestamp
// is stale. While running, EndTimestamp is authoritative.
type Session struct {
	StartedAt          time.Time       `json:"started_at"`
	Mode               Mode            `json:"mode"`
	CompletedIntervals int             `json:"completed_intervals"`
	IntervalIndex      int             `json:"interval_index"`
	TotalIntervals     int             `json:"total_intervals"`
	CurrentIntervalSec int             `json:"current_interval_sec"`
	EndTimestamp       time.Time       `json:"end_timestamp"`
	Paused             bool            `json:"paused"`
	PausedAt           *time.Time      `json:"paused_at,omitempty"`
	RemainingSeconds   *int            `json:"remaining_seconds,omitempty"`
	TasksSnapshot      []Task          `json:"tasks_snapshot"`
	History            []HistoryRecord `json:"history"`
}

// Clone returns a deep copy so callers can never write through to the
// owner's state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.PausedAt != nil {
		at := *s.PausedAt
		c.PausedAt = &at
	}
	if s.RemainingSeconds != nil {
		rem := *s.RemainingSeconds
		c.RemainingSeconds = &rem
	}
	c.TasksSnapshot = append([]Task(nil), s.TasksSnapshot...)
	c.History = append([]HistoryRecord(nil), s.History...)
	return &c
}

// IntervalDuration returns the length of the interval currently running.
func (s *Session) IntervalDuration() time.Duration {
	return time.Duration(s.CurrentIntervalSec) * time.Second
}
