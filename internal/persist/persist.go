// Package persist stores the task list and the active session as JSON
// records in the local key-value store.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/joescharf/pomo/internal/models"
	"github.com/joescharf/pomo/internal/store"
)

// Record keys. The version suffix changes whenever the JSON shape does.
const (
	TasksKey   = "pomodoro.tasks.v1"
	SessionKey = "pomodoro.session.v1"
)

// ErrCorrupt is returned when a stored record cannot be decoded.
var ErrCorrupt = errors.New("stored record is corrupt")

// Keys lists every record key the adapter owns.
func Keys() []string { return []string{TasksKey, SessionKey} }

// Adapter reads and writes pomo's two records.
type Adapter struct {
	store store.Store
}

// New returns an adapter over s.
func New(s store.Store) *Adapter {
	return &Adapter{store: s}
}

// LoadTasks returns the stored task list, or an empty list when none was
// ever saved.
func (a *Adapter) LoadTasks(ctx context.Context) ([]models.Task, error) {
	rec, err := a.store.Get(ctx, TasksKey)
	if errors.Is(err, store.ErrNotFound) {
		return []models.Task{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	var tasks []models.Task
	if err := json.Unmarshal([]byte(rec.Value), &tasks); err != nil {
		return nil, fmt.Errorf("load tasks: %w: %v", ErrCorrupt, err)
	}
	for i, t := range tasks {
		if t.ID == "" {
			return nil, fmt.Errorf("load tasks: %w: task %d has no id", ErrCorrupt, i)
		}
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

// SaveTasks replaces the stored task list and returns the record's new
// revision.
func (a *Adapter) SaveTasks(ctx context.Context, tasks []models.Task) (int64, error) {
	if tasks == nil {
		tasks = []models.Task{}
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return 0, fmt.Errorf("encode tasks: %w", err)
	}
	rev, err := a.store.Put(ctx, TasksKey, string(data))
	if err != nil {
		return 0, fmt.Errorf("save tasks: %w", err)
	}
	return rev, nil
}

// LoadSession returns the stored session, or nil when idle.
func (a *Adapter) LoadSession(ctx context.Context) (*models.Session, error) {
	rec, err := a.store.Get(ctx, SessionKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if rec.Value == "" || rec.Value == "null" {
		return nil, nil
	}

	s := &models.Session{}
	if err := json.Unmarshal([]byte(rec.Value), s); err != nil {
		return nil, fmt.Errorf("load session: %w: %v", ErrCorrupt, err)
	}
	if err := validateSession(s); err != nil {
		return nil, fmt.Errorf("load session: %w: %v", ErrCorrupt, err)
	}
	return s, nil
}

// SaveSession stores s and returns the record's revision. A nil session
// clears the record.
func (a *Adapter) SaveSession(ctx context.Context, s *models.Session) (int64, error) {
	if s == nil {
		return a.ClearSession(ctx)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return 0, fmt.Errorf("encode session: %w", err)
	}
	rev, err := a.store.Put(ctx, SessionKey, string(data))
	if err != nil {
		return 0, fmt.Errorf("save session: %w", err)
	}
	return rev, nil
}

// ClearSession removes the stored session and returns the record's
// revision, which only moves when there was something to remove.
func (a *Adapter) ClearSession(ctx context.Context) (int64, error) {
	rev, err := a.store.Delete(ctx, SessionKey)
	if err != nil {
		return 0, fmt.Errorf("clear session: %w", err)
	}
	return rev, nil
}

// Revisions returns the store revision of each owned key.
func (a *Adapter) Revisions(ctx context.Context) (map[string]int64, error) {
	revs, err := a.store.Revisions(ctx, Keys()...)
	if err != nil {
		return nil, fmt.Errorf("read revisions: %w", err)
	}
	return revs, nil
}

func validateSession(s *models.Session) error {
	switch s.Mode {
	case models.ModeFocus, models.ModeShortBreak, models.ModeLongBreak:
	default:
		return fmt.Errorf("unknown mode %q", s.Mode)
	}
	if s.TotalIntervals < 1 {
		return errors.New("total intervals must be at least 1")
	}
	if s.CompletedIntervals < 0 || s.CompletedIntervals > s.TotalIntervals {
		return fmt.Errorf("completed intervals %d out of range", s.CompletedIntervals)
	}
	if s.CurrentIntervalSec < 1 {
		return errors.New("interval duration must be positive")
	}
	if s.Paused && s.RemainingSeconds == nil {
		return errors.New("paused session has no remaining time")
	}
	return nil
}
