package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joescharf/pomo/internal/models"
	"github.com/joescharf/pomo/internal/store"
)

// Tasks returns a copy of the task list in display order.
func (a *App) Tasks() []models.Task {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.Task(nil), a.tasks...)
}

// PlanEstimate returns the planned length of a session over the current
// task list, breaks included.
func (a *App) PlanEstimate() (int, time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	total := models.TotalEstimate(a.tasks)
	return total, a.cfg.EstimatePlan(total)
}

// AddTask appends a task to the list.
func (a *App) AddTask(ctx context.Context, title string, estimate int) (models.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.Task{}, &ValidationError{Field: "title", Message: "title is required"}
	}
	if err := validateEstimate(estimate); err != nil {
		return models.Task{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	t := models.Task{ID: store.NewID(), Title: title, Estimate: estimate}
	a.tasks = append(a.tasks, t)
	a.saveTasks(ctx)
	a.notify(ctx)
	return t, nil
}

// SetTaskDone marks a task done or not done.
func (a *App) SetTaskDone(ctx context.Context, id string, done bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	i, err := a.indexOf(id)
	if err != nil {
		return err
	}
	a.tasks[i].Done = done
	a.saveTasks(ctx)
	a.notify(ctx)
	return nil
}

// SetTaskEstimate changes a task's estimate. A running session keeps the
// total it started with.
func (a *App) SetTaskEstimate(ctx context.Context, id string, estimate int) error {
	if err := validateEstimate(estimate); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	i, err := a.indexOf(id)
	if err != nil {
		return err
	}
	a.tasks[i].Estimate = estimate
	a.saveTasks(ctx)
	a.notify(ctx)
	return nil
}

// DeleteTask removes a task. The snapshot held by a running session is
// unaffected.
func (a *App) DeleteTask(ctx context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	i, err := a.indexOf(id)
	if err != nil {
		return err
	}
	a.tasks = append(a.tasks[:i:i], a.tasks[i+1:]...)
	a.saveTasks(ctx)
	a.notify(ctx)
	return nil
}

// ReorderTasks puts the list in the order given by ids, which must name
// every task exactly once.
func (a *App) ReorderTasks(ctx context.Context, ids []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(ids) != len(a.tasks) {
		return &ValidationError{
			Field:   "ids",
			Message: fmt.Sprintf("expected %d task ids, got %d", len(a.tasks), len(ids)),
		}
	}

	byID := make(map[string]models.Task, len(a.tasks))
	for _, t := range a.tasks {
		byID[t.ID] = t
	}

	ordered := make([]models.Task, 0, len(ids))
	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			return &ValidationError{Field: "ids", Message: fmt.Sprintf("unknown or repeated task id %q", id)}
		}
		delete(byID, id)
		ordered = append(ordered, t)
	}

	a.tasks = ordered
	a.saveTasks(ctx)
	a.notify(ctx)
	return nil
}

// FindTask resolves a task by exact id, by a unique id suffix (the short id
// shown in listings), or by its 1-based position in the list.
func (a *App) FindTask(ref string) (models.Task, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ref = strings.TrimSpace(ref)
	if ref == "" {
		return models.Task{}, &ValidationError{Field: "task", Message: "task reference is required"}
	}

	if pos, err := strconv.Atoi(ref); err == nil && len(ref) < 8 {
		if pos < 1 || pos > len(a.tasks) {
			return models.Task{}, fmt.Errorf("%w: no task at position %d", ErrTaskNotFound, pos)
		}
		return a.tasks[pos-1], nil
	}

	var match *models.Task
	for i := range a.tasks {
		t := &a.tasks[i]
		if t.ID == ref {
			return *t, nil
		}
		if strings.HasSuffix(strings.ToUpper(t.ID), strings.ToUpper(ref)) {
			if match != nil {
				return models.Task{}, &ValidationError{Field: "task", Message: fmt.Sprintf("%q matches more than one task", ref)}
			}
			match = t
		}
	}
	if match == nil {
		return models.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, ref)
	}
	return *match, nil
}

func (a *App) indexOf(id string) (int, error) {
	for i, t := range a.tasks {
		if t.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
}

func validateEstimate(n int) error {
	if n < 1 {
		return &ValidationError{Field: "estimate", Message: "estimate must be at least 1 interval"}
	}
	return nil
}
