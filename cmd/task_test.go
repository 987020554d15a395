package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/pomo/internal/app"
)

func listTitles(t *testing.T) []string {
	t.Helper()
	a, _, err := openApp(context.Background())
	require.NoError(t, err)
	var titles []string
	for _, task := range a.Tasks() {
		titles = append(titles, task.Title)
	}
	return titles
}

func TestTaskAdd(t *testing.T) {
	_, out := testEnv(t)
	ctx := context.Background()

	require.NoError(t, taskAddRun(ctx, "write report", 3))
	assert.Contains(t, out.String(), `Added "write report" (3 intervals)`)
	assert.Equal(t, []string{"write report"}, listTitles(t))
}

func TestTaskAdd_Invalid(t *testing.T) {
	testEnv(t)
	ctx := context.Background()

	err := taskAddRun(ctx, "   ", 1)
	require.Error(t, err)
	assert.True(t, app.IsValidation(err))

	err = taskAddRun(ctx, "write", 0)
	require.Error(t, err)
	assert.True(t, app.IsValidation(err))
	assert.Empty(t, listTitles(t))
}

func TestTaskList(t *testing.T) {
	_, out := testEnv(t)
	ctx := context.Background()

	require.NoError(t, taskListRun(ctx))
	assert.Contains(t, out.String(), "No tasks")

	require.NoError(t, taskAddRun(ctx, "write report", 3))
	require.NoError(t, taskAddRun(ctx, "review", 2))
	out.Reset()

	require.NoError(t, taskListRun(ctx))
	assert.Contains(t, out.String(), "write report")
	assert.Contains(t, out.String(), "review")
	assert.Contains(t, out.String(), "5 intervals planned, about 2h 35m")
}

func TestTaskDoneUndo(t *testing.T) {
	testEnv(t)
	ctx := context.Background()
	require.NoError(t, taskAddRun(ctx, "write report", 1))

	require.NoError(t, taskDoneRun(ctx, "1", true))
	a, _, err := openApp(ctx)
	require.NoError(t, err)
	assert.True(t, a.Tasks()[0].Done)

	require.NoError(t, taskDoneRun(ctx, "1", false))
	a.Reload(ctx)
	assert.False(t, a.Tasks()[0].Done)
}

func TestTaskDone_UnknownRef(t *testing.T) {
	testEnv(t)

	err := taskDoneRun(context.Background(), "4", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, app.ErrTaskNotFound)
	assert.Contains(t, err.Error(), "4")
}

func TestTaskEstimate(t *testing.T) {
	testEnv(t)
	ctx := context.Background()
	require.NoError(t, taskAddRun(ctx, "write report", 1))

	require.NoError(t, taskEstimateRun(ctx, "1", 4))
	a, _, err := openApp(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, a.Tasks()[0].Estimate)

	err = taskEstimateRun(ctx, "1", 0)
	assert.True(t, app.IsValidation(err))
}

func TestTaskRm(t *testing.T) {
	testEnv(t)
	ctx := context.Background()
	require.NoError(t, taskAddRun(ctx, "first", 1))
	require.NoError(t, taskAddRun(ctx, "second", 1))

	require.NoError(t, taskRmRun(ctx, "1"))
	assert.Equal(t, []string{"second"}, listTitles(t))
}

func TestTaskReorder(t *testing.T) {
	testEnv(t)
	ctx := context.Background()
	require.NoError(t, taskAddRun(ctx, "first", 1))
	require.NoError(t, taskAddRun(ctx, "second", 1))
	require.NoError(t, taskAddRun(ctx, "third", 1))

	require.NoError(t, taskReorderRun(ctx, []string{"3", "1", "2"}))
	assert.Equal(t, []string{"third", "first", "second"}, listTitles(t))
}

func TestTaskReorder_Incomplete(t *testing.T) {
	testEnv(t)
	ctx := context.Background()
	require.NoError(t, taskAddRun(ctx, "first", 1))
	require.NoError(t, taskAddRun(ctx, "second", 1))

	err := taskReorderRun(ctx, []string{"2"})
	require.Error(t, err)
	assert.True(t, app.IsValidation(err))
	assert.Equal(t, []string{"first", "second"}, listTitles(t))
}
