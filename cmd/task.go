package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/pomo/internal/app"
)

var taskEstimate int

var taskCmd = &cobra.Command{
	Use:     "task",
	Aliases: []string{"tasks", "t"},
	Short:   "Manage the task list",
	Long: `Manage the task list a session runs over.

Tasks may be referred to by their 1-based position, their full id, or the
short id shown by 'pomo task list'.

Running bare 'pomo task' is the same as 'pomo task list'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskListRun(cmd.Context())
	},
}

var taskAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a task to the end of the list",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskAddRun(cmd.Context(), strings.Join(args, " "), taskEstimate)
	},
}

var taskListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks with the planned session length",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskListRun(cmd.Context())
	},
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <task>",
	Short: "Mark a task done",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskDoneRun(cmd.Context(), args[0], true)
	},
}

var taskUndoCmd = &cobra.Command{
	Use:   "undo <task>",
	Short: "Mark a task not done",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskDoneRun(cmd.Context(), args[0], false)
	},
}

var taskEstimateCmd = &cobra.Command{
	Use:   "estimate <task> <intervals>",
	Short: "Change a task's estimate",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("estimate must be a whole number, got %q", args[1])
		}
		return taskEstimateRun(cmd.Context(), args[0], n)
	},
}

var taskRmCmd = &cobra.Command{
	Use:     "rm <task>",
	Aliases: []string{"delete"},
	Short:   "Delete a task",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskRmRun(cmd.Context(), args[0])
	},
}

var taskReorderCmd = &cobra.Command{
	Use:   "reorder <task>...",
	Short: "Reorder the list; name every task once, in the new order",
	Example: `  # Move the third task to the top of a three-task list
  pomo task reorder 3 1 2`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskReorderRun(cmd.Context(), args)
	},
}

func init() {
	taskAddCmd.Flags().IntVarP(&taskEstimate, "estimate", "e", 1, "Estimated focus intervals")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskDoneCmd)
	taskCmd.AddCommand(taskUndoCmd)
	taskCmd.AddCommand(taskEstimateCmd)
	taskCmd.AddCommand(taskRmCmd)
	taskCmd.AddCommand(taskReorderCmd)
	rootCmd.AddCommand(taskCmd)
}

func taskAddRun(ctx context.Context, title string, estimate int) error {
	a, _, err := openApp(ctx)
	if err != nil {
		return err
	}

	task, err := a.AddTask(ctx, title, estimate)
	if err != nil {
		return err
	}
	ui.Success("Added %q (%d intervals)", task.Title, task.Estimate)
	return nil
}

func taskListRun(ctx context.Context) error {
	a, _, err := openApp(ctx)
	if err != nil {
		return err
	}

	_, plan := a.PlanEstimate()
	return ui.Tasks(a.Tasks(), plan)
}

func taskDoneRun(ctx context.Context, ref string, done bool) error {
	a, _, err := openApp(ctx)
	if err != nil {
		return err
	}

	task, err := a.FindTask(ref)
	if err != nil {
		return err
	}
	if err := a.SetTaskDone(ctx, task.ID, done); err != nil {
		return err
	}
	if done {
		ui.Success("Done: %s", task.Title)
	} else {
		ui.Success("Not done: %s", task.Title)
	}
	return nil
}

func taskEstimateRun(ctx context.Context, ref string, estimate int) error {
	a, _, err := openApp(ctx)
	if err != nil {
		return err
	}

	task, err := a.FindTask(ref)
	if err != nil {
		return err
	}
	if err := a.SetTaskEstimate(ctx, task.ID, estimate); err != nil {
		return err
	}
	ui.Success("%s: %d intervals", task.Title, estimate)
	return nil
}

func taskRmRun(ctx context.Context, ref string) error {
	a, _, err := openApp(ctx)
	if err != nil {
		return err
	}

	task, err := a.FindTask(ref)
	if err != nil {
		return err
	}
	if err := a.DeleteTask(ctx, task.ID); err != nil {
		return err
	}
	ui.Success("Deleted %q", task.Title)
	return nil
}

func taskReorderRun(ctx context.Context, refs []string) error {
	a, _, err := openApp(ctx)
	if err != nil {
		return err
	}

	ids, err := resolveTaskIDs(a, refs)
	if err != nil {
		return err
	}
	if err := a.ReorderTasks(ctx, ids); err != nil {
		return err
	}
	_, plan := a.PlanEstimate()
	return ui.Tasks(a.Tasks(), plan)
}

// resolveTaskIDs maps every reference to a full task id, all against the
// order the list had before reordering.
func resolveTaskIDs(a *app.App, refs []string) ([]string, error) {
	ids := make([]string, len(refs))
	for i, ref := range refs {
		task, err := a.FindTask(ref)
		if err != nil {
			return nil, err
		}
		ids[i] = task.ID
	}
	return ids, nil
}
