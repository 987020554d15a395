package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/pomo/internal/app"
	"github.com/joescharf/pomo/internal/output"
	"github.com/joescharf/pomo/internal/timer"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a session over the current task list",
	Long: `Start a pomodoro session. The session runs one focus interval for every
estimated unit across all tasks, with breaks between them.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startRun(cmd.Context())
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the running interval",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return pauseRun(cmd.Context())
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused interval",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return resumeRun(cmd.Context())
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Pause a running interval or resume a paused one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return toggleRun(cmd.Context())
	},
}

var endCmd = &cobra.Command{
	Use:   "end",
	Short: "End the session early and show its summary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return endRun(cmd.Context())
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current timer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return statusRun(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(endCmd)
	rootCmd.AddCommand(statusCmd)
}

func startRun(ctx context.Context) error {
	a, _, err := openApp(ctx)
	if err != nil {
		return err
	}

	if err := a.Start(ctx); err != nil {
		switch {
		case errors.Is(err, timer.ErrNoIntervals):
			return fmt.Errorf("no estimated intervals: add a task first with 'pomo task add <title> --estimate N'")
		case errors.Is(err, timer.ErrSessionActive):
			return fmt.Errorf("a session is already in progress (see 'pomo status')")
		default:
			return err
		}
	}

	total, plan := a.PlanEstimate()
	ui.Success("Session started: %d intervals, about %s", total, output.Plan(plan))
	fmt.Fprintln(ui.Out, output.TimerLine(a.Snapshot()))
	return nil
}

func pauseRun(ctx context.Context) error {
	a, _, err := openApp(ctx)
	if err != nil {
		return err
	}

	if !a.Pause(ctx) {
		return noSession(a, "pause")
	}
	ui.Success("Paused")
	fmt.Fprintln(ui.Out, output.TimerLine(a.Snapshot()))
	return nil
}

func resumeRun(ctx context.Context) error {
	a, _, err := openApp(ctx)
	if err != nil {
		return err
	}

	if !a.Resume(ctx) {
		return noSession(a, "resume")
	}
	ui.Success("Resumed")
	fmt.Fprintln(ui.Out, output.TimerLine(a.Snapshot()))
	return nil
}

func toggleRun(ctx context.Context) error {
	a, _, err := openApp(ctx)
	if err != nil {
		return err
	}

	switch a.Toggle(ctx) {
	case timer.StatePaused:
		ui.Success("Paused")
	case timer.StateRunning:
		ui.Success("Resumed")
	default:
		return fmt.Errorf("no session in progress (start one with 'pomo start')")
	}
	fmt.Fprintln(ui.Out, output.TimerLine(a.Snapshot()))
	return nil
}

func endRun(ctx context.Context) error {
	a, _, err := openApp(ctx)
	if err != nil {
		return err
	}

	summary, err := a.End(ctx)
	if err != nil {
		if errors.Is(err, timer.ErrIdle) {
			return fmt.Errorf("no session in progress")
		}
		return err
	}
	ui.Summary(summary)
	return nil
}

func statusRun(ctx context.Context) error {
	a, _, err := openApp(ctx)
	if err != nil {
		return err
	}

	snap := a.Snapshot()
	fmt.Fprintln(ui.Out, output.TimerLine(snap))
	if snap.State == timer.StateIdle {
		total, plan := a.PlanEstimate()
		if total > 0 {
			ui.Info("%d intervals planned, about %s. Run 'pomo start' to begin.", total, output.Plan(plan))
		}
		return nil
	}
	ui.VerboseLog("completed %d of %d focus intervals", snap.CompletedIntervals, snap.TotalIntervals)
	return nil
}

// noSession explains why pause or resume had nothing to act on.
func noSession(a *app.App, verb string) error {
	switch a.State() {
	case timer.StateIdle:
		return fmt.Errorf("no session in progress")
	case timer.StatePaused:
		return fmt.Errorf("cannot %s: session is already paused", verb)
	default:
		return fmt.Errorf("cannot %s: session is running", verb)
	}
}
