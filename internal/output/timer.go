package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/joescharf/pomo/internal/models"
	"github.com/joescharf/pomo/internal/timer"
)

// Clock formats seconds as MM:SS. Minutes may exceed 59.
func Clock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Elapsed formats a duration as "1h 5m", "12m" or "40s".
func Elapsed(d time.Duration) string {
	s := int(d / time.Second)
	h, m := s/3600, (s%3600)/60

	var parts []string
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if m > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	if h == 0 && m == 0 {
		parts = append(parts, fmt.Sprintf("%ds", s%60))
	}
	return strings.Join(parts, " ")
}

// Plan formats a planned duration rounded to minutes: "45 min" or "2h 35m".
func Plan(d time.Duration) string {
	mins := int(d.Round(time.Minute) / time.Minute)
	if mins < 60 {
		return fmt.Sprintf("%d min", mins)
	}
	h, m := mins/60, mins%60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

// Title returns the terminal window title for a snapshot.
func Title(s timer.Snapshot) string {
	switch s.State {
	case timer.StateIdle:
		return "Pomodoro · Ready"
	case timer.StatePaused:
		return "Paused · " + Clock(s.RemainingSeconds)
	default:
		return Clock(s.RemainingSeconds) + " · " + s.Label
	}
}

// TimerLine is the one-line status shown by the CLI.
func TimerLine(s timer.Snapshot) string {
	if s.State == timer.StateIdle {
		return fmt.Sprintf("%s  %s", bold(Clock(s.RemainingSeconds)), "Ready")
	}
	label := ModeColor(s.Mode, s.Mode.Label())
	if s.State == timer.StatePaused {
		label += " " + yellow("(paused)")
	}
	return fmt.Sprintf("%s  %s  %d%%  interval %d/%d",
		bold(Clock(s.RemainingSeconds)), label, s.Percent, s.CurrentInterval(), s.TotalIntervals)
}

// Tasks renders the task list as a table followed by the plan estimate.
func (u *UI) Tasks(tasks []models.Task, plan time.Duration) error {
	if len(tasks) == 0 {
		u.Info("No tasks. Add one with: pomo task add <title> --estimate N")
		return nil
	}

	table := u.Table([]string{"#", "ID", "TITLE", "ESTIMATE", "DONE"})
	for i, t := range tasks {
		done := ""
		if t.Done {
			done = green("✓")
		}
		title := t.Title
		if t.Done {
			title = cyan(title)
		}
		if err := table.Append([]string{
			fmt.Sprintf("%d", i+1),
			shortID(t.ID),
			title,
			fmt.Sprintf("%d", t.Estimate),
			done,
		}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintf(u.Out, "\n%d intervals planned, about %s\n", models.TotalEstimate(tasks), Plan(plan))
	return nil
}

// Summary prints the end-of-session report.
func (u *UI) Summary(s timer.Summary) {
	if s.Reason == timer.EndNatural {
		u.Success("Session complete")
	} else {
		u.Info("Session ended")
	}
	fmt.Fprintf(u.Out, "  Duration:   %s\n", Elapsed(s.Elapsed))
	fmt.Fprintf(u.Out, "  Intervals:  %d\n", s.CompletedIntervals)
	if s.PartialCreditMinutes > 0 {
		fmt.Fprintf(u.Out, "  Partial:    %d min of an unfinished interval\n", s.PartialCreditMinutes)
	}
	if len(s.Tasks) > 0 {
		fmt.Fprintln(u.Out, "  Tasks:")
		for _, line := range SummaryTaskLines(s.Tasks) {
			fmt.Fprintf(u.Out, "    %s\n", line)
		}
	}
}

// SummaryTaskLines describes each task of a session snapshot.
func SummaryTaskLines(tasks []models.Task) []string {
	lines := make([]string, len(tasks))
	for i, t := range tasks {
		line := fmt.Sprintf("%s · estimate %d", t.Title, t.Estimate)
		if t.Done {
			line += " · done"
		}
		lines[i] = line
	}
	return lines
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[len(id)-8:]
	}
	return id
}
