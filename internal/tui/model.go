// Package tui implements `pomo watch`, a live full-screen view of the
// session timer.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joescharf/pomo/internal/app"
	"github.com/joescharf/pomo/internal/models"
	"github.com/joescharf/pomo/internal/output"
	"github.com/joescharf/pomo/internal/timer"
)

// refreshInterval repaints tasks and the clock even when no timer event
// arrives, e.g. after another view edited the task list while idle.
const refreshInterval = time.Second

type refreshMsg time.Time

// Model is the bubbletea model of the live view.
type Model struct {
	app      *app.App
	events   *Events
	keys     KeyMap
	help     help.Model
	progress progress.Model
	bell     func()

	snap       timer.Snapshot
	tasks      []models.Task
	summary    *timer.Summary
	summarySeq uint64
	notice     string
	err        string
	title      string
	width      int
}

// Option customizes a Model.
type Option func(*Model)

// WithBell replaces the terminal bell rung when an interval completes.
func WithBell(bell func()) Option {
	return func(m *Model) {
		if bell != nil {
			m.bell = bell
		}
	}
}

// New creates the live view over a. It registers itself as a listener, so
// build it before the scheduler starts ticking.
func New(a *app.App, opts ...Option) *Model {
	m := &Model{
		app:      a,
		events:   NewEvents(),
		keys:     DefaultKeyMap(),
		help:     help.New(),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		bell:     func() { _, _ = fmt.Fprint(os.Stderr, "\a") },
	}
	for _, opt := range opts {
		opt(m)
	}
	a.AddListener(m.events)
	_, m.summarySeq = a.LastSummary()
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.events.wait(), refresh(), m.titleCmd())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.progress.Width = max(10, min(60, msg.Width-8))
		return m, nil

	case tea.FocusMsg:
		// Regaining focus forces an immediate tick.
		m.snap = m.app.Tick(context.Background())
		m.tasks = m.app.Tasks()
		return m, m.titleCmd()

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case refreshMsg:
		m.refresh()
		return m, tea.Batch(refresh(), m.titleCmd())

	case SnapshotMsg:
		m.snap = timer.Snapshot(msg)
		return m, tea.Batch(m.events.wait(), m.titleCmd())

	case StateChangedMsg:
		m.refresh()
		return m, tea.Batch(m.events.wait(), m.titleCmd())

	case IntervalCompletedMsg:
		m.bell()
		m.notice = msg.Mode.Label() + " finished"
		return m, m.events.wait()

	case SessionEndedMsg:
		s := msg.Summary
		m.summary = &s
		m.refresh()
		return m, tea.Batch(m.events.wait(), m.titleCmd())
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	ctx := context.Background()
	m.err = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Toggle):
		if m.app.State() != timer.StateIdle {
			m.app.Toggle(ctx)
		}

	case key.Matches(msg, m.keys.Start):
		m.summary = nil
		m.notice = ""
		if err := m.app.Start(ctx); err != nil {
			m.err = startError(err)
		}

	case key.Matches(msg, m.keys.End):
		if _, err := m.app.End(ctx); err != nil {
			m.err = err.Error()
		}
	}

	m.refresh()
	return m.titleCmd()
}

func startError(err error) string {
	switch {
	case errors.Is(err, timer.ErrNoIntervals):
		return "Add a task with an estimate first: pomo task add <title> --estimate N"
	default:
		return err.Error()
	}
}

// refresh re-reads the App. It also picks up a session summary whose event
// was dropped while the view was behind.
func (m *Model) refresh() {
	m.snap = m.app.Snapshot()
	m.tasks = m.app.Tasks()
	if s, seq := m.app.LastSummary(); seq > m.summarySeq {
		m.summarySeq = seq
		m.summary = &s
	}
}

// titleCmd sets the terminal title when it changed since the last call.
func (m *Model) titleCmd() tea.Cmd {
	title := output.Title(m.snap)
	if title == m.title {
		return nil
	}
	m.title = title
	return tea.SetWindowTitle(title)
}

func refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("pomo"))
	b.WriteString("\n")
	b.WriteString(m.clockView())
	b.WriteString("\n")

	if m.snap.State != timer.StateIdle {
		b.WriteString("  ")
		b.WriteString(m.progress.ViewAs(float64(m.snap.Percent) / 100))
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  Interval %d of %d · %d completed",
			m.snap.CurrentInterval(), m.snap.TotalIntervals, m.snap.CompletedIntervals)))
		b.WriteString("\n")
	}

	if m.notice != "" {
		b.WriteString(mutedStyle.Render("  " + m.notice))
		b.WriteString("\n")
	}
	if m.err != "" {
		b.WriteString(errorStyle.Render("  " + m.err))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.summary != nil {
		b.WriteString(panelStyle.Render(summaryView(*m.summary)))
	} else {
		b.WriteString(panelStyle.Render(m.tasksView()))
	}
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}

func (m *Model) clockView() string {
	style := clockStyle.Foreground(modeColor(m.snap.Mode))
	label := m.snap.Label
	if m.snap.State == timer.StatePaused {
		style = clockStyle.Foreground(colorPaused)
		label = "Paused · " + m.snap.Mode.Label()
	}
	return lipgloss.JoinHorizontal(lipgloss.Center,
		style.Render(output.Clock(m.snap.RemainingSeconds)),
		label,
	)
}

func (m *Model) tasksView() string {
	if len(m.tasks) == 0 {
		return mutedStyle.Render("No tasks. Add one with: pomo task add <title> --estimate N")
	}

	var b strings.Builder
	for i, t := range m.tasks {
		line := fmt.Sprintf("%d. %s (%d)", i+1, t.Title, t.Estimate)
		if t.Done {
			line = doneStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	total := models.TotalEstimate(m.tasks)
	plan := m.app.Config().EstimatePlan(total)
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%d intervals · about %s", total, output.Plan(plan))))
	return b.String()
}

func summaryView(s timer.Summary) string {
	var b strings.Builder
	if s.Reason == timer.EndNatural {
		b.WriteString("Session complete\n")
	} else {
		b.WriteString("Session ended\n")
	}
	fmt.Fprintf(&b, "Duration: %s\n", output.Elapsed(s.Elapsed))
	fmt.Fprintf(&b, "Intervals: %d", s.CompletedIntervals)
	if s.PartialCreditMinutes > 0 {
		fmt.Fprintf(&b, " (+%d min)", s.PartialCreditMinutes)
	}
	for _, line := range output.SummaryTaskLines(s.Tasks) {
		b.WriteString("\n• ")
		b.WriteString(line)
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("press s to start again"))
	return b.String()
}

// Run starts the live view and blocks until the user quits.
func Run(ctx context.Context, a *app.App) error {
	m := New(a)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithReportFocus(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
