package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/pomo/internal/app"
	"github.com/joescharf/pomo/internal/models"
	"github.com/joescharf/pomo/internal/output"
	"github.com/joescharf/pomo/internal/timer"
)

// Server exposes a pomo view as MCP tools over stdio.
type Server struct {
	app     *app.App
	version string
}

// NewServer creates the MCP server wrapper around a.
func NewServer(a *app.App, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{app: a, version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("pomo", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.statusTool())
	srv.AddTool(s.startTool())
	srv.AddTool(s.pauseTool())
	srv.AddTool(s.resumeTool())
	srv.AddTool(s.endTool())
	srv.AddTool(s.listTasksTool())
	srv.AddTool(s.addTaskTool())
	srv.AddTool(s.setTaskDoneTool())
	srv.AddTool(s.setTaskEstimateTool())
	srv.AddTool(s.deleteTaskTool())
	srv.AddTool(s.reorderTasksTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Result shapes
// ---------------------------------------------------------------------------

type statusOut struct {
	State              timer.State `json:"state"`
	Mode               models.Mode `json:"mode"`
	Label              string      `json:"label"`
	RemainingSeconds   int         `json:"remaining_seconds"`
	Remaining          string      `json:"remaining"`
	Percent            int         `json:"percent"`
	Interval           int         `json:"interval"`
	TotalIntervals     int         `json:"total_intervals"`
	CompletedIntervals int         `json:"completed_intervals"`
}

func toStatus(snap timer.Snapshot) statusOut {
	return statusOut{
		State:              snap.State,
		Mode:               snap.Mode,
		Label:              snap.Label,
		RemainingSeconds:   snap.RemainingSeconds,
		Remaining:          output.Clock(snap.RemainingSeconds),
		Percent:            snap.Percent,
		Interval:           snap.CurrentInterval(),
		TotalIntervals:     snap.TotalIntervals,
		CompletedIntervals: snap.CompletedIntervals,
	}
}

type summaryOut struct {
	Reason               timer.EndReason `json:"reason"`
	ElapsedSeconds       int             `json:"elapsed_seconds"`
	Elapsed              string          `json:"elapsed"`
	CompletedIntervals   int             `json:"completed_intervals"`
	PartialCreditMinutes int             `json:"partial_credit_minutes"`
	Tasks                []models.Task   `json:"tasks"`
}

type tasksOut struct {
	Tasks          []models.Task `json:"tasks"`
	TotalIntervals int           `json:"total_intervals"`
	PlanMinutes    int           `json:"plan_minutes"`
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult maps app errors to tool errors the caller can act on.
func errorResult(action string, err error) *mcp.CallToolResult {
	var verr *app.ValidationError
	switch {
	case errors.As(err, &verr):
		return mcp.NewToolResultError(fmt.Sprintf("invalid input: %s", verr.Error()))
	case errors.Is(err, app.ErrTaskNotFound):
		return mcp.NewToolResultError(err.Error())
	default:
		return mcp.NewToolResultError(fmt.Sprintf("failed to %s: %v", action, err))
	}
}

// ---------------------------------------------------------------------------
// Session tools
// ---------------------------------------------------------------------------

// pomo_status
func (s *Server) statusTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pomo_status",
		mcp.WithDescription("Get the current pomodoro timer state: mode, remaining time, percent complete and interval counters."),
	)
	return tool, s.handleStatus
}

func (s *Server) handleStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(toStatus(s.app.Tick(ctx)))
}

// pomo_start
func (s *Server) startTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pomo_start",
		mcp.WithDescription("Start a pomodoro session. The session runs one focus interval per estimated unit across all tasks."),
	)
	return tool, s.handleStart
}

func (s *Server) handleStart(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.app.Start(ctx); err != nil {
		if errors.Is(err, timer.ErrSessionActive) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return errorResult("start session", err), nil
	}
	return jsonResult(toStatus(s.app.Snapshot()))
}

// pomo_pause
func (s *Server) pauseTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pomo_pause",
		mcp.WithDescription("Pause the running interval. Remaining time is frozen until resumed."),
	)
	return tool, s.handlePause
}

func (s *Server) handlePause(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.app.Tick(ctx)
	if !s.app.Pause(ctx) {
		return mcp.NewToolResultError("no running session to pause"), nil
	}
	return jsonResult(toStatus(s.app.Snapshot()))
}

// pomo_resume
func (s *Server) resumeTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pomo_resume",
		mcp.WithDescription("Resume a paused interval with the remaining time it had when paused."),
	)
	return tool, s.handleResume
}

func (s *Server) handleResume(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.app.Resume(ctx) {
		return mcp.NewToolResultError("no paused session to resume"), nil
	}
	return jsonResult(toStatus(s.app.Snapshot()))
}

// pomo_end
func (s *Server) endTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pomo_end",
		mcp.WithDescription("End the current session early and return its summary, including partial credit for an unfinished focus interval."),
	)
	return tool, s.handleEnd
}

func (s *Server) handleEnd(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.app.Tick(ctx)
	summary, err := s.app.End(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(summaryOut{
		Reason:               summary.Reason,
		ElapsedSeconds:       int(summary.Elapsed.Seconds()),
		Elapsed:              output.Elapsed(summary.Elapsed),
		CompletedIntervals:   summary.CompletedIntervals,
		PartialCreditMinutes: summary.PartialCreditMinutes,
		Tasks:                summary.Tasks,
	})
}

// ---------------------------------------------------------------------------
// Task tools
// ---------------------------------------------------------------------------

// pomo_list_tasks
func (s *Server) listTasksTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pomo_list_tasks",
		mcp.WithDescription("List tasks in order with their estimates (in focus intervals), done flags, and the planned session length."),
	)
	return tool, s.handleListTasks
}

func (s *Server) handleListTasks(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.tasksResult()
}

func (s *Server) tasksResult() (*mcp.CallToolResult, error) {
	tasks := s.app.Tasks()
	total, plan := s.app.PlanEstimate()
	return jsonResult(tasksOut{
		Tasks:          tasks,
		TotalIntervals: total,
		PlanMinutes:    int(plan.Minutes()),
	})
}

// pomo_add_task
func (s *Server) addTaskTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pomo_add_task",
		mcp.WithDescription("Add a task to the end of the list."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
		mcp.WithNumber("estimate", mcp.Description("Estimated focus intervals (default 1)")),
	)
	return tool, s.handleAddTask
}

func (s *Server) handleAddTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: title"), nil
	}
	estimate := request.GetInt("estimate", 1)

	task, err := s.app.AddTask(ctx, title, estimate)
	if err != nil {
		return errorResult("add task", err), nil
	}
	return jsonResult(task)
}

// pomo_set_task_done
func (s *Server) setTaskDoneTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pomo_set_task_done",
		mcp.WithDescription("Mark a task done or not done. The task may be given by id, short id, or 1-based position."),
		mcp.WithString("task", mcp.Required(), mcp.Description("Task id, short id, or position")),
		mcp.WithBoolean("done", mcp.Description("Done flag (default true)")),
	)
	return tool, s.handleSetTaskDone
}

func (s *Server) handleSetTaskDone(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	task, errResult := s.resolveTask(request)
	if errResult != nil {
		return errResult, nil
	}
	done := request.GetBool("done", true)

	if err := s.app.SetTaskDone(ctx, task.ID, done); err != nil {
		return errorResult("update task", err), nil
	}
	return s.tasksResult()
}

// pomo_set_task_estimate
func (s *Server) setTaskEstimateTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pomo_set_task_estimate",
		mcp.WithDescription("Change a task's estimate. A session already running keeps the total it started with."),
		mcp.WithString("task", mcp.Required(), mcp.Description("Task id, short id, or position")),
		mcp.WithNumber("estimate", mcp.Required(), mcp.Description("Estimated focus intervals, at least 1")),
	)
	return tool, s.handleSetTaskEstimate
}

func (s *Server) handleSetTaskEstimate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	task, errResult := s.resolveTask(request)
	if errResult != nil {
		return errResult, nil
	}
	estimate, err := request.RequireInt("estimate")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: estimate"), nil
	}

	if err := s.app.SetTaskEstimate(ctx, task.ID, estimate); err != nil {
		return errorResult("update task", err), nil
	}
	return s.tasksResult()
}

// pomo_delete_task
func (s *Server) deleteTaskTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pomo_delete_task",
		mcp.WithDescription("Delete a task. A running session is not affected."),
		mcp.WithString("task", mcp.Required(), mcp.Description("Task id, short id, or position")),
	)
	return tool, s.handleDeleteTask
}

func (s *Server) handleDeleteTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	task, errResult := s.resolveTask(request)
	if errResult != nil {
		return errResult, nil
	}
	if err := s.app.DeleteTask(ctx, task.ID); err != nil {
		return errorResult("delete task", err), nil
	}
	return s.tasksResult()
}

// pomo_reorder_tasks
func (s *Server) reorderTasksTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pomo_reorder_tasks",
		mcp.WithDescription("Reorder the task list. ids must list every task id exactly once, in the new order."),
		mcp.WithArray("ids", mcp.Required(), mcp.WithStringItems(), mcp.Description("Full task ids in the new order")),
	)
	return tool, s.handleReorderTasks
}

func (s *Server) handleReorderTasks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := request.RequireStringSlice("ids")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: ids"), nil
	}
	if err := s.app.ReorderTasks(ctx, ids); err != nil {
		return errorResult("reorder tasks", err), nil
	}
	return s.tasksResult()
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *Server) resolveTask(request mcp.CallToolRequest) (models.Task, *mcp.CallToolResult) {
	ref, err := request.RequireString("task")
	if err != nil {
		return models.Task{}, mcp.NewToolResultError("missing required parameter: task")
	}
	task, err := s.app.FindTask(ref)
	if err != nil {
		return models.Task{}, errorResult("find task", err)
	}
	return task, nil
}
