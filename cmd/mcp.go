package cmd

import (
	"context"
	"errors"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/pomo/internal/app"
	"github.com/joescharf/pomo/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for Claude Code integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets an assistant read the timer and manage tasks through the same
shared state as every other pomo view. Configure it with:

  {
    "mcpServers": {
      "pomo": { "command": "pomo", "args": ["mcp"] }
    }
  }

Available tools: pomo_status, pomo_start, pomo_pause, pomo_resume, pomo_end,
pomo_list_tasks, pomo_add_task, pomo_set_task_done, pomo_set_task_estimate,
pomo_delete_task, pomo_reorder_tasks`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpRun(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func mcpRun(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, shutdownSignals()...)
	defer stop()

	a, w, err := openApp(ctx, app.WithTickInterval(viper.GetDuration("watch.tick_interval")))
	if err != nil {
		return err
	}
	defer a.Close()

	srv := mcp.NewServer(a, buildVersion)
	err = runView(ctx, a, w, srv.ServeStdio)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
