package cmd

import (
	"context"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/joescharf/pomo/internal/app"
	"github.com/joescharf/pomo/internal/tui"
	"github.com/joescharf/pomo/internal/viewsync"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the live timer view",
	Long: `Open a full-screen live view of the timer and task list.

Keys: space pauses or resumes, s starts, e ends, ? shows help, q quits.
Changes made from other terminals show up immediately.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchRun(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func watchRun(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, shutdownSignals()...)
	defer stop()

	a, w, err := openApp(ctx, app.WithTickInterval(viper.GetDuration("watch.tick_interval")))
	if err != nil {
		return err
	}
	defer a.Close()

	return runView(ctx, a, w, func(ctx context.Context) error {
		return tui.Run(ctx, a)
	})
}

// runView follows other views' changes while fn runs, and stops following
// once fn returns.
func runView(ctx context.Context, a *app.App, w *viewsync.Watcher, fn func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.Run(ctx)
	})
	g.Go(func() error {
		a.Follow(ctx, w.Changes())
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return fn(ctx)
	})

	return g.Wait()
}
