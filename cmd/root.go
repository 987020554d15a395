package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/pomo/internal/app"
	"github.com/joescharf/pomo/internal/output"
	"github.com/joescharf/pomo/internal/persist"
	"github.com/joescharf/pomo/internal/store"
	"github.com/joescharf/pomo/internal/timer"
	"github.com/joescharf/pomo/internal/viewsync"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	logger    *slog.Logger
	dataStore store.Store

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "pomo",
	Short: "Pomodoro focus timer for your task list",
	Long: `pomo runs pomodoro sessions over a list of estimated tasks.

A session alternates focus intervals with short breaks and takes a long
break after every fourth focus. Every terminal running pomo shares the same
tasks and session, so pausing in one view pauses all of them.

Running bare 'pomo' shows the current timer.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return statusRun(cmd.Context())
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/pomo/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		configDir, err := configDirFunc()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("POMO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	configDir, _ := configDirFunc()
	setDefaults(configDir)

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

// setDefaults registers the default of every config key, rooted at dir.
func setDefaults(dir string) {
	viper.SetDefault("state_dir", dir)
	viper.SetDefault("db_path", filepath.Join(dir, "pomo.db"))
	viper.SetDefault("timer.focus", timer.DefaultFocus)
	viper.SetDefault("timer.short_break", timer.DefaultShortBreak)
	viper.SetDefault("timer.long_break", timer.DefaultLongBreak)
	viper.SetDefault("timer.long_break_every", timer.DefaultLongBreakEvery)
	viper.SetDefault("timer.partial_credit_threshold", timer.DefaultPartialCreditThreshold)
	viper.SetDefault("timer.catch_up", string(timer.CatchUpSingle))
	viper.SetDefault("watch.tick_interval", app.DefaultTickInterval)
	viper.SetDefault("sync.poll_interval", viewsync.DefaultPollInterval)
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	logger = newLogger(os.Stderr, verbose)

	// The store is opened lazily so config and version run without a db.
}

// newLogger returns the diagnostics logger: warnings by default, everything
// with --verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// getStore returns the shared store, initializing it on first call.
func getStore(ctx context.Context) (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// timerConfig builds the timer configuration from viper.
func timerConfig() (timer.Config, error) {
	cfg := timer.Config{
		Focus:                  viper.GetDuration("timer.focus"),
		ShortBreak:             viper.GetDuration("timer.short_break"),
		LongBreak:              viper.GetDuration("timer.long_break"),
		LongBreakEvery:         viper.GetInt("timer.long_break_every"),
		PartialCreditThreshold: viper.GetDuration("timer.partial_credit_threshold"),
		CatchUp:                timer.CatchUp(viper.GetString("timer.catch_up")),
	}
	if err := cfg.Validate(); err != nil {
		return timer.Config{}, fmt.Errorf("invalid timer config: %w", err)
	}
	return cfg, nil
}

// openApp builds this process's view: the store, the app over it, and the
// watcher that tells other views about its changes. The returned app is
// loaded, so any interval that ended while no view was open is already
// completed.
func openApp(ctx context.Context, opts ...app.Option) (*app.App, *viewsync.Watcher, error) {
	s, err := getStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := timerConfig()
	if err != nil {
		return nil, nil, err
	}

	stateDir := viper.GetString("state_dir")
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create state directory: %w", err)
	}

	adapter := persist.New(s)
	w := viewsync.NewWatcher(
		viewsync.WithLogger(logger),
		viewsync.WithSignalDir(stateDir),
		viewsync.WithPoller(adapter, viper.GetDuration("sync.poll_interval")),
	)

	base := []app.Option{app.WithLogger(logger), app.WithNotifier(w)}
	a := app.New(adapter, cfg, append(base, opts...)...)
	// Writes landing between loading and watching must still be reported.
	w.Baseline(ctx)
	a.Load(ctx)
	return a, w, nil
}
