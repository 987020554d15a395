package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pomo"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage pomo configuration.

Running bare 'pomo config' is the same as 'pomo config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# pomo configuration
# See: pomo config show (for effective values and sources)

# State directory; other views are signalled through a file here
# (default: ~/.config/pomo)
# state_dir: {{ .StateDir }}

# SQLite database path shared by every view (default: ~/.config/pomo/pomo.db)
# db_path: {{ .DBPath }}

timer:
  # Interval lengths (Go durations, e.g. 25m, 90s)
  focus: {{ .Focus }}
  short_break: {{ .ShortBreak }}
  long_break: {{ .LongBreak }}

  # Take a long break after this many focus intervals (default: 4)
  long_break_every: {{ .LongBreakEvery }}

  # Ending a session early credits an unfinished focus interval once at
  # least this much of it has elapsed (default: 5m)
  partial_credit_threshold: {{ .PartialCreditThreshold }}

  # When a session is reopened long after its deadline:
  #   single - complete the overdue interval and start the next one now
  #   all    - replay every missed interval back to back
  catch_up: "{{ .CatchUp }}"

watch:
  # How often the live view refreshes the timer (default: 250ms)
  tick_interval: {{ .TickInterval }}

sync:
  # How often views re-check storage when file notifications are missed
  # (default: 1s)
  poll_interval: {{ .PollInterval }}
`

type configTemplateData struct {
	StateDir               string
	DBPath                 string
	Focus                  string
	ShortBreak             string
	LongBreak              string
	LongBreakEvery         int
	PartialCreditThreshold string
	CatchUp                string
	TickInterval           string
	PollInterval           string
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		StateDir:               viper.GetString("state_dir"),
		DBPath:                 viper.GetString("db_path"),
		Focus:                  viper.GetDuration("timer.focus").String(),
		ShortBreak:             viper.GetDuration("timer.short_break").String(),
		LongBreak:              viper.GetDuration("timer.long_break").String(),
		LongBreakEvery:         viper.GetInt("timer.long_break_every"),
		PartialCreditThreshold: viper.GetDuration("timer.partial_credit_threshold").String(),
		CatchUp:                viper.GetString("timer.catch_up"),
		TickInterval:           viper.GetDuration("watch.tick_interval").String(),
		PollInterval:           viper.GetDuration("sync.poll_interval").String(),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
}

var configKeys = []configKeyInfo{
	{Key: "state_dir", EnvVar: "POMO_STATE_DIR"},
	{Key: "db_path", EnvVar: "POMO_DB_PATH"},
	{Key: "timer.focus", EnvVar: "POMO_TIMER_FOCUS"},
	{Key: "timer.short_break", EnvVar: "POMO_TIMER_SHORT_BREAK"},
	{Key: "timer.long_break", EnvVar: "POMO_TIMER_LONG_BREAK"},
	{Key: "timer.long_break_every", EnvVar: "POMO_TIMER_LONG_BREAK_EVERY"},
	{Key: "timer.partial_credit_threshold", EnvVar: "POMO_TIMER_PARTIAL_CREDIT_THRESHOLD"},
	{Key: "timer.catch_up", EnvVar: "POMO_TIMER_CATCH_UP"},
	{Key: "watch.tick_interval", EnvVar: "POMO_WATCH_TICK_INTERVAL"},
	{Key: "sync.poll_interval", EnvVar: "POMO_SYNC_POLL_INTERVAL"},
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-32s %v  %s\n", k.Key, val, source)
	}

	if _, err := timerConfig(); err != nil {
		ui.Warning("%v", err)
	}
	return nil
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set; set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'pomo config init' first)", cfgPath)
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
