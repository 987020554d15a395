package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/pomo/internal/output"
	"github.com/joescharf/pomo/internal/timer"
)

// testEnv sets up isolated config dir, viper, store, and output for testing.
// Command output is captured in the returned buffer.
func testEnv(t *testing.T) (string, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()

	// Override configDirFunc for tests
	origFunc := configDirFunc
	configDirFunc = func() (string, error) { return dir, nil }
	t.Cleanup(func() { configDirFunc = origFunc })

	// Reset viper
	viper.Reset()
	viper.SetEnvPrefix("POMO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults(dir)

	// Each test gets its own database
	dataStore = nil
	t.Cleanup(func() {
		if dataStore != nil {
			_ = dataStore.Close()
			dataStore = nil
		}
	})

	// Initialize output
	var out bytes.Buffer
	ui = output.New()
	ui.Out = &out
	ui.ErrOut = &out
	logger = newLogger(io.Discard, false)

	return dir, &out
}

func TestConfigInit_CreatesFile(t *testing.T) {
	dir, _ := testEnv(t)

	err := configInitRun()
	require.NoError(t, err)

	cfgPath := filepath.Join(dir, "config.yaml")
	_, err = os.Stat(cfgPath)
	assert.NoError(t, err, "config file should exist")

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "pomo configuration")
	assert.Contains(t, string(data), "focus: 25m0s")
	assert.Contains(t, string(data), `catch_up: "single"`)
}

func TestConfigInit_TemplateLoadsBack(t *testing.T) {
	dir, _ := testEnv(t)
	require.NoError(t, configInitRun())

	viper.SetConfigFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, viper.ReadInConfig())

	cfg, err := timerConfig()
	require.NoError(t, err)
	assert.Equal(t, timer.DefaultConfig(), cfg)
}

func TestConfigInit_RefusesOverwrite(t *testing.T) {
	dir, _ := testEnv(t)

	// Create existing file
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("existing"), 0644))

	configForce = false
	err := configInitRun()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestConfigInit_ForceOverwrite(t *testing.T) {
	dir, _ := testEnv(t)

	// Create existing file
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("existing"), 0644))

	configForce = true
	t.Cleanup(func() { configForce = false })
	err := configInitRun()
	require.NoError(t, err)

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "pomo configuration")
}

func TestConfigShow_NoFile(t *testing.T) {
	_, out := testEnv(t)

	err := configShowRun()
	assert.NoError(t, err)
	assert.Contains(t, out.String(), "(none)")
	assert.Contains(t, out.String(), "timer.catch_up")
}

func TestConfigShow_Sources(t *testing.T) {
	dir, out := testEnv(t)

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("timer:\n  focus: 50m\n"), 0644))
	viper.SetConfigFile(cfgPath)
	require.NoError(t, viper.ReadInConfig())
	t.Setenv("POMO_TIMER_SHORT_BREAK", "10m")

	require.NoError(t, configShowRun())

	lines := strings.Split(out.String(), "\n")
	assert.Contains(t, lineFor(lines, "timer.focus"), "(file)")
	assert.Contains(t, lineFor(lines, "timer.short_break"), "(env: POMO_TIMER_SHORT_BREAK)")
	assert.Contains(t, lineFor(lines, "timer.long_break "), "(default)")
}

func TestConfigShow_WarnsOnInvalidTimer(t *testing.T) {
	_, out := testEnv(t)
	t.Setenv("POMO_TIMER_CATCH_UP", "some")

	require.NoError(t, configShowRun())
	assert.Contains(t, out.String(), "invalid timer config")
}

func lineFor(lines []string, key string) string {
	for _, l := range lines {
		if strings.Contains(l, key) {
			return l
		}
	}
	return ""
}

func TestTimerConfig_FromEnv(t *testing.T) {
	testEnv(t)
	t.Setenv("POMO_TIMER_FOCUS", "50m")
	t.Setenv("POMO_TIMER_LONG_BREAK_EVERY", "2")
	t.Setenv("POMO_TIMER_CATCH_UP", "all")

	cfg, err := timerConfig()
	require.NoError(t, err)
	assert.Equal(t, 50*time.Minute, cfg.Focus)
	assert.Equal(t, 2, cfg.LongBreakEvery)
	assert.Equal(t, timer.CatchUpAll, cfg.CatchUp)
}

func TestTimerConfig_Invalid(t *testing.T) {
	testEnv(t)
	t.Setenv("POMO_TIMER_LONG_BREAK_EVERY", "0")

	_, err := timerConfig()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid timer config")
}

func TestConfigEdit_NoEditor(t *testing.T) {
	testEnv(t)
	t.Setenv("EDITOR", "")
	t.Setenv("VISUAL", "")

	err := configEditRun()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "$EDITOR is not set")
}

func TestConfigEdit_NoConfigFile(t *testing.T) {
	testEnv(t)
	t.Setenv("EDITOR", "echo") // harmless command

	err := configEditRun()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestDetectSource(t *testing.T) {
	fileValues := map[string]bool{"key_a": true}

	// From env
	t.Setenv("POMO_TEST_KEY", "val")
	assert.Contains(t, detectSource("test_key", "POMO_TEST_KEY", fileValues), "env")

	// From file
	assert.Contains(t, detectSource("key_a", "POMO_KEY_A_NONEXISTENT", fileValues), "file")

	// Default
	assert.Contains(t, detectSource("key_b", "POMO_KEY_B_NONEXISTENT", fileValues), "default")
}

func TestFlattenKeys(t *testing.T) {
	input := map[string]any{
		"top": "val",
		"nested": map[string]any{
			"a": "1",
			"b": "2",
		},
	}

	result := make(map[string]bool)
	flattenKeys("", input, result)

	assert.True(t, result["top"])
	assert.True(t, result["nested.a"])
	assert.True(t, result["nested.b"])
	assert.False(t, result["nested"])
}
