package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/joescharf/pomo/internal/models"
)

func TestNext_AfterFocus(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		completed int
		wantMode  models.Mode
		wantDur   time.Duration
	}{
		{1, models.ModeShortBreak, 5 * time.Minute},
		{2, models.ModeShortBreak, 5 * time.Minute},
		{3, models.ModeShortBreak, 5 * time.Minute},
		{4, models.ModeLongBreak, 15 * time.Minute},
		{5, models.ModeShortBreak, 5 * time.Minute},
		{8, models.ModeLongBreak, 15 * time.Minute},
	}
	for _, tt := range tests {
		mode, d := cfg.Next(models.ModeFocus, tt.completed)
		assert.Equal(t, tt.wantMode, mode, "completed=%d", tt.completed)
		assert.Equal(t, tt.wantDur, d, "completed=%d", tt.completed)
	}
}

func TestNext_AfterBreak(t *testing.T) {
	cfg := DefaultConfig()

	for _, finished := range []models.Mode{models.ModeShortBreak, models.ModeLongBreak} {
		mode, d := cfg.Next(finished, 4)
		assert.Equal(t, models.ModeFocus, mode)
		assert.Equal(t, 25*time.Minute, d)
	}
}

func TestNext_EveryIntervalLong(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LongBreakEvery = 1

	mode, _ := cfg.Next(models.ModeFocus, 3)
	assert.Equal(t, models.ModeLongBreak, mode)
}

func TestEstimatePlan(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, time.Duration(0), cfg.EstimatePlan(0))
	assert.Equal(t, 25*time.Minute, cfg.EstimatePlan(1))
	assert.Equal(t, 55*time.Minute, cfg.EstimatePlan(2))
	// 5 focus + 3 short + 1 long; no break after the last focus.
	assert.Equal(t, 155*time.Minute, cfg.EstimatePlan(5))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Focus = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.LongBreakEvery = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.CatchUp = "sometimes"
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "catch-up")

	cfg = DefaultConfig()
	cfg.PartialCreditThreshold = -time.Minute
	assert.Error(t, cfg.Validate())
}

func TestModeLabel(t *testing.T) {
	assert.Equal(t, "Focus", models.ModeFocus.Label())
	assert.Equal(t, "Short break", models.ModeShortBreak.Label())
	assert.Equal(t, "Long break", models.ModeLongBreak.Label())
	assert.True(t, models.ModeLongBreak.IsBreak())
	assert.False(t, models.ModeFocus.IsBreak())
}
