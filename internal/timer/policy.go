package timer

import (
	"fmt"
	"time"

	"github.com/joescharf/pomo/internal/models"
)

// CatchUp controls how many overdue intervals are completed when a session
// is restored after its deadline has passed.
type CatchUp string

const (
	// CatchUpSingle completes only the interval whose deadline passed and
	// re-arms the next one from the current time.
	CatchUpSingle CatchUp = "single"
	// CatchUpAll replays every missed deadline, re-arming each interval from
	// the previous deadline.
	CatchUpAll CatchUp = "all"
)

// Default interval lengths.
const (
	DefaultFocus                  = 25 * time.Minute
	DefaultShortBreak             = 5 * time.Minute
	DefaultLongBreak              = 15 * time.Minute
	DefaultLongBreakEvery         = 4
	DefaultPartialCreditThreshold = 5 * time.Minute
)

// Config holds the interval lengths and cadence used by the duration
// policy and the state machine.
type Config struct {
	Focus                  time.Duration
	ShortBreak             time.Duration
	LongBreak              time.Duration
	LongBreakEvery         int
	PartialCreditThreshold time.Duration
	CatchUp                CatchUp
}

// DefaultConfig returns the classic 25/5/15 cadence with a long break
// after every fourth focus interval.
func DefaultConfig() Config {
	return Config{
		Focus:                  DefaultFocus,
		ShortBreak:             DefaultShortBreak,
		LongBreak:              DefaultLongBreak,
		LongBreakEvery:         DefaultLongBreakEvery,
		PartialCreditThreshold: DefaultPartialCreditThreshold,
		CatchUp:                CatchUpSingle,
	}
}

// Validate rejects configurations the state machine cannot run.
func (c Config) Validate() error {
	if c.Focus < time.Second || c.ShortBreak < time.Second || c.LongBreak < time.Second {
		return fmt.Errorf("interval lengths must be at least one second (focus=%s short=%s long=%s)",
			c.Focus, c.ShortBreak, c.LongBreak)
	}
	if c.LongBreakEvery < 1 {
		return fmt.Errorf("long break cadence must be >= 1, got %d", c.LongBreakEvery)
	}
	if c.PartialCreditThreshold < 0 {
		return fmt.Errorf("partial credit threshold must not be negative, got %s", c.PartialCreditThreshold)
	}
	switch c.CatchUp {
	case CatchUpSingle, CatchUpAll:
	default:
		return fmt.Errorf("unknown catch-up policy %q (want %q or %q)", c.CatchUp, CatchUpSingle, CatchUpAll)
	}
	return nil
}

// Duration returns the configured length of an interval of the given mode.
func (c Config) Duration(mode models.Mode) time.Duration {
	switch mode {
	case models.ModeShortBreak:
		return c.ShortBreak
	case models.ModeLongBreak:
		return c.LongBreak
	default:
		return c.Focus
	}
}

// Next returns the mode and length of the interval that follows a finished
// one. For a finished Focus interval, completed must already include it.
func (c Config) Next(finished models.Mode, completed int) (models.Mode, time.Duration) {
	if finished.IsBreak() {
		return models.ModeFocus, c.Focus
	}
	if c.LongBreakEvery > 0 && completed%c.LongBreakEvery == 0 {
		return models.ModeLongBreak, c.LongBreak
	}
	return models.ModeShortBreak, c.ShortBreak
}

// EstimatePlan returns the planned wall time of a session with total focus
// intervals, counting the breaks between them but not after the last one.
func (c Config) EstimatePlan(total int) time.Duration {
	var d time.Duration
	for i := 1; i <= total; i++ {
		d += c.Focus
		if i < total {
			_, brk := c.Next(models.ModeFocus, i)
			d += brk
		}
	}
	return d
}
