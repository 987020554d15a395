package app

import (
	"sync"
	"time"
)

// DefaultTickInterval is how often a live view re-derives the timer.
const DefaultTickInterval = 250 * time.Millisecond

// Scheduler calls fn periodically while started. Ticks are advisory: the
// timer derives everything from its deadline, so a late or skipped tick
// only delays the display.
type Scheduler struct {
	interval time.Duration
	fn       func()

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewScheduler returns a stopped scheduler.
func NewScheduler(interval time.Duration, fn func()) *Scheduler {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Scheduler{interval: interval, fn: fn}
}

// Start begins ticking. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	go s.loop(s.stopCh)
}

// Stop halts ticking. It does not wait for an in-flight tick, so it may be
// called from inside fn. Calling Stop on a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	close(s.stopCh)
	s.running = false
}

// Running reports whether the scheduler is ticking.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			select {
			case <-stop:
				return
			default:
			}
			s.fn()
		}
	}
}
