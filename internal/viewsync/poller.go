package viewsync

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"
)

// DefaultPollInterval is how often the revision poller checks storage.
const DefaultPollInterval = time.Second

// RevisionSource reports the current revision of each watched record.
type RevisionSource interface {
	Revisions(ctx context.Context) (map[string]int64, error)
}

// Poller notices storage changes by comparing record revisions. It catches
// writes whose signal was lost, e.g. when file notifications are
// unavailable.
type Poller struct {
	src      RevisionSource
	interval time.Duration
	logger   *slog.Logger

	mu   sync.Mutex
	last map[string]int64
}

// NewPoller returns a poller over src.
func NewPoller(src RevisionSource, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{src: src, interval: interval, logger: logger}
}

// Baseline records the current revisions as seen unless a baseline exists.
func (p *Poller) Baseline(ctx context.Context) {
	revs, err := p.src.Revisions(ctx)
	if err != nil {
		p.logger.Debug("baseline revisions", "error", err)
		return
	}
	p.mu.Lock()
	if p.last == nil {
		p.last = revs
	}
	p.mu.Unlock()
}

// Acknowledge marks the caller's own writes as seen. A write is skipped only
// when it directly follows the last revision seen for its key; otherwise
// another writer got in between and the next Check reports the key.
func (p *Poller) Acknowledge(writes ...Write) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return
	}
	for _, w := range writes {
		if p.last[w.Key] == w.Revision-1 {
			p.last[w.Key] = w.Revision
		}
	}
}

// Check compares revisions with the last ones seen and reports whether
// anything moved. The first check only records a baseline.
func (p *Poller) Check(ctx context.Context) bool {
	revs, err := p.src.Revisions(ctx)
	if err != nil {
		p.logger.Debug("poll revisions", "error", err)
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		p.last = revs
		return false
	}
	if maps.Equal(p.last, revs) {
		return false
	}
	p.last = revs
	return true
}

// Run polls until ctx is done. Without a baseline the first check takes
// one; with one, changes made since are reported right away.
func (p *Poller) Run(ctx context.Context, emit func(Change)) error {
	if p.Check(ctx) {
		emit(Change{Source: SourcePoll})
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if p.Check(ctx) {
				emit(Change{Source: SourcePoll})
			}
		}
	}
}
