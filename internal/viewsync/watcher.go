// Package viewsync keeps several open views of the same local state in
// step. A view announces each mutation after persisting it; the others
// reload from storage when they hear about it.
package viewsync

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Source tells which mechanism delivered a change.
type Source string

const (
	SourceSignal Source = "signal"
	SourcePoll   Source = "poll"
	SourceBus    Source = "bus"
)

// Change is a notification that stored state was modified by another view.
type Change struct {
	Origin string
	Source Source
}

// Write is one record this view stored, with the revision the store gave it.
type Write struct {
	Key      string
	Revision int64
}

// Notifier announces that this view changed stored state.
type Notifier interface {
	Notify(ctx context.Context, writes ...Write) error
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, ...Write) error { return nil }

// Watcher is one view's endpoint: it broadcasts this view's changes and
// delivers the changes of every other view.
type Watcher struct {
	origin  string
	signal  *SignalFile
	poller  *Poller
	bus     *Bus[Change]
	logger  *slog.Logger
	changes chan Change
}

// Option customizes a Watcher.
type Option func(*Watcher)

// WithSignalDir broadcasts through a signal file in dir.
func WithSignalDir(dir string) Option {
	return func(w *Watcher) {
		if dir != "" {
			w.signal = NewSignalFile(dir, w.origin, w.logger)
		}
	}
}

// WithPoller enables the revision poll fallback.
func WithPoller(src RevisionSource, interval time.Duration) Option {
	return func(w *Watcher) {
		if src != nil {
			w.poller = NewPoller(src, interval, w.logger)
		}
	}
}

// WithBus joins an in-process bus shared with other views.
func WithBus(bus *Bus[Change]) Option {
	return func(w *Watcher) { w.bus = bus }
}

// WithLogger sets the logger. It must precede options that build
// components.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher returns a watcher with a fresh view id.
func NewWatcher(opts ...Option) *Watcher {
	w := &Watcher{
		origin:  uuid.NewString(),
		logger:  slog.Default(),
		changes: make(chan Change, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Origin returns this view's id.
func (w *Watcher) Origin() string { return w.origin }

// Changes delivers changes made by other views. Bursts are coalesced: a
// reader that falls behind sees one pending change, not a backlog.
func (w *Watcher) Changes() <-chan Change { return w.changes }

// Baseline records the stored revisions the view is about to load, so that
// any write landing after that is reported. Call it before loading.
func (w *Watcher) Baseline(ctx context.Context) {
	if w.poller != nil {
		w.poller.Baseline(ctx)
	}
}

// Notify broadcasts a change made by this view through every configured
// channel. writes are the records it stored; the poller skips exactly those
// revisions and still reports anything else.
func (w *Watcher) Notify(ctx context.Context, writes ...Write) error {
	var errs []error
	if w.poller != nil {
		w.poller.Acknowledge(writes...)
	}
	if w.signal != nil {
		if err := w.signal.Notify(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if w.bus != nil {
		w.bus.Publish(Change{Origin: w.origin, Source: SourceBus})
	}
	return errors.Join(errs...)
}

// Run delivers changes until ctx is done. A signal file that cannot be
// watched is logged and left to the poller.
func (w *Watcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if w.signal != nil {
		g.Go(func() error {
			if err := w.signal.Watch(ctx, func(c Change) { w.signalled(ctx, c) }); err != nil {
				w.logger.Warn("signal file unavailable, relying on polling", "error", err)
			}
			return nil
		})
	}

	if w.poller != nil {
		g.Go(func() error {
			return w.poller.Run(ctx, w.emit)
		})
	}

	if w.bus != nil {
		sub := w.bus.Subscribe(ctx)
		g.Go(func() error {
			for c := range sub {
				if c.Origin != w.origin {
					w.emit(c)
				}
			}
			return nil
		})
	}

	return g.Wait()
}

// signalled handles a signal file event. The file only names the last
// writer, which may have replaced another view's signal before it was read,
// so with a poller the revisions decide whether anything foreign changed.
func (w *Watcher) signalled(ctx context.Context, c Change) {
	if w.poller != nil {
		if w.poller.Check(ctx) {
			w.emit(c)
		}
		return
	}
	if c.Origin != w.origin {
		w.emit(c)
	}
}

func (w *Watcher) emit(c Change) {
	select {
	case w.changes <- c:
	default:
		// A change is already pending; the reload it triggers covers this one.
	}
}
