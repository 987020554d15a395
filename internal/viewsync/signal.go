package viewsync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// SignalFileName is the file rewritten on every broadcast.
const SignalFileName = "pomo.signal"

// SignalFile broadcasts changes between processes by rewriting a small file
// that every view watches. The file holds the id of the view that wrote it.
type SignalFile struct {
	dir    string
	origin string
	logger *slog.Logger
}

// NewSignalFile returns a signal file in dir written on behalf of origin.
func NewSignalFile(dir, origin string, logger *slog.Logger) *SignalFile {
	if logger == nil {
		logger = slog.Default()
	}
	return &SignalFile{dir: dir, origin: origin, logger: logger}
}

// Path returns the location of the signal file.
func (s *SignalFile) Path() string {
	return filepath.Join(s.dir, SignalFileName)
}

// Notify rewrites the signal file. The write goes through a rename so that
// readers never observe a half-written file.
func (s *SignalFile) Notify(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create signal dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, SignalFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("create signal file: %w", err)
	}
	if _, err := tmp.WriteString(s.origin + "\n"); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write signal file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close signal file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path()); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("publish signal file: %w", err)
	}
	return nil
}

// Watch reports every rewrite of the signal file until ctx is done. Each
// change carries the origin found in the file when the event was handled.
func (s *SignalFile) Watch(ctx context.Context, emit func(Change)) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create signal dir: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	if err := w.Add(s.dir); err != nil {
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	target := s.Path()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Create|fsnotify.Write) {
				continue
			}
			emit(Change{Origin: s.readOrigin(), Source: SourceSignal})
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Debug("signal watcher error", "error", err)
		}
	}
}

func (s *SignalFile) readOrigin() string {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
