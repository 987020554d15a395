package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no record exists for a key.
var ErrNotFound = errors.New("record not found")

// Record is one stored value.
type Record struct {
	Key       string
	Value     string
	UpdatedAt time.Time
	Revision  int64
}

// Store defines the persistence interface for pomo: a small key-value table
// where every write bumps a per-key revision counter. Other processes poll
// the counters to notice changes they did not make.
type Store interface {
	Get(ctx context.Context, key string) (*Record, error)
	Put(ctx context.Context, key, value string) (int64, error)
	Delete(ctx context.Context, key string) (int64, error)
	Revisions(ctx context.Context, keys ...string) (map[string]int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
