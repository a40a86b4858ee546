// Package storage persists pipeline output: hourly snapshots, the merged
// daily aggregate, and the human-readable archive.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hotsearch/internal/config"
	"hotsearch/internal/trending"
)

// TimestampLayout is the wall-clock format used in persisted envelopes.
const TimestampLayout = "2006-01-02 15:04:05"

// DayLayout names per-day directories, archive files, and aggregate keys.
const DayLayout = "2006-01-02"

// Snapshot is a persisted result set together with the moment it was
// captured.
type Snapshot struct {
	UpdateTime time.Time
	Items      []*trending.Item
}

// Store persists hourly snapshots and the merged daily aggregate.
type Store interface {
	// SaveHourly writes one snapshot under its capture hour.
	SaveHourly(ctx context.Context, ts time.Time, items []*trending.Item) error

	// SaveSummary replaces the merged aggregate for a day.
	SaveSummary(ctx context.Context, day time.Time, items []*trending.Item) error

	// LoadSummary returns the day's aggregate, or nil when none exists or
	// the stored data is unreadable. A bad prior never blocks a new run.
	LoadSummary(ctx context.Context, day time.Time) ([]*trending.Item, error)

	// LatestSnapshot returns the most recent persisted snapshot, looking
	// back at most one day. ErrNoSnapshot means nothing is stored yet.
	LatestSnapshot(ctx context.Context) (*Snapshot, error)

	Close(ctx context.Context) error
}

// New builds the configured Store implementation.
func New(ctx context.Context, cfg *config.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Type {
	case "file":
		return NewFileStore(cfg, logger), nil
	case "mongo":
		return NewMongoStore(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
