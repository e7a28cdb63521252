// Package store defines storage interfaces for the bar cache that sits in
// front of market data providers and for the log of forecast pipeline runs.
package store

import (
	"context"
	"time"

	"chartgallery/internal/domain"
)

// BarStore persists and retrieves daily OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars, merging with what is stored.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol within [start, end], oldest
	// first.
	ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols with cached bars.
	ListSymbols(ctx context.Context) ([]string, error)
}

// RunStore persists per-symbol outcomes of generate batches.
type RunStore interface {
	// RecordRun inserts one run record.
	RecordRun(ctx context.Context, run *domain.Run) error

	// ListRuns returns the most recent runs, newest first, up to limit.
	ListRuns(ctx context.Context, limit int) ([]domain.Run, error)
}
