// Package gather fetches daily price history from market data providers.
package gather

import (
	"context"
	"time"

	"chartgallery/internal/domain"
)

// Provider is the interface for all daily bar sources.
type Provider interface {
	// Name returns the provider identifier.
	Name() string
	// Fetch returns daily bars for symbol within r, oldest first. It returns
	// domain.ErrNoData when the provider has nothing for the symbol.
	Fetch(ctx context.Context, symbol string, r DateRange) ([]domain.Bar, error)
}

// DateRange represents a time range for data fetching.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether the range is non-empty.
func (r DateRange) Valid() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && r.Start.Before(r.End)
}
