// Package yahoo provides a keyless daily bar provider backed by the Yahoo
// Finance chart API.
package yahoo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/shopspring/decimal"

	"chartgallery/internal/domain"
	"chartgallery/internal/gather"
)

var _ gather.Provider = (*Provider)(nil)

// chartIter is the subset of *chart.Iter consumed by Provider.
type chartIter interface {
	Next() bool
	Bar() *finance.ChartBar
	Err() error
}

// Provider fetches daily bars from Yahoo Finance.
type Provider struct {
	get func(*chart.Params) chartIter
	log *slog.Logger
}

// New creates a Yahoo Finance provider.
func New() *Provider {
	return &Provider{
		get: func(p *chart.Params) chartIter { return chart.Get(p) },
		log: slog.Default().With("provider", "yahoo"),
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "yahoo" }

// Fetch returns daily bars for symbol in r. The upper bound is pushed one
// day out because Yahoo treats the end of the window as exclusive.
func (p *Provider) Fetch(ctx context.Context, symbol string, r gather.DateRange) ([]domain.Bar, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	iter := p.get(&chart.Params{
		Symbol:   symbol,
		Interval: datetime.OneDay,
		Start:    toDatetime(r.Start),
		End:      toDatetime(r.End.AddDate(0, 0, 1)),
	})

	var bars []domain.Bar
	for iter.Next() {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		b := iter.Bar()
		if b == nil {
			continue
		}
		bars = append(bars, domain.Bar{
			Symbol:    symbol,
			Timestamp: time.Unix(int64(b.Timestamp), 0).UTC(),
			Open:      toFloat(b.Open),
			High:      toFloat(b.High),
			Low:       toFloat(b.Low),
			Close:     toFloat(b.Close),
			Volume:    int64(b.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, domain.ErrNoData
	}
	p.log.Debug("fetched bars", "symbol", symbol, "bars", len(bars))
	return bars, nil
}

func toDatetime(t time.Time) *datetime.Datetime {
	t = t.UTC()
	return &datetime.Datetime{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

func toFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
