// Package us provides the Alpaca market data provider for US equities.
package us

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"chartgallery/internal/domain"
	"chartgallery/internal/gather"
)

// ---------------------------------------------------------------------------
// Compile-time interface checks
// ---------------------------------------------------------------------------

var _ gather.Provider = (*AlpacaProvider)(nil)

// barsClient is the subset of *marketdata.Client used by AlpacaProvider.
type barsClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// ---------------------------------------------------------------------------
// AlpacaProvider: daily OHLCV bars from the Alpaca market-data API.
// ---------------------------------------------------------------------------

// AlpacaProvider fetches daily bars for one symbol at a time via the Alpaca
// market-data API.
type AlpacaProvider struct {
	client barsClient
	feed   marketdata.Feed
	log    *slog.Logger
}

// NewAlpacaProvider creates an AlpacaProvider configured with the given
// Alpaca credentials and data feed ("iex" or "sip").
func NewAlpacaProvider(apiKey, apiSecret, dataURL, feed string) *AlpacaProvider {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return newAlpacaProvider(marketdata.NewClient(opts), feed)
}

func newAlpacaProvider(client barsClient, feed string) *AlpacaProvider {
	var f marketdata.Feed
	switch strings.ToLower(feed) {
	case "sip":
		f = "sip"
	default:
		f = "iex"
	}
	return &AlpacaProvider{
		client: client,
		feed:   f,
		log:    slog.Default().With("provider", "alpaca"),
	}
}

// Name returns the provider identifier.
func (p *AlpacaProvider) Name() string { return "alpaca" }

// Fetch returns daily bars for symbol in r. An empty response maps to
// domain.ErrNoData.
func (p *AlpacaProvider) Fetch(ctx context.Context, symbol string, r gather.DateRange) ([]domain.Bar, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	alpacaBars, err := p.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     r.Start,
		End:       r.End,
		Feed:      p.feed,
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", symbol, err)
	}
	if len(alpacaBars) == 0 {
		return nil, domain.ErrNoData
	}

	bars := make([]domain.Bar, 0, len(alpacaBars))
	for _, ab := range alpacaBars {
		bars = append(bars, domain.Bar{
			Symbol:     symbol,
			Timestamp:  ab.Timestamp,
			Open:       ab.Open,
			High:       ab.High,
			Low:        ab.Low,
			Close:      ab.Close,
			Volume:     int64(ab.Volume),
			TradeCount: int64(ab.TradeCount),
			VWAP:       ab.VWAP,
		})
	}
	p.log.Debug("fetched bars", "symbol", symbol, "bars", len(bars))
	return bars, nil
}
