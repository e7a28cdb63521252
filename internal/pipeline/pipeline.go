// Package pipeline turns a symbol into a stored forecast chart: fetch price
// history, prepare the series, forecast, render and persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"chartgallery/internal/domain"
	"chartgallery/internal/forecast"
	"chartgallery/internal/gallery"
	"chartgallery/internal/gather"
	"chartgallery/internal/render"
)

// Stages reported in Failure.Stage.
const (
	StageValidate = "validate"
	StageFetch    = "fetch"
	StagePrepare  = "prepare"
	StageForecast = "forecast"
	StageRender   = "render"
	StageStore    = "store"
)

// ArtifactStore persists a rendered chart with its manifest.
type ArtifactStore interface {
	Create(id string, doc []byte, m gallery.Manifest) (string, error)
}

var _ ArtifactStore = (*gallery.Store)(nil)

// Request describes one forecast run.
type Request struct {
	Symbol string
	Years  float64
	Days   int
	Start  time.Time
	End    time.Time
	Now    time.Time // generation time; zero means time.Now()
}

// Artifact describes a stored chart.
type Artifact struct {
	ID       string
	Filename string
	Symbol   string
	Title    string
	Until    time.Time
	History  int
	Rows     int
}

// Failure reports which stage of a run failed for which symbol.
type Failure struct {
	Symbol string
	Stage  string
	Err    error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.Symbol, f.Stage, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Pipeline runs single-symbol forecasts.
type Pipeline struct {
	provider   gather.Provider
	forecaster forecast.Forecaster
	renderer   render.Renderer
	store      ArtifactStore
	log        *slog.Logger
}

// New wires a pipeline from its collaborators.
func New(p gather.Provider, f forecast.Forecaster, r render.Renderer, s ArtifactStore, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		provider:   p,
		forecaster: f,
		renderer:   r,
		store:      s,
		log:        log.With("component", "pipeline"),
	}
}

// Window returns the history window ending at now that covers years, counted
// as whole days of 365 per year.
func Window(now time.Time, years float64) (start, end time.Time) {
	return now.AddDate(0, 0, -int(365*years)), now
}

// Run executes every stage for one symbol. Errors are *Failure values that
// unwrap to the domain sentinel of the failing stage where one applies.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Artifact, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	fail := func(stage string, err error) (*Artifact, error) {
		return nil, &Failure{Symbol: symbol, Stage: stage, Err: err}
	}

	if symbol == "" || req.Years <= 0 || req.Days <= 0 {
		return fail(StageValidate, domain.ErrInvalidRequest)
	}
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	bars, err := p.provider.Fetch(ctx, symbol, gather.DateRange{Start: req.Start, End: req.End})
	if err != nil {
		return fail(StageFetch, err)
	}
	if len(bars) == 0 {
		return fail(StageFetch, domain.ErrNoData)
	}

	series, err := PrepareSeries(bars)
	if err != nil {
		return fail(StagePrepare, err)
	}

	rows, err := p.forecaster.Forecast(ctx, series, req.Days)
	if err != nil {
		if ctx.Err() == nil && !errors.Is(err, domain.ErrForecast) {
			err = fmt.Errorf("%w: %w", domain.ErrForecast, err)
		}
		return fail(StageForecast, err)
	}
	if err := checkForecast(series, rows, req.Days); err != nil {
		return fail(StageForecast, err)
	}

	until := rows[len(rows)-1].Date
	title := Title(symbol, req.Years, req.Days, until)

	doc, err := p.renderer.Render(series, rows, title)
	if err != nil {
		return fail(StageRender, fmt.Errorf("%w: %w", domain.ErrRender, err))
	}

	id := gallery.Name(symbol, req.Years, req.Days, until, now)
	final, err := p.store.Create(id, doc, gallery.NewManifest(symbol, req.Years, req.Days, title, until, now))
	if err != nil {
		return fail(StageStore, err)
	}

	p.log.Info("forecast stored", "symbol", symbol, "id", final,
		"history", len(series), "rows", len(rows))
	return &Artifact{
		ID:       final,
		Filename: gallery.ArtifactFile(final),
		Symbol:   symbol,
		Title:    title,
		Until:    until,
		History:  len(series),
		Rows:     len(rows),
	}, nil
}

// Title is the display title of a forecast chart.
func Title(symbol string, years float64, days int, until time.Time) string {
	return fmt.Sprintf("Forecast for %s, with %s years of past data, predicting %d days into the future, until %s",
		symbol, gallery.FormatYears(years), days, until.Format("January 2, 2006"))
}

// PrepareSeries converts bars into a forecaster series: one point per UTC
// calendar date in ascending order, non-finite closes dropped. Of several bars
// on one date the latest timestamp wins, then the later one in input order.
func PrepareSeries(bars []domain.Bar) ([]domain.PricePoint, error) {
	sorted := make([]domain.Bar, 0, len(bars))
	for _, b := range bars {
		if math.IsNaN(b.Close) || math.IsInf(b.Close, 0) {
			continue
		}
		sorted = append(sorted, b)
	}
	if len(sorted) == 0 {
		return nil, domain.ErrNoData
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	series := make([]domain.PricePoint, 0, len(sorted))
	for _, b := range sorted {
		t := b.Timestamp.UTC()
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		if n := len(series); n > 0 && series[n-1].Date.Equal(day) {
			series[n-1].Value = b.Close
			continue
		}
		series = append(series, domain.PricePoint{Date: day, Value: b.Close})
	}
	return series, nil
}

// checkForecast verifies the forecaster returned history plus days rows with
// every future row strictly after the last historical date.
func checkForecast(series []domain.PricePoint, rows []domain.ForecastPoint, days int) error {
	want := len(series) + days
	if len(rows) != want {
		return fmt.Errorf("%w: got %d rows, want %d", domain.ErrForecast, len(rows), want)
	}
	last := series[len(series)-1].Date
	prev := last
	for _, r := range rows[len(series):] {
		if !r.Date.After(prev) {
			return fmt.Errorf("%w: future date %s not after %s",
				domain.ErrForecast, r.Date.Format("2006-01-02"), prev.Format("2006-01-02"))
		}
		prev = r.Date
	}
	return nil
}
