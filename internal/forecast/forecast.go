// Package forecast fits a time-series model to a price history and projects
// it a number of days past the last observation.
package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	forecaster "github.com/aouyang1/go-forecaster"

	"chartgallery/internal/domain"
	"chartgallery/internal/util"
)

// Forecaster produces one ForecastPoint for every historical date followed
// by horizon future dates.
type Forecaster interface {
	Forecast(ctx context.Context, series []domain.PricePoint, horizon int) ([]domain.ForecastPoint, error)
}

// model is the subset of *forecaster.Forecaster used by Model.
type model interface {
	Fit(t []time.Time, y []float64) error
	Predict(t []time.Time) (*forecaster.Results, error)
}

var _ Forecaster = (*Model)(nil)

// Model adapts go-forecaster to the Forecaster interface. A fresh underlying
// model is trained on every call so one Model is safe for concurrent use.
type Model struct {
	cadence  util.Cadence
	auto     bool
	newModel func() (model, error)
	log      *slog.Logger
}

// Option configures a Model.
type Option func(*Model)

// WithCadence fixes the spacing of future dates. Without it the cadence is
// detected from the history.
func WithCadence(c util.Cadence) Option {
	return func(m *Model) {
		m.cadence = c
		m.auto = false
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Model) { m.log = log }
}

// NewModel creates a Model with go-forecaster default options.
func NewModel(opts ...Option) *Model {
	m := &Model{
		auto: true,
		newModel: func() (model, error) {
			return forecaster.New(nil)
		},
		log: slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	m.log = m.log.With("component", "forecast")
	return m
}

// Forecast fits the series and predicts over history plus horizon future
// dates.
func (m *Model) Forecast(ctx context.Context, series []domain.PricePoint, horizon int) ([]domain.ForecastPoint, error) {
	if len(series) == 0 {
		return nil, domain.ErrNoData
	}
	if horizon < 0 {
		return nil, fmt.Errorf("negative horizon %d: %w", horizon, domain.ErrInvalidRequest)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t, y := split(series)
	dates := make([]time.Time, 0, len(t)+horizon)
	dates = append(dates, t...)
	dates = append(dates, m.futureDates(t, horizon)...)

	fc, err := m.newModel()
	if err != nil {
		return nil, fmt.Errorf("creating model: %w", err)
	}
	start := time.Now()
	if err := fc.Fit(t, y); err != nil {
		return nil, fmt.Errorf("fitting %d points: %w", len(t), err)
	}
	res, err := fc.Predict(dates)
	if err != nil {
		return nil, fmt.Errorf("predicting %d points: %w", len(dates), err)
	}
	m.log.Debug("forecast done", "history", len(t), "horizon", horizon,
		"elapsed", time.Since(start).Round(time.Millisecond))

	return toPoints(dates, res)
}

// futureDates continues the calendar of t for n dates.
func (m *Model) futureDates(t []time.Time, n int) []time.Time {
	c := m.cadence
	if m.auto {
		c = util.DetectCadence(t)
	}
	return util.NewCalendar(c).Future(t[len(t)-1], n)
}

func split(series []domain.PricePoint) ([]time.Time, []float64) {
	t := make([]time.Time, len(series))
	y := make([]float64, len(series))
	for i, p := range series {
		t[i] = p.Date
		y[i] = p.Value
	}
	return t, y
}

// toPoints zips model output back onto the requested dates. Lower and Upper
// are ordered so Lower <= Upper even if the model reports them swapped.
func toPoints(dates []time.Time, res *forecaster.Results) ([]domain.ForecastPoint, error) {
	if res == nil {
		return nil, fmt.Errorf("empty result")
	}
	n := len(dates)
	if len(res.Forecast) != n || len(res.Lower) != n || len(res.Upper) != n {
		return nil, fmt.Errorf("result has %d/%d/%d rows, want %d",
			len(res.Forecast), len(res.Lower), len(res.Upper), n)
	}

	points := make([]domain.ForecastPoint, n)
	for i := range dates {
		lo, hi := res.Lower[i], res.Upper[i]
		if lo > hi {
			lo, hi = hi, lo
		}
		pred := res.Forecast[i]
		if math.IsNaN(pred) || math.IsInf(pred, 0) {
			return nil, fmt.Errorf("non-finite prediction at %s", dates[i].Format("2006-01-02"))
		}
		points[i] = domain.ForecastPoint{Date: dates[i], Predicted: pred, Lower: lo, Upper: hi}
	}
	return points, nil
}
