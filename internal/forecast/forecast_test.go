package forecast

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	forecaster "github.com/aouyang1/go-forecaster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartgallery/internal/domain"
	"chartgallery/internal/util"
)

// linearModel predicts the mean of the training values with a +-1 band.
type linearModel struct {
	fitT    []time.Time
	mean    float64
	fitErr  error
	swapped bool
}

func (l *linearModel) Fit(t []time.Time, y []float64) error {
	if l.fitErr != nil {
		return l.fitErr
	}
	l.fitT = t
	for _, v := range y {
		l.mean += v
	}
	l.mean /= float64(len(y))
	return nil
}

func (l *linearModel) Predict(t []time.Time) (*forecaster.Results, error) {
	res := &forecaster.Results{T: t}
	for range t {
		lo, hi := l.mean-1, l.mean+1
		if l.swapped {
			lo, hi = hi, lo
		}
		res.Forecast = append(res.Forecast, l.mean)
		res.Lower = append(res.Lower, lo)
		res.Upper = append(res.Upper, hi)
	}
	return res, nil
}

func newTestModel(lm *linearModel, opts ...Option) *Model {
	m := NewModel(append(opts, WithLogger(util.DiscardLogger()))...)
	m.newModel = func() (model, error) { return lm, nil }
	return m
}

// weekdaySeries returns n weekday points starting Monday 2024-01-01.
func weekdaySeries(n int) []domain.PricePoint {
	var out []domain.PricePoint
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for len(out) < n {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			out = append(out, domain.PricePoint{Date: d, Value: float64(100 + len(out))})
		}
		d = d.AddDate(0, 0, 1)
	}
	return out
}

func TestModelForecastShape(t *testing.T) {
	series := weekdaySeries(10) // ends Fri 2024-01-12
	lm := &linearModel{}

	got, err := newTestModel(lm).Forecast(context.Background(), series, 3)
	require.NoError(t, err)
	require.Len(t, got, 13)
	assert.Len(t, lm.fitT, 10, "fit uses history only")

	for i, p := range series {
		assert.True(t, got[i].Date.Equal(p.Date))
	}
	// Auto cadence skips the weekend after a weekday-only history.
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), got[10].Date)
	assert.Equal(t, time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC), got[12].Date)
	assert.InDelta(t, 104.5, got[12].Predicted, 1e-9)
	assert.LessOrEqual(t, got[12].Lower, got[12].Upper)
}

func TestModelForecastFixedCadence(t *testing.T) {
	got, err := newTestModel(&linearModel{}, WithCadence(util.CadenceDaily)).
		Forecast(context.Background(), weekdaySeries(5), 2)
	require.NoError(t, err)
	require.Len(t, got, 7)
	assert.Equal(t, time.Saturday, got[5].Date.Weekday())
}

func TestModelForecastSwappedBand(t *testing.T) {
	got, err := newTestModel(&linearModel{swapped: true}).Forecast(context.Background(), weekdaySeries(3), 1)
	require.NoError(t, err)
	for _, p := range got {
		assert.LessOrEqual(t, p.Lower, p.Upper)
	}
}

func TestModelForecastErrors(t *testing.T) {
	ctx := context.Background()

	_, err := newTestModel(&linearModel{}).Forecast(ctx, nil, 3)
	assert.ErrorIs(t, err, domain.ErrNoData)

	_, err = newTestModel(&linearModel{}).Forecast(ctx, weekdaySeries(3), -1)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	fitErr := errors.New("singular matrix")
	_, err = newTestModel(&linearModel{fitErr: fitErr}).Forecast(ctx, weekdaySeries(3), 1)
	assert.ErrorIs(t, err, fitErr)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = newTestModel(&linearModel{}).Forecast(cancelled, weekdaySeries(3), 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestToPoints(t *testing.T) {
	dates := []time.Time{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}

	_, err := toPoints(dates, nil)
	assert.Error(t, err)

	_, err = toPoints(dates, &forecaster.Results{Forecast: []float64{1, 2}, Lower: []float64{0}, Upper: []float64{2}})
	assert.Error(t, err, "row count mismatch")

	_, err = toPoints(dates, &forecaster.Results{Forecast: []float64{math.NaN()}, Lower: []float64{0}, Upper: []float64{2}})
	assert.Error(t, err, "non-finite prediction")

	pts, err := toPoints(dates, &forecaster.Results{Forecast: []float64{1}, Lower: []float64{0.5}, Upper: []float64{1.5}})
	require.NoError(t, err)
	assert.Equal(t, domain.ForecastPoint{Date: dates[0], Predicted: 1, Lower: 0.5, Upper: 1.5}, pts[0])
}
