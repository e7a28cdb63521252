package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEMA(t *testing.T) {
	got := EMA([]float64{1, 2, 3}, 3) // alpha = 0.5
	require.Len(t, got, 3)
	assert.InDelta(t, 1.0, got[0], 1e-12)
	assert.InDelta(t, 1.5, got[1], 1e-12)
	assert.InDelta(t, 2.25, got[2], 1e-12)

	assert.Nil(t, EMA(nil, 3))
	assert.Nil(t, EMA([]float64{1}, 0))
}

func TestMACDConstantSeries(t *testing.T) {
	values := make([]float64, 40)
	for i := range values {
		values[i] = 50
	}
	line, sig, hist := MACD(values, MACDFast, MACDSlow, MACDSignal)
	require.Len(t, line, 40)
	for i := range values {
		assert.InDelta(t, 0, line[i], 1e-12)
		assert.InDelta(t, 0, sig[i], 1e-12)
		assert.InDelta(t, 0, hist[i], 1e-12)
	}
}

func TestMACDRisingSeriesIsPositive(t *testing.T) {
	values := make([]float64, 60)
	for i := range values {
		values[i] = float64(100 + i)
	}
	line, _, _ := MACD(values, MACDFast, MACDSlow, MACDSignal)
	assert.Greater(t, line[59], 0.0)
}

func TestRSI(t *testing.T) {
	// 15 closes: 14 changes alternating +2, -1.
	values := []float64{10}
	for i := 0; i < 14; i++ {
		d := 2.0
		if i%2 == 1 {
			d = -1
		}
		values = append(values, values[len(values)-1]+d)
	}
	got := RSI(values, 14)
	for i := 0; i < 14; i++ {
		assert.True(t, math.IsNaN(got[i]), "index %d should be NaN", i)
	}
	// gains 7*2=14, losses 7*1=7, rs=2, rsi=66.67
	assert.InDelta(t, 100-100.0/3, got[14], 1e-9)
}

func TestRSIEdgeCases(t *testing.T) {
	rising := []float64{1, 2, 3, 4, 5}
	assert.Equal(t, 100.0, RSI(rising, 3)[4])

	flat := []float64{5, 5, 5, 5, 5}
	assert.True(t, math.IsNaN(RSI(flat, 3)[4]))

	short := RSI([]float64{1, 2}, 14)
	require.Len(t, short, 2)
	assert.True(t, math.IsNaN(short[1]))
}

func TestLatest(t *testing.T) {
	_, ok := Latest([]float64{1, 2, 3})
	assert.False(t, ok)

	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = float64(100 + i)
	}
	s, ok := Latest(closes)
	require.True(t, ok)
	assert.Equal(t, 100.0, s.RSI)
	assert.Greater(t, s.MACD, 0.0)
	assert.InDelta(t, s.MACD-s.Signal, s.Histogram, 1e-12)
}
