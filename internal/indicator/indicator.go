// Package indicator computes technical indicators over closing prices. The
// results are informational; they are shown next to a forecast, not fed into
// it.
package indicator

import "math"

// Standard parameters.
const (
	RSIWindow  = 14
	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9
)

// EMA returns the exponential moving average of values with smoothing factor
// 2/(span+1), seeded with the first value.
func EMA(values []float64, span int) []float64 {
	if len(values) == 0 || span < 1 {
		return nil
	}
	alpha := 2.0 / float64(span+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// MACD returns the MACD line (fast EMA minus slow EMA), its signal line and
// the histogram (MACD minus signal).
func MACD(values []float64, fast, slow, signal int) (line, sig, hist []float64) {
	f, s := EMA(values, fast), EMA(values, slow)
	if f == nil || s == nil {
		return nil, nil, nil
	}
	line = make([]float64, len(values))
	for i := range values {
		line[i] = f[i] - s[i]
	}
	sig = EMA(line, signal)
	hist = make([]float64, len(values))
	for i := range values {
		hist[i] = line[i] - sig[i]
	}
	return line, sig, hist
}

// RSI returns the relative strength index using simple rolling averages of
// gains and losses over window price changes. Entries before the first full
// window are NaN, as are entries where the price did not move at all.
func RSI(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if window < 1 || len(values) <= window {
		return out
	}

	gains := make([]float64, len(values))
	losses := make([]float64, len(values))
	for i := 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		if d > 0 {
			gains[i] = d
		} else {
			losses[i] = -d
		}
	}

	var sumGain, sumLoss float64
	for i := 1; i < len(values); i++ {
		sumGain += gains[i]
		sumLoss += losses[i]
		if i > window {
			sumGain -= gains[i-window]
			sumLoss -= losses[i-window]
		}
		if i < window {
			continue
		}
		switch {
		case sumLoss <= 0 && sumGain <= 0:
			// flat window
		case sumLoss <= 0:
			out[i] = 100
		default:
			rs := sumGain / sumLoss
			out[i] = 100 - 100/(1+rs)
		}
	}
	return out
}

// Summary holds the latest value of each indicator.
type Summary struct {
	RSI       float64
	MACD      float64
	Signal    float64
	Histogram float64
}

// Latest computes RSI-14 and MACD 12/26/9 over closes and returns the final
// values. ok is false when there are too few closes for a defined RSI.
func Latest(closes []float64) (s Summary, ok bool) {
	if len(closes) <= RSIWindow {
		return Summary{}, false
	}
	rsi := RSI(closes, RSIWindow)
	line, sig, hist := MACD(closes, MACDFast, MACDSlow, MACDSignal)
	n := len(closes) - 1
	s = Summary{RSI: rsi[n], MACD: line[n], Signal: sig[n], Histogram: hist[n]}
	return s, !math.IsNaN(s.RSI)
}
