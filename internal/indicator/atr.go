package indicator

import "math"

// TrueRange calculates the per-candle true range:
// max(high-low, |high-prevClose|, |low-prevClose|). The first candle has no
// previous close, so its true range is simply high-low.
func TrueRange(highs, lows, closes []float64) []float64 {
	n := len(closes)
	if n == 0 {
		return nil
	}
	out := make([]float64, n)
	out[0] = highs[0] - lows[0]
	for i := 1; i < n; i++ {
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		out[i] = math.Max(hl, math.Max(hc, lc))
	}
	return out
}

// ATR calculates the Average True Range as EMA(true range, period).
// Defined from index 0 because of the EMA seed.
func ATR(highs, lows, closes []float64, period int) []float64 {
	tr := TrueRange(highs, lows, closes)
	if tr == nil {
		return nil
	}
	return EMA(tr, period)
}
