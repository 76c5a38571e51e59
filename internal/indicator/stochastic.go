package indicator

// StochasticResult holds the smoothed %K and %D series.
type StochasticResult struct {
	K []float64
	D []float64
}

// Stochastic calculates the stochastic oscillator:
// rawK = (close - lowestLow) / (highestHigh - lowestLow) * 100 over the
// trailing period window (50 when the range is zero), %K = SMA(rawK, smoothK),
// %D = SMA(%K, smoothD). Warm-up indices hold NaN.
func Stochastic(highs, lows, closes []float64, period, smoothK, smoothD int) StochasticResult {
	n := len(closes)
	rawK := fillNaN(n)
	if period <= 0 || n < period {
		return StochasticResult{K: rawK, D: fillNaN(n)}
	}
	for i := period - 1; i < n; i++ {
		hh := highest(highs, i-period+1, i)
		ll := lowest(lows, i-period+1, i)
		if hh == ll {
			rawK[i] = 50
			continue
		}
		rawK[i] = (closes[i] - ll) / (hh - ll) * 100
	}
	k := smaOverNaN(rawK, smoothK)
	d := smaOverNaN(k, smoothD)
	return StochasticResult{K: k, D: d}
}

// WilliamsR calculates Williams %R:
// (highestHigh - close) / (highestHigh - lowestLow) * -100 over the trailing
// window, -50 when the range is zero. Warm-up indices hold NaN.
// Values range from -100 (close at the low) to 0 (close at the high).
func WilliamsR(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	out := fillNaN(n)
	if period <= 0 || n < period {
		return out
	}
	for i := period - 1; i < n; i++ {
		hh := highest(highs, i-period+1, i)
		ll := lowest(lows, i-period+1, i)
		if hh == ll {
			out[i] = -50
			continue
		}
		out[i] = (hh - closes[i]) / (hh - ll) * -100
	}
	return out
}
