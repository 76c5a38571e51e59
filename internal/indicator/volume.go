package indicator

// OBV calculates On-Balance Volume: a cumulative running sum starting at 0
// that adds volume when the close rose, subtracts it when the close fell,
// and is unchanged otherwise.
func OBV(closes, volumes []float64) []float64 {
	n := len(closes)
	if n == 0 {
		return nil
	}
	out := make([]float64, n)
	for i := 1; i < n; i++ {
		switch {
		case closes[i] > closes[i-1]:
			out[i] = out[i-1] + volumes[i]
		case closes[i] < closes[i-1]:
			out[i] = out[i-1] - volumes[i]
		default:
			out[i] = out[i-1]
		}
	}
	return out
}

// CMF calculates the Chaikin Money Flow: the sum of money-flow volume over
// the sum of volume in the trailing window. Money-flow volume per candle is
// ((close-low) - (high-close)) / (high-low) * volume, 0 when high == low.
// Warm-up indices hold NaN; a zero-volume window yields 0.
func CMF(highs, lows, closes, volumes []float64, period int) []float64 {
	n := len(closes)
	out := fillNaN(n)
	if period <= 0 || n < period {
		return out
	}

	mfv := make([]float64, n)
	for i := 0; i < n; i++ {
		rng := highs[i] - lows[i]
		if rng == 0 {
			continue
		}
		mult := ((closes[i] - lows[i]) - (highs[i] - closes[i])) / rng
		mfv[i] = mult * volumes[i]
	}

	var mfvSum, volSum float64
	for i := 0; i < n; i++ {
		mfvSum += mfv[i]
		volSum += volumes[i]
		if i >= period {
			mfvSum -= mfv[i-period]
			volSum -= volumes[i-period]
		}
		if i >= period-1 {
			if volSum == 0 {
				out[i] = 0
			} else {
				out[i] = mfvSum / volSum
			}
		}
	}
	return out
}

// VWAP calculates the Volume-Weighted Average Price: cumulative
// (typical price * volume) over cumulative volume from the series start.
// Indices with zero cumulative volume hold NaN.
func VWAP(highs, lows, closes, volumes []float64) []float64 {
	n := len(closes)
	out := fillNaN(n)
	var cumPV, cumVol float64
	for i := 0; i < n; i++ {
		typical := (highs[i] + lows[i] + closes[i]) / 3
		cumPV += typical * volumes[i]
		cumVol += volumes[i]
		if cumVol > 0 {
			out[i] = cumPV / cumVol
		}
	}
	return out
}
