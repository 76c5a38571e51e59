package indicator

// RSI calculates the Relative Strength Index using Wilder's smoothing.
// The seed average gain/loss is a simple mean over the first period deltas,
// then avgGain = (avgGain*(period-1) + gain) / period (symmetric for loss).
// Indices 0..period-1 hold NaN. RSI is exactly 100 when avgLoss is 0.
func RSI(data []float64, period int) []float64 {
	out := fillNaN(len(data))
	if period <= 0 || len(data) < period+1 {
		return out
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		delta := data[i] - data[i-1]
		if delta > 0 {
			gain += delta
		} else {
			loss -= delta
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	p := float64(period)
	for i := period + 1; i < len(data); i++ {
		delta := data[i] - data[i-1]
		g, l := 0.0, 0.0
		if delta > 0 {
			g = delta
		} else {
			l = -delta
		}
		avgGain = (avgGain*(p-1) + g) / p
		avgLoss = (avgLoss*(p-1) + l) / p
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
