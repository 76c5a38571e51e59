package indicator

// MACDResult holds the three index-aligned MACD series.
type MACDResult struct {
	Line      []float64
	Signal    []float64
	Histogram []float64
}

// MACD calculates Moving Average Convergence Divergence with the standard
// 12/26/9 parameterization: line = EMA12 - EMA26, signal = EMA(line, 9),
// histogram = line - signal. Because EMA seeds from the first data point,
// every index is defined.
func MACD(data []float64, fast, slow, signal int) MACDResult {
	if len(data) == 0 {
		return MACDResult{}
	}
	emaFast := EMA(data, fast)
	emaSlow := EMA(data, slow)

	line := make([]float64, len(data))
	for i := range data {
		line[i] = emaFast[i] - emaSlow[i]
	}
	sig := EMA(line, signal)

	hist := make([]float64, len(data))
	for i := range data {
		hist[i] = line[i] - sig[i]
	}
	return MACDResult{Line: line, Signal: sig, Histogram: hist}
}
