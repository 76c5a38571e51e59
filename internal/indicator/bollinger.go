package indicator

import "math"

// BollingerResult holds the three index-aligned band series.
type BollingerResult struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// Bollinger calculates Bollinger Bands: middle = SMA(period), bands at
// middle ± mult * population standard deviation over the trailing window.
// Indices before period-1 hold NaN. Lower ≤ middle ≤ upper always holds
// for non-negative mult.
func Bollinger(data []float64, period int, mult float64) BollingerResult {
	n := len(data)
	res := BollingerResult{
		Upper:  fillNaN(n),
		Middle: SMA(data, period),
		Lower:  fillNaN(n),
	}
	if period <= 0 || n < period {
		return res
	}
	for i := period - 1; i < n; i++ {
		mean := res.Middle[i]
		var sq float64
		for j := i - period + 1; j <= i; j++ {
			d := data[j] - mean
			sq += d * d
		}
		std := math.Sqrt(sq / float64(period))
		res.Upper[i] = mean + mult*std
		res.Lower[i] = mean - mult*std
	}
	return res
}
