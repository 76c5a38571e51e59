package indicator

import "math"

// EMA calculates the Exponential Moving Average.
// The first value seeds directly from data[0] (no warm-up NaN), then
// ema[i] = data[i]*k + ema[i-1]*(1-k) with k = 2/(period+1).
// Every value is a convex combination of the new point and the prior EMA.
func EMA(data []float64, period int) []float64 {
	if len(data) == 0 {
		return nil
	}
	k := 2.0 / float64(period+1)
	out := make([]float64, len(data))
	out[0] = data[0]
	for i := 1; i < len(data); i++ {
		out[i] = data[i]*k + out[i-1]*(1-k)
	}
	return out
}

// SMA calculates the Simple Moving Average over a trailing window.
// Indices before period-1 hold NaN. O(n) via a running sum.
func SMA(data []float64, period int) []float64 {
	out := fillNaN(len(data))
	if period <= 0 || len(data) < period {
		return out
	}
	sum := 0.0
	for i, v := range data {
		sum += v
		if i >= period {
			sum -= data[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// smaOverNaN is SMA for inputs that may carry a NaN warm-up prefix
// (e.g. smoothing a raw stochastic). A window containing any NaN yields NaN.
func smaOverNaN(data []float64, period int) []float64 {
	out := fillNaN(len(data))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(data); i++ {
		sum := 0.0
		ok := true
		for j := i - period + 1; j <= i; j++ {
			if math.IsNaN(data[j]) {
				ok = false
				break
			}
			sum += data[j]
		}
		if ok {
			out[i] = sum / float64(period)
		}
	}
	return out
}
