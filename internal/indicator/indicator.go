// Package indicator provides technical indicator calculations over candle data.
//
// Every function takes equal-length input arrays (closes, highs, lows, volumes
// as applicable) and returns an array of the same length, index-aligned with
// the input. Indices before an indicator's warm-up period hold math.NaN();
// callers test readiness with math.IsNaN and skip those values. Indicators
// with a recursive seed (EMA and everything built on it) are defined from
// index 0 and never emit NaN.
//
// All functions are pure: same inputs, same outputs, no I/O.
package indicator

import "math"

// nan is the warm-up sentinel for indices without enough history.
var nan = math.NaN()

// fillNaN returns a length-n array initialized to the warm-up sentinel.
func fillNaN(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = nan
	}
	return out
}

// highest returns the maximum of data[from..to] inclusive.
func highest(data []float64, from, to int) float64 {
	h := data[from]
	for i := from + 1; i <= to; i++ {
		if data[i] > h {
			h = data[i]
		}
	}
	return h
}

// lowest returns the minimum of data[from..to] inclusive.
func lowest(data []float64, from, to int) float64 {
	l := data[from]
	for i := from + 1; i <= to; i++ {
		if data[i] < l {
			l = data[i]
		}
	}
	return l
}
