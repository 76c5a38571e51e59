package indicator

import "math"

// ADXResult holds the ADX and directional index series.
type ADXResult struct {
	ADX     []float64
	PlusDI  []float64
	MinusDI []float64
}

// ADX calculates the Average Directional Index with ±DI.
//
// +DM[i] = high[i]-high[i-1] when that delta is positive and strictly larger
// than the down-move, else 0 (symmetric for -DM). Both are smoothed with
// EMA(period) and divided by ATR to get ±DI. DX = |+DI - -DI| / (+DI + -DI)
// * 100, and ADX = EMA(DX, period). Division guards yield 0, never NaN.
func ADX(highs, lows, closes []float64, period int) ADXResult {
	n := len(closes)
	if n == 0 {
		return ADXResult{}
	}

	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := highs[i] - highs[i-1]
		down := lows[i-1] - lows[i]
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	atr := ATR(highs, lows, closes, period)
	smPlus := EMA(plusDM, period)
	smMinus := EMA(minusDM, period)

	plusDI := make([]float64, n)
	minusDI := make([]float64, n)
	dx := make([]float64, n)
	for i := 0; i < n; i++ {
		if atr[i] != 0 {
			plusDI[i] = smPlus[i] / atr[i] * 100
			minusDI[i] = smMinus[i] / atr[i] * 100
		}
		sum := plusDI[i] + minusDI[i]
		if sum != 0 {
			dx[i] = math.Abs(plusDI[i]-minusDI[i]) / sum * 100
		}
	}

	return ADXResult{ADX: EMA(dx, period), PlusDI: plusDI, MinusDI: minusDI}
}
