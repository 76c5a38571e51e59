package strategy

import (
	"math"

	"papertraderv1/internal/model"
)

const (
	// Proximity bands for "near" a level.
	supportBandPct    = 0.01  // price within [support, support*1.01]
	resistanceBandPct = 0.01  // price within [resistance*0.99, resistance]
	doubleBottomTol   = 0.005 // two supports within 0.5% of each other
	breakoutScan      = 5     // candles checked for a failed breakout
)

// Levels holds detected swing supports and resistances, most recent last.
type Levels struct {
	Supports    []float64
	Resistances []float64
}

// FindLevels detects local extrema over the trailing lookback: a support is
// a low strictly lower than its two neighbors on each side, a resistance is
// the mirror for highs.
func FindLevels(series model.Series, lookback int) Levels {
	var lv Levels
	n := len(series)
	from := n - lookback
	if from < 2 {
		from = 2
	}
	for i := from; i < n-2; i++ {
		low := series[i].Low
		if low < series[i-1].Low && low < series[i-2].Low &&
			low < series[i+1].Low && low < series[i+2].Low {
			lv.Supports = append(lv.Supports, low)
		}
		high := series[i].High
		if high > series[i-1].High && high > series[i-2].High &&
			high > series[i+1].High && high > series[i+2].High {
			lv.Resistances = append(lv.Resistances, high)
		}
	}
	return lv
}

// NearSupport reports whether price sits just above any detected support.
func (lv Levels) NearSupport(price float64) bool {
	for _, s := range lv.Supports {
		if price >= s && price <= s*(1+supportBandPct) {
			return true
		}
	}
	return false
}

// NearResistance reports whether price sits just below any detected resistance.
func (lv Levels) NearResistance(price float64) bool {
	for _, r := range lv.Resistances {
		if price <= r && price >= r*(1-resistanceBandPct) {
			return true
		}
	}
	return false
}

// DoubleBottom reports two supports within 0.5% of each other with price
// holding above them.
func (lv Levels) DoubleBottom(price float64) bool {
	for i := 0; i < len(lv.Supports); i++ {
		for j := i + 1; j < len(lv.Supports); j++ {
			a, b := lv.Supports[i], lv.Supports[j]
			if a == 0 {
				continue
			}
			if math.Abs(a-b)/a <= doubleBottomTol && price > math.Max(a, b) {
				return true
			}
		}
	}
	return false
}

// FailedBreakout reports that a recent high touched a resistance level but
// the latest close fell back below it, a bull trap.
func (lv Levels) FailedBreakout(series model.Series) bool {
	n := len(series)
	if n == 0 || len(lv.Resistances) == 0 {
		return false
	}
	lastClose := series[n-1].Close
	from := n - breakoutScan
	if from < 0 {
		from = 0
	}
	for _, r := range lv.Resistances {
		if lastClose >= r {
			continue
		}
		for i := from; i < n; i++ {
			if series[i].High >= r {
				return true
			}
		}
	}
	return false
}
