// Package strategy layers context and guardrail heuristics on top of the
// signal aggregator: no-trade-zone detection, support/resistance proximity,
// candlestick patterns, RSI divergence, volume analysis, and the directional
// key gate that decides whether an entry is allowed at all.
//
// Everything here is pure over the candle series and indicator set.
package strategy

import (
	"math"

	"papertraderv1/internal/indicator"
	"papertraderv1/internal/model"
	"papertraderv1/internal/signal"
)

// chopVolumeLookback is the window for the low-volume average.
const chopVolumeLookback = 50

// volumeSpikeLookback is the window for the spike baseline.
const volumeSpikeLookback = 20

// InChopZone reports whether price is trapped between the trend EMAs:
// within rs.ChopZonePct of the EMA50/EMA200 spread around their midpoint.
// A chopping market suppresses entries regardless of signal strength.
func InChopZone(price, ema50, ema200 float64, rs signal.RuleSet) bool {
	spread := math.Abs(ema50 - ema200)
	if spread == 0 {
		return true // EMAs collapsed onto each other: no trend at all
	}
	mid := (ema50 + ema200) / 2
	return math.Abs(price-mid) < spread*rs.ChopZonePct
}

// LowVolume reports whether the latest volume has dried up below
// rs.LowVolumePct of the trailing average.
func LowVolume(volumes []float64, rs signal.RuleSet) bool {
	last := len(volumes) - 1
	if last < 1 {
		return false
	}
	avg := trailingAvg(volumes, last, chopVolumeLookback)
	if avg == 0 {
		return false
	}
	return volumes[last] < avg*rs.LowVolumePct
}

// VolumeSpike reports whether the latest volume exceeds
// rs.VolumeSpikeMult times the trailing average.
func VolumeSpike(volumes []float64, rs signal.RuleSet) bool {
	last := len(volumes) - 1
	if last < 1 {
		return false
	}
	avg := trailingAvg(volumes, last, volumeSpikeLookback)
	if avg == 0 {
		return false
	}
	return volumes[last] > avg*rs.VolumeSpikeMult
}

// trailingAvg averages up to n values ending just before index last.
func trailingAvg(data []float64, last, n int) float64 {
	from := last - n
	if from < 0 {
		from = 0
	}
	if from == last {
		return 0
	}
	sum := 0.0
	for i := from; i < last; i++ {
		sum += data[i]
	}
	return sum / float64(last-from)
}

// Guardrail vetoes an otherwise-valid bias when RSI is too extreme to enter
// safely: longs above rs.GuardrailRSIHigh, shorts below rs.GuardrailRSILow.
// Returns false with a reason when the entry must be blocked.
func Guardrail(bias signal.Bias, rsi float64, rs signal.RuleSet) (ok bool, reason string) {
	if math.IsNaN(rsi) {
		return true, ""
	}
	if bias == signal.BiasBullish && rsi > rs.GuardrailRSIHigh {
		return false, "RSI too overbought to enter long"
	}
	if bias == signal.BiasBearish && rsi < rs.GuardrailRSILow {
		return false, "RSI too oversold to enter short"
	}
	return true, ""
}

// RSIDivergence scans the lookback window for price/RSI divergence.
// Bullish: the latest close undercut an earlier close while RSI held higher
// and that earlier RSI was already depressed (< 40). Bearish is the mirror
// with an earlier RSI above 60.
func RSIDivergence(closes, rsi []float64, rs signal.RuleSet) (bullish, bearish bool) {
	last := len(closes) - 1
	if last < 1 || math.IsNaN(rsi[last]) {
		return false, false
	}
	from := last - rs.DivergenceLookback
	if from < 0 {
		from = 0
	}
	for i := from; i < last; i++ {
		if math.IsNaN(rsi[i]) {
			continue
		}
		if closes[last] < closes[i] && rsi[last] > rsi[i] && rsi[i] < 40 {
			bullish = true
		}
		if closes[last] > closes[i] && rsi[last] < rsi[i] && rsi[i] > 60 {
			bearish = true
		}
	}
	return bullish, bearish
}

// Context is the market-structure summary the entry gate checks against.
type Context struct {
	Chop              bool
	LowVolume         bool
	VolumeSpike       bool
	NearSupport       bool
	NearResistance    bool
	DoubleBottom      bool
	FailedBreakout    bool
	BullishPattern    string // pattern name, "" if none
	BearishPattern    string
	BullishDivergence bool
	BearishDivergence bool
}

// BuildContext evaluates every context filter over the series.
func BuildContext(series model.Series, set *indicator.Set, rs signal.RuleSet) Context {
	closes := series.Closes()
	volumes := series.Volumes()
	last := len(series) - 1

	ctx := Context{}
	if last < 0 {
		return ctx
	}
	price := closes[last]

	ctx.Chop = InChopZone(price, set.EMA50[last], set.EMA200[last], rs)
	ctx.LowVolume = LowVolume(volumes, rs)
	ctx.VolumeSpike = VolumeSpike(volumes, rs)

	levels := FindLevels(series, rs.SRLookback)
	ctx.NearSupport = levels.NearSupport(price)
	ctx.NearResistance = levels.NearResistance(price)
	ctx.DoubleBottom = levels.DoubleBottom(price)
	ctx.FailedBreakout = levels.FailedBreakout(series)

	ctx.BullishPattern, ctx.BearishPattern = DetectPatterns(series)
	ctx.BullishDivergence, ctx.BearishDivergence = RSIDivergence(closes, set.RSI14, rs)
	return ctx
}
