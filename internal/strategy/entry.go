package strategy

import (
	"fmt"
	"math"

	"papertraderv1/internal/indicator"
	"papertraderv1/internal/model"
	"papertraderv1/internal/signal"
)

// Decision is the full output of the entry gate for one tick. Reasons and
// Blockers are human-readable and end up in the account log, so they should
// read well on a dashboard.
type Decision struct {
	Allowed  bool
	Side     model.Side
	Keys     int // directional keys fired for Side (of 5)
	Context  Context
	Reasons  []string
	Blockers []string
}

// keyCount tallies the five directional keys for one side. The keys are
// deliberately independent of the vote aggregator: trend (EMA50 vs EMA200),
// momentum (MACD histogram), strength (RSI vs 50), participation (volume
// spike), and value (price vs VWAP).
func keyCount(set *indicator.Set, price float64, volumeSpike bool, last int, side model.Side) (int, []string) {
	var n int
	var fired []string
	key := func(ok bool, name string) {
		if ok {
			n++
			fired = append(fired, name)
		}
	}

	hist := set.MACD.Histogram[last]
	rsi := set.RSI14[last]
	vwap := set.VWAP[last]

	if side == model.SideLong {
		key(set.EMA50[last] > set.EMA200[last], "EMA50 above EMA200")
		key(hist > 0, "MACD histogram positive")
		key(!math.IsNaN(rsi) && rsi > 50, "RSI above 50")
		key(volumeSpike, "volume spike")
		key(!math.IsNaN(vwap) && price > vwap, "price above VWAP")
	} else {
		key(set.EMA50[last] < set.EMA200[last], "EMA50 below EMA200")
		key(hist < 0, "MACD histogram negative")
		key(!math.IsNaN(rsi) && rsi < 50, "RSI below 50")
		key(volumeSpike, "volume spike")
		key(!math.IsNaN(vwap) && price < vwap, "price below VWAP")
	}
	return n, fired
}

// longContext: price above the slow EMA with no bearish structure against it.
func longContext(price, ema200 float64, ctx Context) bool {
	if price <= ema200 {
		return false
	}
	if ctx.NearResistance || ctx.FailedBreakout || ctx.BearishPattern != "" || ctx.BearishDivergence {
		return false
	}
	return true
}

// shortContext: price below the slow EMA with no bullish structure against it.
func shortContext(price, ema200 float64, ctx Context) bool {
	if price >= ema200 {
		return false
	}
	if ctx.NearSupport || ctx.DoubleBottom || ctx.BullishPattern != "" || ctx.BullishDivergence {
		return false
	}
	return true
}

// EvaluateEntry runs the full gate: enough directional keys for the biased
// side, the matching market context, and no blocking filter. All three must
// pass for Allowed to be true. A neutral bias never enters.
func EvaluateEntry(series model.Series, set *indicator.Set, analysis *signal.Analysis, rs signal.RuleSet) Decision {
	d := Decision{Context: BuildContext(series, set, rs)}
	last := len(series) - 1
	if last < 0 {
		d.Blockers = append(d.Blockers, "no candles")
		return d
	}
	price := series[last].Close

	switch analysis.Bias {
	case signal.BiasBullish:
		d.Side = model.SideLong
	case signal.BiasBearish:
		d.Side = model.SideShort
	default:
		d.Blockers = append(d.Blockers, "no directional bias")
		return d
	}

	keys, fired := keyCount(set, price, d.Context.VolumeSpike, last, d.Side)
	d.Keys = keys
	d.Reasons = fired
	if keys < rs.RequiredKeys {
		d.Blockers = append(d.Blockers,
			fmt.Sprintf("only %d of %d required directional keys", keys, rs.RequiredKeys))
	}

	var inContext bool
	if d.Side == model.SideLong {
		inContext = longContext(price, set.EMA200[last], d.Context)
	} else {
		inContext = shortContext(price, set.EMA200[last], d.Context)
	}
	if !inContext {
		d.Blockers = append(d.Blockers, "market context against entry")
	}

	if d.Context.Chop {
		d.Blockers = append(d.Blockers, "price chopping between trend EMAs")
	}
	if d.Context.LowVolume {
		d.Blockers = append(d.Blockers, "volume too low to trust the move")
	}
	if ok, reason := Guardrail(analysis.Bias, set.RSI14[last], rs); !ok {
		d.Blockers = append(d.Blockers, reason)
	}

	d.Allowed = len(d.Blockers) == 0
	return d
}
