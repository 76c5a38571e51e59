package strategy

import (
	"math"
	"testing"

	"papertraderv1/internal/indicator"
	"papertraderv1/internal/model"
	"papertraderv1/internal/signal"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

// flatSeries: constant price, constant volume. Nothing should ever fire.
func flatSeries(n int) model.Series {
	s := make(model.Series, n)
	for i := range s {
		s[i] = model.Candle{
			Time:   int64(1700000000 + i*3600),
			Open:   100, High: 100.5, Low: 99.5, Close: 100,
			Volume: 1000,
		}
	}
	return s
}

// trendSeries: gains on odd candles, losses on even ones, with the gain a
// notch larger (or smaller) so the drift is steady but RSI settles in the
// mid-50s (mid-40s for a downtrend) instead of pinning at an extreme.
// The final candle moves with the trend and carries a volume spike.
func trendSeries(n int, up, down float64) model.Series {
	s := make(model.Series, n)
	price := 100.0
	for i := range s {
		open := price
		if i%2 == 1 {
			price *= up
		} else {
			price *= down
		}
		vol := 1000.0
		if i == n-1 {
			vol = 5000 // well past 1.5x the trailing average
		}
		hi := open
		lo := price
		if price > open {
			hi, lo = price, open
		}
		s[i] = model.Candle{
			Time:   int64(1700000000 + i*3600),
			Open:   open,
			High:   hi * 1.001,
			Low:    lo * 0.999,
			Close:  price,
			Volume: vol,
		}
	}
	return s
}

func uptrendSeries(n int) model.Series   { return trendSeries(n, 1.0025, 0.998) }
func downtrendSeries(n int) model.Series { return trendSeries(n, 0.9975, 1.002) }

// ────────────────────────────────────────────────────────────
// Chop zone
// ────────────────────────────────────────────────────────────

func TestInChopZone(t *testing.T) {
	rs := signal.V1 // ChopZonePct 0.2

	// EMA50=105, EMA200=100: spread 5, mid 102.5, band ±1.0.
	if !InChopZone(102.8, 105, 100, rs) {
		t.Error("price 102.8 within ±1.0 of mid 102.5 should be chop")
	}
	if InChopZone(104.0, 105, 100, rs) {
		t.Error("price 104.0 is 1.5 from mid, outside the ±1.0 band")
	}
	// Collapsed EMAs mean no trend: always chop.
	if !InChopZone(100, 100, 100, rs) {
		t.Error("zero EMA spread must report chop")
	}
}

// ────────────────────────────────────────────────────────────
// Volume filters
// ────────────────────────────────────────────────────────────

func TestLowVolume(t *testing.T) {
	rs := signal.V1 // LowVolumePct 0.4

	vols := make([]float64, 60)
	for i := range vols {
		vols[i] = 1000
	}
	vols[59] = 300 // 30% of the trailing average
	if !LowVolume(vols, rs) {
		t.Error("volume at 30% of average should be flagged low")
	}
	vols[59] = 500
	if LowVolume(vols, rs) {
		t.Error("volume at 50% of average is above the 40% floor")
	}
}

func TestVolumeSpike(t *testing.T) {
	rs := signal.V1 // VolumeSpikeMult 1.5

	vols := make([]float64, 30)
	for i := range vols {
		vols[i] = 1000
	}
	vols[29] = 2000
	if !VolumeSpike(vols, rs) {
		t.Error("2x average volume should be a spike")
	}
	vols[29] = 1400
	if VolumeSpike(vols, rs) {
		t.Error("1.4x average is below the 1.5x spike threshold")
	}
}

// ────────────────────────────────────────────────────────────
// Guardrail
// ────────────────────────────────────────────────────────────

func TestGuardrail(t *testing.T) {
	rs := signal.V1 // 75/25

	if ok, _ := Guardrail(signal.BiasBullish, 76, rs); ok {
		t.Error("long with RSI 76 must be vetoed")
	}
	if ok, _ := Guardrail(signal.BiasBullish, 74, rs); !ok {
		t.Error("long with RSI 74 must pass")
	}
	if ok, _ := Guardrail(signal.BiasBearish, 24, rs); ok {
		t.Error("short with RSI 24 must be vetoed")
	}
	if ok, _ := Guardrail(signal.BiasBearish, 26, rs); !ok {
		t.Error("short with RSI 26 must pass")
	}
	// NaN RSI means the indicator is still warming up: no veto.
	if ok, _ := Guardrail(signal.BiasBullish, math.NaN(), rs); !ok {
		t.Error("NaN RSI must not veto")
	}
}

// ────────────────────────────────────────────────────────────
// RSI divergence
// ────────────────────────────────────────────────────────────

func TestRSIDivergence_Bullish(t *testing.T) {
	rs := signal.V1

	// Earlier candle: close 100, RSI 35 (depressed). Latest: lower close,
	// higher RSI. Classic bullish divergence.
	closes := []float64{100, 101, 102, 99}
	rsi := []float64{35, 45, 50, 40}
	bull, bear := RSIDivergence(closes, rsi, rs)
	if !bull {
		t.Error("lower low in price with higher RSI from a depressed base should be bullish divergence")
	}
	if bear {
		t.Error("no bearish divergence expected")
	}
}

func TestRSIDivergence_Bearish(t *testing.T) {
	rs := signal.V1

	closes := []float64{100, 99, 98, 103}
	rsi := []float64{65, 60, 55, 58}
	bull, bear := RSIDivergence(closes, rsi, rs)
	if bull {
		t.Error("no bullish divergence expected")
	}
	if !bear {
		t.Error("higher high in price with lower RSI from an elevated base should be bearish divergence")
	}
}

func TestRSIDivergence_WarmupRSISkipped(t *testing.T) {
	rs := signal.V1

	closes := []float64{100, 99}
	rsi := []float64{math.NaN(), math.NaN()}
	bull, bear := RSIDivergence(closes, rsi, rs)
	if bull || bear {
		t.Error("NaN RSI values must never produce divergence")
	}
}

// ────────────────────────────────────────────────────────────
// Support / resistance levels
// ────────────────────────────────────────────────────────────

func TestFindLevels(t *testing.T) {
	// A V-shaped series: lows descend to 90 at index 5, then recover.
	lows := []float64{100, 98, 96, 94, 92, 90, 92, 94, 96, 98, 100}
	s := make(model.Series, len(lows))
	for i, lo := range lows {
		s[i] = model.Candle{Low: lo, High: lo + 5, Open: lo + 2, Close: lo + 3}
	}
	lv := FindLevels(s, len(s))
	found := false
	for _, sup := range lv.Supports {
		if sup == 90 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected support at 90, got %v", lv.Supports)
	}
}

func TestNearSupportBand(t *testing.T) {
	lv := Levels{Supports: []float64{100}}
	if !lv.NearSupport(100.5) {
		t.Error("price 0.5% above support is within the 1% band")
	}
	if lv.NearSupport(102) {
		t.Error("price 2% above support is outside the band")
	}
	if lv.NearSupport(99) {
		t.Error("price below support is not near support")
	}
}

func TestDoubleBottom(t *testing.T) {
	lv := Levels{Supports: []float64{100, 100.3}}
	if !lv.DoubleBottom(105) {
		t.Error("two supports 0.3% apart with price above is a double bottom")
	}
	lv = Levels{Supports: []float64{100, 103}}
	if lv.DoubleBottom(105) {
		t.Error("supports 3% apart are not a double bottom")
	}
}

func TestFailedBreakout(t *testing.T) {
	s := make(model.Series, 60)
	for i := range s {
		s[i] = model.Candle{Open: 100, High: 101, Low: 99, Close: 100}
	}
	// Swing high at index 30 forms a resistance at 105.
	s[30] = model.Candle{Open: 100, High: 105, Low: 99, Close: 100}
	// Recent candle pokes above 105 and the latest close falls back under.
	s[57] = model.Candle{Open: 104, High: 106, Low: 103, Close: 104}
	s[59] = model.Candle{Open: 103, High: 104, Low: 102, Close: 103}

	lv := FindLevels(s, 50)
	if !lv.FailedBreakout(s) {
		t.Error("high above resistance with close back below should flag a failed breakout")
	}

	// Latest close holding above the resistance is a confirmed breakout, not
	// a failed one, regardless of how many highs pierced the level.
	s[59] = model.Candle{Open: 105, High: 107, Low: 104, Close: 106}
	if lv.FailedBreakout(s) {
		t.Error("close holding above resistance must not flag a failed breakout")
	}
}

// ────────────────────────────────────────────────────────────
// Candlestick patterns
// ────────────────────────────────────────────────────────────

func TestDetectPatterns_Hammer(t *testing.T) {
	s := model.Series{
		// Body 1 (100→101), lower wick 3, upper wick 0.2.
		{Open: 100, High: 101.2, Low: 97, Close: 101},
	}
	bull, bear := DetectPatterns(s)
	if bull != "hammer" {
		t.Errorf("expected hammer, got %q", bull)
	}
	if bear != "" {
		t.Errorf("no bearish pattern expected, got %q", bear)
	}
}

func TestDetectPatterns_ShootingStar(t *testing.T) {
	s := model.Series{
		{Open: 101, High: 104, Low: 99.9, Close: 100},
	}
	_, bear := DetectPatterns(s)
	if bear != "shooting star" {
		t.Errorf("expected shooting star, got %q", bear)
	}
}

func TestDetectPatterns_BullishEngulfing(t *testing.T) {
	s := model.Series{
		{Open: 102, High: 102.5, Low: 99.5, Close: 100}, // red
		{Open: 99.5, High: 103.5, Low: 99, Close: 103},  // green, engulfs
	}
	bull, _ := DetectPatterns(s)
	if bull != "bullish engulfing" {
		t.Errorf("expected bullish engulfing, got %q", bull)
	}
}

func TestDetectPatterns_EveningStar(t *testing.T) {
	s := model.Series{
		{Open: 100, High: 105, Low: 99.5, Close: 104.5},   // strong green
		{Open: 104.8, High: 106, Low: 104.2, Close: 105},  // small star
		{Open: 104.5, High: 104.8, Low: 100.5, Close: 101}, // red past midpoint
	}
	_, bear := DetectPatterns(s)
	if bear != "evening star" {
		t.Errorf("expected evening star, got %q", bear)
	}
}

func TestDetectPatterns_NoPattern(t *testing.T) {
	s := model.Series{
		{Open: 100, High: 101, Low: 99.5, Close: 100.8},
		{Open: 100.8, High: 101.5, Low: 100.5, Close: 101.2},
	}
	bull, bear := DetectPatterns(s)
	if bull != "" || bear != "" {
		t.Errorf("plain candles should detect nothing, got %q/%q", bull, bear)
	}
}

// ────────────────────────────────────────────────────────────
// Entry gate
// ────────────────────────────────────────────────────────────

func TestEvaluateEntry_FlatMarketBlocked(t *testing.T) {
	series := flatSeries(300)
	set := indicator.Compute(series)
	analysis := signal.Evaluate(set, series.Closes(), signal.V1)

	d := EvaluateEntry(series, set, analysis, signal.V1)
	if d.Allowed {
		t.Fatalf("flat market must not allow entry: %+v", d)
	}
	if len(d.Blockers) == 0 {
		t.Error("flat market decision should record at least one blocker")
	}
}

func TestEvaluateEntry_UptrendOpensLong(t *testing.T) {
	series := uptrendSeries(500)
	set := indicator.Compute(series)
	analysis := signal.Evaluate(set, series.Closes(), signal.V1)

	if analysis.Bias != signal.BiasBullish {
		t.Fatalf("500-candle uptrend should read bullish, got %s", analysis.Bias)
	}
	d := EvaluateEntry(series, set, analysis, signal.V1)
	if d.Side != model.SideLong {
		t.Fatalf("expected long side, got %s", d.Side)
	}
	if d.Keys < signal.V1.RequiredKeys {
		t.Errorf("uptrend with volume spike should fire >=%d keys, got %d (%v)",
			signal.V1.RequiredKeys, d.Keys, d.Reasons)
	}
	if !d.Allowed {
		t.Errorf("uptrend entry should be allowed, blockers: %v", d.Blockers)
	}
}

func TestEvaluateEntry_DowntrendOpensShort(t *testing.T) {
	series := downtrendSeries(500)
	set := indicator.Compute(series)
	analysis := signal.Evaluate(set, series.Closes(), signal.V1)

	if analysis.Bias != signal.BiasBearish {
		t.Fatalf("500-candle downtrend should read bearish, got %s", analysis.Bias)
	}
	d := EvaluateEntry(series, set, analysis, signal.V1)
	if d.Side != model.SideShort {
		t.Fatalf("expected short side, got %s", d.Side)
	}
	if d.Keys < signal.V1.RequiredKeys {
		t.Errorf("downtrend should fire >=%d short keys, got %d (%v)",
			signal.V1.RequiredKeys, d.Keys, d.Reasons)
	}
}

func TestEvaluateEntry_GuardrailVeto(t *testing.T) {
	series := uptrendSeries(500)
	set := indicator.Compute(series)
	analysis := signal.Evaluate(set, series.Closes(), signal.V1)
	if analysis.Bias != signal.BiasBullish {
		t.Skip("synthetic series no longer bullish")
	}

	// Force the latest RSI past the guardrail.
	set.RSI14[len(set.RSI14)-1] = 90
	d := EvaluateEntry(series, set, analysis, signal.V1)
	if d.Allowed {
		t.Error("RSI 90 must veto the long entry")
	}
}
