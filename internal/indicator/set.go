package indicator

import "papertraderv1/internal/model"

// Standard periods used by the analysis pipeline.
const (
	EMAFastPeriod   = 50
	EMASlowPeriod   = 200
	SMAPeriod       = 20
	RSIPeriod       = 14
	MACDFast        = 12
	MACDSlow        = 26
	MACDSignal      = 9
	BollingerPeriod = 20
	BollingerMult   = 2.0
	StochPeriod     = 14
	StochSmoothK    = 3
	StochSmoothD    = 3
	ATRPeriod       = 14
	WilliamsPeriod  = 14
	ADXPeriod       = 14
	CMFPeriod       = 20
)

// Set holds every indicator series for one candle series, index-aligned:
// value i of any array corresponds to candle i. Warm-up indices hold NaN
// (see package doc for which indicators have a warm-up at all).
type Set struct {
	EMA50     []float64
	EMA200    []float64
	SMA20     []float64
	RSI14     []float64
	MACD      MACDResult
	Bollinger BollingerResult
	Stoch     StochasticResult
	ATR14     []float64
	OBV       []float64
	WilliamsR []float64
	ADX       ADXResult
	SAR       []float64
	CMF20     []float64
	VWAP      []float64
}

// Compute runs every indicator over the series with the standard periods.
func Compute(series model.Series) *Set {
	closes := series.Closes()
	highs := series.Highs()
	lows := series.Lows()
	volumes := series.Volumes()

	return &Set{
		EMA50:     EMA(closes, EMAFastPeriod),
		EMA200:    EMA(closes, EMASlowPeriod),
		SMA20:     SMA(closes, SMAPeriod),
		RSI14:     RSI(closes, RSIPeriod),
		MACD:      MACD(closes, MACDFast, MACDSlow, MACDSignal),
		Bollinger: Bollinger(closes, BollingerPeriod, BollingerMult),
		Stoch:     Stochastic(highs, lows, closes, StochPeriod, StochSmoothK, StochSmoothD),
		ATR14:     ATR(highs, lows, closes, ATRPeriod),
		OBV:       OBV(closes, volumes),
		WilliamsR: WilliamsR(highs, lows, closes, WilliamsPeriod),
		ADX:       ADX(highs, lows, closes, ADXPeriod),
		SAR:       ParabolicSAR(highs, lows),
		CMF20:     CMF(highs, lows, closes, volumes, CMFPeriod),
		VWAP:      VWAP(highs, lows, closes, volumes),
	}
}
