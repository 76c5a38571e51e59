package signal

import (
	"fmt"
	"math"

	"papertraderv1/internal/indicator"
)

// Vote is a single indicator's directional opinion.
type Vote string

const (
	VoteBuy     Vote = "buy"
	VoteSell    Vote = "sell"
	VoteNeutral Vote = "neutral"
)

// Bias is the aggregate directional lean.
type Bias string

const (
	BiasBullish Bias = "Bullish"
	BiasBearish Bias = "Bearish"
	BiasNeutral Bias = "Neutral"
)

// Signal is one indicator's evaluation at the latest candle.
type Signal struct {
	Name         string `json:"name"`
	Vote         Vote   `json:"vote"`
	DisplayValue string `json:"display_value"`
	Description  string `json:"description"`
}

// Analysis aggregates all indicator votes at the latest candle. It is
// recomputed from scratch every evaluation; there is no incremental state.
type Analysis struct {
	Signals      []Signal `json:"signals"`
	BullishCount int      `json:"bullish_count"`
	BearishCount int      `json:"bearish_count"`
	TotalCount   int      `json:"total_count"`
	Confidence   int      `json:"confidence"` // 0..100
	Bias         Bias     `json:"bias"`
}

// Evaluate classifies every indicator at the latest candle index and tallies
// the votes. Indicators whose latest value is the NaN warm-up sentinel are
// skipped entirely: they neither vote nor count toward the total.
func Evaluate(set *indicator.Set, closes []float64, rs RuleSet) *Analysis {
	a := &Analysis{}
	last := len(closes) - 1
	if last < 0 {
		a.Confidence = 50
		a.Bias = BiasNeutral
		return a
	}
	price := closes[last]

	a.add(evalRSI(set.RSI14[last], rs))
	a.add(evalMACD(set.MACD, last))
	a.add(evalEMACross(set.EMA50[last], set.EMA200[last]))
	a.add(evalBollinger(set.Bollinger, price, last, rs))
	a.add(evalStochastic(set.Stoch, last, rs))
	a.add(evalADX(set.ADX, last, rs))
	a.add(evalWilliams(set.WilliamsR[last], rs))
	a.add(evalCMF(set.CMF20[last], rs))
	a.add(evalSAR(set.SAR[last], price))
	a.add(evalOBV(set.OBV, last, rs.OBVLookback))

	if a.TotalCount == 0 {
		a.Confidence = 50
	} else {
		strongest := a.BullishCount
		if a.BearishCount > strongest {
			strongest = a.BearishCount
		}
		a.Confidence = int(math.Round(float64(strongest) / float64(a.TotalCount) * 100))
	}

	switch {
	case a.BullishCount > a.BearishCount:
		a.Bias = BiasBullish
	case a.BearishCount > a.BullishCount:
		a.Bias = BiasBearish
	default:
		a.Bias = BiasNeutral
	}
	return a
}

// add records a signal unless it was skipped (nil).
func (a *Analysis) add(s *Signal) {
	if s == nil {
		return
	}
	a.Signals = append(a.Signals, *s)
	a.TotalCount++
	switch s.Vote {
	case VoteBuy:
		a.BullishCount++
	case VoteSell:
		a.BearishCount++
	}
}

func evalRSI(v float64, rs RuleSet) *Signal {
	if math.IsNaN(v) {
		return nil
	}
	s := &Signal{Name: "RSI", Vote: VoteNeutral, DisplayValue: fmt.Sprintf("%.1f", v)}
	switch {
	case v < rs.RSIOversold:
		s.Vote = VoteBuy
		s.Description = fmt.Sprintf("RSI %.1f oversold (< %.0f)", v, rs.RSIOversold)
	case v > rs.RSIOverbought:
		s.Vote = VoteSell
		s.Description = fmt.Sprintf("RSI %.1f overbought (> %.0f)", v, rs.RSIOverbought)
	default:
		s.Description = fmt.Sprintf("RSI %.1f in neutral zone", v)
	}
	return s
}

func evalMACD(m indicator.MACDResult, last int) *Signal {
	if last < 1 {
		return nil
	}
	line, sig := m.Line[last], m.Signal[last]
	prevLine, prevSig := m.Line[last-1], m.Signal[last-1]
	s := &Signal{Name: "MACD", DisplayValue: fmt.Sprintf("%.4f", line-sig)}

	switch {
	case prevLine <= prevSig && line > sig:
		s.Vote = VoteBuy
		s.Description = "MACD bullish cross"
	case prevLine >= prevSig && line < sig:
		s.Vote = VoteSell
		s.Description = "MACD bearish cross"
	case line > sig:
		s.Vote = VoteBuy
		s.Description = "MACD line above signal"
	case line < sig:
		s.Vote = VoteSell
		s.Description = "MACD line below signal"
	default:
		s.Vote = VoteNeutral
		s.Description = "MACD line on signal"
	}
	return s
}

func evalEMACross(fast, slow float64) *Signal {
	s := &Signal{Name: "EMA", DisplayValue: fmt.Sprintf("%.2f/%.2f", fast, slow)}
	switch {
	case fast > slow:
		s.Vote = VoteBuy
		s.Description = "EMA50 above EMA200 (uptrend)"
	case fast < slow:
		s.Vote = VoteSell
		s.Description = "EMA50 below EMA200 (downtrend)"
	default:
		s.Vote = VoteNeutral
		s.Description = "EMA50 equals EMA200"
	}
	return s
}

func evalBollinger(b indicator.BollingerResult, price float64, last int, rs RuleSet) *Signal {
	upper, lower := b.Upper[last], b.Lower[last]
	if math.IsNaN(upper) || math.IsNaN(lower) {
		return nil
	}
	band := upper - lower
	pos := 0.5
	if band > 0 {
		pos = (price - lower) / band
	}
	s := &Signal{Name: "Bollinger", DisplayValue: fmt.Sprintf("%.0f%%", pos*100)}
	switch {
	case pos < rs.BollingerLowPct:
		s.Vote = VoteBuy
		s.Description = "price near lower Bollinger band"
	case pos > rs.BollingerHighPct:
		s.Vote = VoteSell
		s.Description = "price near upper Bollinger band"
	default:
		s.Vote = VoteNeutral
		s.Description = "price inside Bollinger bands"
	}
	return s
}

func evalStochastic(st indicator.StochasticResult, last int, rs RuleSet) *Signal {
	k := st.K[last]
	if math.IsNaN(k) {
		return nil
	}
	s := &Signal{Name: "Stochastic", DisplayValue: fmt.Sprintf("%.1f", k)}
	switch {
	case k < rs.StochOversold:
		s.Vote = VoteBuy
		s.Description = fmt.Sprintf("stochastic %%K %.1f oversold", k)
	case k > rs.StochOverbought:
		s.Vote = VoteSell
		s.Description = fmt.Sprintf("stochastic %%K %.1f overbought", k)
	default:
		s.Vote = VoteNeutral
		s.Description = "stochastic in neutral zone"
	}
	return s
}

func evalADX(adx indicator.ADXResult, last int, rs RuleSet) *Signal {
	v := adx.ADX[last]
	if math.IsNaN(v) {
		return nil
	}
	s := &Signal{Name: "ADX", DisplayValue: fmt.Sprintf("%.1f", v)}
	if v <= rs.ADXTrendMin {
		s.Vote = VoteNeutral
		s.Description = fmt.Sprintf("ADX %.1f, no trend", v)
		return s
	}
	if adx.PlusDI[last] > adx.MinusDI[last] {
		s.Vote = VoteBuy
		s.Description = fmt.Sprintf("ADX %.1f trending, +DI dominant", v)
	} else {
		s.Vote = VoteSell
		s.Description = fmt.Sprintf("ADX %.1f trending, -DI dominant", v)
	}
	return s
}

func evalWilliams(v float64, rs RuleSet) *Signal {
	if math.IsNaN(v) {
		return nil
	}
	s := &Signal{Name: "Williams %R", DisplayValue: fmt.Sprintf("%.1f", v)}
	switch {
	case v < rs.WilliamsOversold:
		s.Vote = VoteBuy
		s.Description = fmt.Sprintf("Williams %%R %.1f oversold", v)
	case v > rs.WilliamsOverbought:
		s.Vote = VoteSell
		s.Description = fmt.Sprintf("Williams %%R %.1f overbought", v)
	default:
		s.Vote = VoteNeutral
		s.Description = "Williams %R in neutral zone"
	}
	return s
}

func evalCMF(v float64, rs RuleSet) *Signal {
	if math.IsNaN(v) {
		return nil
	}
	s := &Signal{Name: "CMF", DisplayValue: fmt.Sprintf("%.3f", v)}
	switch {
	case v > rs.CMFThreshold:
		s.Vote = VoteBuy
		s.Description = "money flow positive"
	case v < -rs.CMFThreshold:
		s.Vote = VoteSell
		s.Description = "money flow negative"
	default:
		s.Vote = VoteNeutral
		s.Description = "money flow flat"
	}
	return s
}

func evalSAR(sar, price float64) *Signal {
	if math.IsNaN(sar) {
		return nil
	}
	s := &Signal{Name: "Parabolic SAR", DisplayValue: fmt.Sprintf("%.2f", sar)}
	if price > sar {
		s.Vote = VoteBuy
		s.Description = "price above SAR (uptrend)"
	} else {
		s.Vote = VoteSell
		s.Description = "price below SAR (downtrend)"
	}
	return s
}

func evalOBV(obv []float64, last, lookback int) *Signal {
	if last < lookback {
		return nil
	}
	cur, prev := obv[last], obv[last-lookback]
	s := &Signal{Name: "OBV", DisplayValue: fmt.Sprintf("%.0f", cur)}
	switch {
	case cur > prev:
		s.Vote = VoteBuy
		s.Description = fmt.Sprintf("OBV rising over %d candles", lookback)
	case cur < prev:
		s.Vote = VoteSell
		s.Description = fmt.Sprintf("OBV falling over %d candles", lookback)
	default:
		s.Vote = VoteNeutral
		s.Description = "OBV flat"
	}
	return s
}
