package signal

import (
	"math"
	"testing"

	"papertraderv1/internal/indicator"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

func fill(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

// fullSet builds a 12-candle indicator set where every voter leans bullish:
// oversold oscillators, fast EMA above slow, price hugging the lower band,
// rising OBV, price above SAR.
func fullSet(n int) *indicator.Set {
	obv := make([]float64, n)
	for i := range obv {
		obv[i] = float64(i)
	}
	return &indicator.Set{
		EMA50:  fill(n, 110),
		EMA200: fill(n, 100),
		RSI14:  fill(n, 25),
		MACD: indicator.MACDResult{
			Line:      fill(n, 1),
			Signal:    fill(n, 0),
			Histogram: fill(n, 1),
		},
		Bollinger: indicator.BollingerResult{
			Upper:  fill(n, 110),
			Middle: fill(n, 104.5),
			Lower:  fill(n, 99),
		},
		Stoch: indicator.StochasticResult{
			K: fill(n, 10),
			D: fill(n, 12),
		},
		ADX: indicator.ADXResult{
			ADX:     fill(n, 30),
			PlusDI:  fill(n, 25),
			MinusDI: fill(n, 10),
		},
		WilliamsR: fill(n, -90),
		CMF20:     fill(n, 0.1),
		SAR:       fill(n, 95),
		OBV:       obv,
	}
}

func countVotes(a *Analysis, name string) Vote {
	for _, s := range a.Signals {
		if s.Name == name {
			return s.Vote
		}
	}
	return ""
}

// ────────────────────────────────────────────────────────────
// Aggregation
// ────────────────────────────────────────────────────────────

func TestEvaluateAllBullish(t *testing.T) {
	n := 12
	set := fullSet(n)
	closes := fill(n, 100)

	a := Evaluate(set, closes, V1)

	if a.TotalCount != 10 {
		t.Fatalf("total voters: got %d, want 10", a.TotalCount)
	}
	if a.BullishCount != 10 || a.BearishCount != 0 {
		t.Errorf("votes: %d bull / %d bear, want 10/0", a.BullishCount, a.BearishCount)
	}
	if a.Confidence != 100 {
		t.Errorf("confidence: got %d, want 100", a.Confidence)
	}
	if a.Bias != BiasBullish {
		t.Errorf("bias: got %s, want %s", a.Bias, BiasBullish)
	}
}

func TestEvaluateWarmupIndicatorsSkipped(t *testing.T) {
	n := 12
	set := fullSet(n)
	last := n - 1

	// NaN at the latest index means the indicator has not warmed up yet.
	// It must neither vote nor count toward the total.
	set.RSI14[last] = math.NaN()
	set.Bollinger.Upper[last] = math.NaN()
	set.Stoch.K[last] = math.NaN()
	set.ADX.ADX[last] = math.NaN()
	set.WilliamsR[last] = math.NaN()
	set.CMF20[last] = math.NaN()
	set.SAR[last] = math.NaN()

	a := Evaluate(set, fill(n, 100), V1)

	// Remaining voters: MACD, EMA cross, OBV.
	if a.TotalCount != 3 {
		t.Fatalf("total voters: got %d, want 3", a.TotalCount)
	}
	if a.BullishCount != 3 {
		t.Errorf("bullish votes: got %d, want 3", a.BullishCount)
	}
	if a.Confidence != 100 {
		t.Errorf("confidence over remaining voters: got %d, want 100", a.Confidence)
	}
}

func TestEvaluateEmptySeries(t *testing.T) {
	a := Evaluate(&indicator.Set{}, nil, V1)

	if a.TotalCount != 0 {
		t.Errorf("total voters: got %d, want 0", a.TotalCount)
	}
	if a.Confidence != 50 {
		t.Errorf("confidence with no voters: got %d, want 50", a.Confidence)
	}
	if a.Bias != BiasNeutral {
		t.Errorf("bias: got %s, want %s", a.Bias, BiasNeutral)
	}
}

func TestEvaluateTiedVotesAreNeutral(t *testing.T) {
	n := 12
	set := fullSet(n)

	// Push everything except EMA (buy) and SAR into neutral, then flip SAR
	// to a sell so the tally ties 1-1.
	set.RSI14 = fill(n, 50)
	set.MACD.Line = fill(n, 0)
	set.MACD.Signal = fill(n, 0)
	set.Bollinger.Lower = fill(n, 90)
	set.Bollinger.Upper = fill(n, 110) // price 100 sits mid-band
	set.Stoch.K = fill(n, 50)
	set.ADX.ADX = fill(n, 10) // trendless
	set.WilliamsR = fill(n, -50)
	set.CMF20 = fill(n, 0)
	set.SAR = fill(n, 105) // price below SAR
	set.OBV = fill(n, 5)   // flat

	a := Evaluate(set, fill(n, 100), V1)

	if a.BullishCount != 1 || a.BearishCount != 1 {
		t.Fatalf("votes: %d bull / %d bear, want 1/1", a.BullishCount, a.BearishCount)
	}
	if a.Bias != BiasNeutral {
		t.Errorf("bias on tie: got %s, want %s", a.Bias, BiasNeutral)
	}
	if a.Confidence != 10 {
		t.Errorf("confidence: got %d, want 10 (1 of 10 voters)", a.Confidence)
	}
}

func TestEvaluateMACDCrossOverridesLevel(t *testing.T) {
	n := 12
	set := fullSet(n)
	last := n - 1

	// Line crosses the signal between the previous and latest candle.
	set.MACD.Line = fill(n, -1)
	set.MACD.Line[last] = 1
	set.MACD.Signal = fill(n, 0)

	a := Evaluate(set, fill(n, 100), V1)

	if got := countVotes(a, "MACD"); got != VoteBuy {
		t.Fatalf("MACD vote: got %s, want %s", got, VoteBuy)
	}
	for _, s := range a.Signals {
		if s.Name == "MACD" && s.Description != "MACD bullish cross" {
			t.Errorf("MACD description: got %q, want cross, not level", s.Description)
		}
	}
}

// ────────────────────────────────────────────────────────────
// Rule set registry
// ────────────────────────────────────────────────────────────

func TestLookupKnownRuleSets(t *testing.T) {
	for _, name := range []string{"v1", "aggressive"} {
		rs, err := Lookup(name)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", name, err)
		}
		if rs.Name != name {
			t.Errorf("Lookup(%q).Name = %q", name, rs.Name)
		}
		if rs.RequiredKeys <= 0 || rs.MinRiskReward <= 0 {
			t.Errorf("rule set %q has unusable gate thresholds: %+v", name, rs)
		}
	}
}

func TestLookupUnknownRuleSet(t *testing.T) {
	if _, err := Lookup("yolo"); err == nil {
		t.Fatal("expected error for unknown rule set")
	}
}
