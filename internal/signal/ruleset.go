// Package signal evaluates indicator values at the latest candle into
// per-indicator votes and aggregates them into a directional bias with a
// confidence score.
//
// Thresholds are not hardcoded in the evaluation logic: they live in a named
// RuleSet so strategy variants are configuration, not forks. The package is
// pure: same inputs, same outputs, no I/O.
package signal

import "fmt"

// RuleSet is a fixed, named tuple of evaluation thresholds. Accounts select
// a rule set by name; the engine resolves it through Lookup.
type RuleSet struct {
	Name string

	// Per-indicator vote thresholds
	RSIOversold        float64 // buy below
	RSIOverbought      float64 // sell above
	StochOversold      float64
	StochOverbought    float64
	BollingerLowPct    float64 // %B buy threshold (0..1)
	BollingerHighPct   float64
	ADXTrendMin        float64 // below this ADX the market is trendless
	WilliamsOversold   float64
	WilliamsOverbought float64
	CMFThreshold       float64
	OBVLookback        int // candles for the OBV trend vote

	// Entry gate
	RequiredKeys  int     // how many directional keys must fire (of 5)
	MinRiskReward float64 // reward:risk acceptance floor

	// Guardrails
	GuardrailRSIHigh float64 // veto longs above
	GuardrailRSILow  float64 // veto shorts below

	// Context filters
	ChopZonePct        float64 // price within this fraction of the EMA spread
	LowVolumePct       float64 // latest volume below this fraction of average
	VolumeSpikeMult    float64 // latest volume above this multiple of average
	DivergenceLookback int
	SRLookback         int

	// Lifecycle thresholds
	TrailStartPct      float64 // profit % of margin before break-even move
	TrailStepPct       float64 // extra profit per ATR-trail tighten
	ATRTrailMult       float64
	SmartExitPnLPct    float64 // profit % enabling the RSI smart exit
	MomentumExitPnLPct float64 // profit % enabling the MACD momentum exit
	LiquidationPct     float64 // margin loss % triggering liquidation
}

// V1 is the canonical rule set. Variant snapshots of this strategy moved the
// guardrail between 75 and 82 and the key count between 3-of-5 and 3-of-6;
// v1 pins 75/25 and 3-of-5.
var V1 = RuleSet{
	Name: "v1",

	RSIOversold:        30,
	RSIOverbought:      70,
	StochOversold:      20,
	StochOverbought:    80,
	BollingerLowPct:    0.2,
	BollingerHighPct:   0.8,
	ADXTrendMin:        25,
	WilliamsOversold:   -80,
	WilliamsOverbought: -20,
	CMFThreshold:       0.05,
	OBVLookback:        10,

	RequiredKeys:  3,
	MinRiskReward: 2.0,

	GuardrailRSIHigh: 75,
	GuardrailRSILow:  25,

	ChopZonePct:        0.2,
	LowVolumePct:       0.4,
	VolumeSpikeMult:    1.5,
	DivergenceLookback: 30,
	SRLookback:         50,

	TrailStartPct:      1.0,
	TrailStepPct:       0.5,
	ATRTrailMult:       1.5,
	SmartExitPnLPct:    15,
	MomentumExitPnLPct: 20,
	LiquidationPct:     -90,
}

// Aggressive loosens the guardrails and key count for faster entries.
// Kept as a registered variant so threshold experiments stay data, not code.
var Aggressive = RuleSet{
	Name: "aggressive",

	RSIOversold:        35,
	RSIOverbought:      65,
	StochOversold:      25,
	StochOverbought:    75,
	BollingerLowPct:    0.25,
	BollingerHighPct:   0.75,
	ADXTrendMin:        20,
	WilliamsOversold:   -75,
	WilliamsOverbought: -25,
	CMFThreshold:       0.03,
	OBVLookback:        10,

	RequiredKeys:  2,
	MinRiskReward: 1.5,

	GuardrailRSIHigh: 82,
	GuardrailRSILow:  18,

	ChopZonePct:        0.15,
	LowVolumePct:       0.3,
	VolumeSpikeMult:    1.3,
	DivergenceLookback: 30,
	SRLookback:         50,

	TrailStartPct:      1.0,
	TrailStepPct:       0.5,
	ATRTrailMult:       1.5,
	SmartExitPnLPct:    15,
	MomentumExitPnLPct: 20,
	LiquidationPct:     -90,
}

var registry = map[string]RuleSet{
	V1.Name:         V1,
	Aggressive.Name: Aggressive,
}

// Lookup resolves a rule set by name.
func Lookup(name string) (RuleSet, error) {
	rs, ok := registry[name]
	if !ok {
		return RuleSet{}, fmt.Errorf("unknown rule set %q", name)
	}
	return rs, nil
}
