package model

import (
	"encoding/json"
	"time"
)

// Candle represents one OHLCV candle for a single symbol.
// Time is the bucket open time in unix seconds; candles in a series are
// strictly increasing in Time with a fixed interval.
type Candle struct {
	Time   int64   `json:"time"` // unix seconds
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// TS returns the candle open time as a time.Time in UTC.
func (c *Candle) TS() time.Time {
	return time.Unix(c.Time, 0).UTC()
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

// Series is an ordered candle sequence with convenience extractors.
// The extractors return parallel arrays aligned with the candle index,
// which is the contract the indicator package operates on.
type Series []Candle

// Closes returns the close price of every candle, index-aligned.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Close
	}
	return out
}

// Highs returns the high price of every candle, index-aligned.
func (s Series) Highs() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.High
	}
	return out
}

// Lows returns the low price of every candle, index-aligned.
func (s Series) Lows() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Low
	}
	return out
}

// Volumes returns the volume of every candle, index-aligned.
func (s Series) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Volume
	}
	return out
}
