package strategy

import (
	"math"

	"papertraderv1/internal/model"
)

const (
	wickToBodyMin   = 2.0 // dominant wick at least 2x the body
	oppositeWickMax = 0.5 // opposite wick under half the body
	starBodyMax     = 0.3 // middle star candle body vs its range
)

// DetectPatterns checks the last candles for classic reversal patterns and
// returns the strongest bullish and bearish pattern names ("" if none).
// Three-candle patterns take precedence over two-candle, which take
// precedence over single-candle.
func DetectPatterns(series model.Series) (bullish, bearish string) {
	n := len(series)
	if n == 0 {
		return "", ""
	}

	if n >= 3 {
		a, b, c := series[n-3], series[n-2], series[n-1]
		if isMorningStar(a, b, c) {
			bullish = "morning star"
		}
		if isEveningStar(a, b, c) {
			bearish = "evening star"
		}
	}
	if n >= 2 && (bullish == "" || bearish == "") {
		prev, cur := series[n-2], series[n-1]
		if bullish == "" && isBullishEngulfing(prev, cur) {
			bullish = "bullish engulfing"
		}
		if bearish == "" && isBearishEngulfing(prev, cur) {
			bearish = "bearish engulfing"
		}
	}
	last := series[n-1]
	if bullish == "" && isHammer(last) {
		bullish = "hammer"
	}
	if bearish == "" && isShootingStar(last) {
		bearish = "shooting star"
	}
	return bullish, bearish
}

func body(c model.Candle) float64  { return math.Abs(c.Close - c.Open) }
func upper(c model.Candle) float64 { return c.High - math.Max(c.Open, c.Close) }
func lower(c model.Candle) float64 { return math.Min(c.Open, c.Close) - c.Low }

// isHammer: long lower wick (≥2x body), short upper wick (<0.5x body).
func isHammer(c model.Candle) bool {
	b := body(c)
	if b == 0 {
		return false
	}
	return lower(c) >= b*wickToBodyMin && upper(c) < b*oppositeWickMax
}

// isShootingStar: long upper wick (≥2x body), short lower wick (<0.5x body).
func isShootingStar(c model.Candle) bool {
	b := body(c)
	if b == 0 {
		return false
	}
	return upper(c) >= b*wickToBodyMin && lower(c) < b*oppositeWickMax
}

// isBullishEngulfing: a red candle fully engulfed and reversed by a green one.
func isBullishEngulfing(prev, cur model.Candle) bool {
	return prev.Close < prev.Open && cur.Close > cur.Open &&
		cur.Open <= prev.Close && cur.Close >= prev.Open
}

// isBearishEngulfing: a green candle fully engulfed and reversed by a red one.
func isBearishEngulfing(prev, cur model.Candle) bool {
	return prev.Close > prev.Open && cur.Close < cur.Open &&
		cur.Open >= prev.Close && cur.Close <= prev.Open
}

// isMorningStar: strong red, small-bodied star, then a green candle closing
// past the midpoint of the first body.
func isMorningStar(a, b, c model.Candle) bool {
	if !(a.Close < a.Open) || !(c.Close > c.Open) {
		return false
	}
	if !smallBody(b) {
		return false
	}
	mid := (a.Open + a.Close) / 2
	return c.Close > mid
}

// isEveningStar: mirror of the morning star.
func isEveningStar(a, b, c model.Candle) bool {
	if !(a.Close > a.Open) || !(c.Close < c.Open) {
		return false
	}
	if !smallBody(b) {
		return false
	}
	mid := (a.Open + a.Close) / 2
	return c.Close < mid
}

// smallBody: body under starBodyMax of the candle's full range.
func smallBody(c model.Candle) bool {
	rng := c.High - c.Low
	if rng == 0 {
		return true
	}
	return body(c)/rng < starBodyMax
}
