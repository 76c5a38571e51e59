// Package risk validates the reward:risk geometry of a proposed entry
// before any balance is committed.
package risk

import "papertraderv1/internal/model"

// Check is the outcome of a reward:risk validation.
type Check struct {
	Valid  bool
	Ratio  float64
	Risk   float64 // per-unit distance entry -> stop
	Reward float64 // per-unit distance entry -> target
	Reason string
}

// Validate measures the stop and target distances from entry for the given
// side and accepts the trade when reward/risk meets minRatio. The comparison
// is inclusive: a ratio exactly at the floor passes. Degenerate geometry
// (zero or negative risk, stop or target on the wrong side) is rejected
// outright rather than divided through.
func Validate(side model.Side, entry, stop, target, minRatio float64) Check {
	var risk, reward float64
	if side == model.SideShort {
		risk = stop - entry
		reward = entry - target
	} else {
		risk = entry - stop
		reward = target - entry
	}

	c := Check{Risk: risk, Reward: reward}
	if risk <= 0 {
		c.Reason = "stop on the wrong side of entry"
		return c
	}
	if reward <= 0 {
		c.Reason = "target on the wrong side of entry"
		return c
	}
	c.Ratio = reward / risk
	if c.Ratio < minRatio {
		c.Reason = "reward:risk below minimum"
		return c
	}
	c.Valid = true
	return c
}
