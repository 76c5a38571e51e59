package indicator

const (
	sarAFStart = 0.02
	sarAFStep  = 0.02
	sarAFMax   = 0.2
)

// ParabolicSAR calculates the Parabolic Stop-and-Reverse series as an
// explicit fold over the candle index: the acceleration factor starts at
// 0.02, increments by 0.02 on every new extreme point up to a 0.2 cap, and
// the trend flips when price crosses the current SAR. The initial trend is
// assumed rising with SAR seeded at the first low.
func ParabolicSAR(highs, lows []float64) []float64 {
	n := len(highs)
	if n == 0 {
		return nil
	}
	out := make([]float64, n)

	rising := true
	sar := lows[0]
	ep := highs[0]
	af := sarAFStart
	out[0] = sar

	for i := 1; i < n; i++ {
		sar = sar + af*(ep-sar)

		if rising {
			// SAR may never rise above the prior two lows
			if sar > lows[i-1] {
				sar = lows[i-1]
			}
			if i >= 2 && sar > lows[i-2] {
				sar = lows[i-2]
			}
			if lows[i] < sar {
				// Flip to falling: SAR restarts at the prior extreme
				rising = false
				sar = ep
				ep = lows[i]
				af = sarAFStart
			} else if highs[i] > ep {
				ep = highs[i]
				af = min(af+sarAFStep, sarAFMax)
			}
		} else {
			if sar < highs[i-1] {
				sar = highs[i-1]
			}
			if i >= 2 && sar < highs[i-2] {
				sar = highs[i-2]
			}
			if highs[i] > sar {
				rising = true
				sar = ep
				ep = highs[i]
				af = sarAFStart
			} else if lows[i] < ep {
				ep = lows[i]
				af = min(af+sarAFStep, sarAFMax)
			}
		}

		out[i] = sar
	}
	return out
}
