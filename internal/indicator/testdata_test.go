package indicator

import (
	"math"

	"papertraderv1/internal/model"
)

// syntheticSeries builds a deterministic wavy candle series for tests:
// a gentle uptrend with a sine overlay so every indicator sees both gains
// and losses.
func syntheticSeries(n int) model.Series {
	series := make(model.Series, n)
	for i := 0; i < n; i++ {
		base := 100 + float64(i)*0.1 + math.Sin(float64(i)/5)*2
		series[i] = model.Candle{
			Time:   1700000000 + int64(i)*900,
			Open:   base - 0.2,
			High:   base + 1,
			Low:    base - 1,
			Close:  base,
			Volume: 1000 + float64(i%10)*50,
		}
	}
	return series
}
