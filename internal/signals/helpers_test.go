package signals

import (
	"time"

	"TradeSentinel/internal/model"
)

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func lineBars(n int, start, step float64) []model.OHLCV {
	bars := make([]model.OHLCV, n)
	for i := range bars {
		c := start + float64(i)*step
		bars[i] = model.OHLCV{Time: day0.AddDate(0, 0, i), Open: c, High: c + 0.2, Low: c - 0.2, Close: c, Volume: 1000}
	}
	return bars
}

// monthBars returns 22 bars whose 21-bar percent change equals pct.
func monthBars(pct float64) []model.OHLCV {
	end := 100 * (1 + pct/100)
	return lineBars(22, 100, (end-100)/21)
}

func flatBars(n int, v float64) []model.OHLCV {
	return lineBars(n, v, 0)
}
