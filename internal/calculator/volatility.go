package calculator

import (
	"errors"
	"math"

	"github.com/markcheno/go-talib"

	"TradeSentinel/internal/model"
)

// DailyReturns converts closes into simple returns. Non-positive bases are skipped.
func DailyReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 {
			continue
		}
		out = append(out, closes[i]/closes[i-1]-1)
	}
	return out
}

// AnnualizedVolatility is the population stddev of the last period daily returns, scaled to a
// 252-day year and expressed in percent.
func AnnualizedVolatility(closes []float64, period int) (float64, error) {
	if period < 2 {
		return 0, errors.New("period must be at least 2")
	}
	returns := DailyReturns(closes)
	if len(returns) < period {
		return 0, ErrInsufficientData
	}
	sd := talib.StdDev(returns, period, 1.0)
	return sd[len(sd)-1] * math.Sqrt(252) * 100, nil
}

// Choppiness computes the choppiness index over period bars (0-100). Values above ~60 indicate a
// sideways market, values below ~40 a directional one.
func Choppiness(bars []model.OHLCV, period int) (float64, error) {
	if period < 2 {
		return 0, errors.New("period must be at least 2")
	}
	if len(bars) < period+1 {
		return 0, ErrInsufficientData
	}
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	for i, b := range bars {
		highs[i], lows[i], closes[i] = b.High, b.Low, b.Close
	}
	tr := talib.TRange(highs, lows, closes)

	sumTR := 0.0
	for i := len(bars) - period; i < len(bars); i++ {
		sumTR += tr[i]
	}
	high, low, _ := CalculateRange(bars, period)
	span := high - low
	if span <= 0 || sumTR <= 0 {
		return 100, nil
	}
	ci := 100 * math.Log10(sumTR/span) / math.Log10(float64(period))
	return model.Clamp(ci, 0, 100), nil
}
