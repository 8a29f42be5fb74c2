package calculator

import (
	"errors"
	"math"

	"TradeSentinel/internal/model"
)

// TradingDays52w is the lookback used for 52-week statistics.
const TradingDays52w = 252

// CalculateRange scans the most recent lookback bars and returns the high and low.
func CalculateRange(bars []model.OHLCV, lookback int) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no bars provided")
	}
	n := len(bars)
	start := n - lookback
	if start < 0 {
		start = 0
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < n; i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
		if bars[i].Low < low {
			low = bars[i].Low
		}
	}
	return high, low, nil
}

// RangePosition returns where current sits within [low,high] (0.0~1.0).
func RangePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	return model.Clamp((current-low)/(high-low), 0, 1), nil
}

// PercentChange returns the percent change between the close lookback bars ago and the last close.
func PercentChange(closes []float64, lookback int) (float64, error) {
	if lookback <= 0 {
		return 0, errors.New("lookback must be positive")
	}
	if len(closes) < lookback+1 {
		return 0, ErrInsufficientData
	}
	base := closes[len(closes)-1-lookback]
	if base == 0 {
		return 0, errors.New("zero base price")
	}
	return (closes[len(closes)-1] - base) / base * 100, nil
}
