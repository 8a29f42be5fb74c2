package calculator

import (
	"errors"

	"github.com/markcheno/go-talib"

	"TradeSentinel/internal/model"
)

// ErrInsufficientData is returned when a series is shorter than the requested period.
var ErrInsufficientData = errors.New("not enough data")

// CalculateSMA computes the simple moving average of the last period prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, ErrInsufficientData
	}
	if period == 1 {
		return prices[len(prices)-1], nil
	}
	series := talib.Sma(prices, period)
	return series[len(series)-1], nil
}

// BarsSMA returns the SMA of bar closes.
func BarsSMA(bars []model.OHLCV, period int) (float64, error) {
	return CalculateSMA(model.Closes(bars), period)
}

// AverageVolume returns the mean volume of the last period bars, excluding the latest bar.
func AverageVolume(bars []model.OHLCV, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(bars) < period+1 {
		return 0, ErrInsufficientData
	}
	sum := 0.0
	for i := len(bars) - 1 - period; i < len(bars)-1; i++ {
		sum += bars[i].Volume
	}
	return sum / float64(period), nil
}

// VolumeRatio is the latest bar's volume over the average of the prior period bars.
func VolumeRatio(bars []model.OHLCV, period int) (float64, error) {
	avg, err := AverageVolume(bars, period)
	if err != nil {
		return 0, err
	}
	if avg <= 0 {
		return 0, errors.New("zero average volume")
	}
	return bars[len(bars)-1].Volume / avg, nil
}
