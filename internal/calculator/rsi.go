package calculator

import (
	"errors"
	"math"

	"github.com/markcheno/go-talib"
)

// CalculateRSI returns the latest Wilder-smoothed RSI over the given period.
// Requires at least period+1 closes. Returns 50.0 if data is insufficient.
func CalculateRSI(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(closes) < period+1 {
		return 50.0, nil
	}
	series, err := RSISeries(closes, period)
	if err != nil {
		return 0, err
	}
	return LastValid(series, 50.0), nil
}

// RSISeries returns an RSI value aligned with every close. The warm-up prefix is NaN.
func RSISeries(closes []float64, period int) ([]float64, error) {
	if period <= 1 {
		return nil, errors.New("period must be greater than 1")
	}
	if len(closes) < period+1 {
		return nil, ErrInsufficientData
	}
	series := talib.Rsi(closes, period)
	for i := 0; i < period && i < len(series); i++ {
		series[i] = math.NaN()
	}
	// talib reports 0 when neither gains nor losses exist yet; that is a neutral 50.
	fell := false
	for i := 1; i < len(closes); i++ {
		if closes[i] < closes[i-1] {
			fell = true
		}
		if i >= period && !fell && series[i] == 0 {
			series[i] = 50
		}
	}
	return series, nil
}
