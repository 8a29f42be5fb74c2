package calculator

import "math"

// Channel is a least-squares fit over a closing-price window with residual bands.
type Channel struct {
	Slope     float64 // price units per bar
	Intercept float64 // fitted value at the first bar of the window
	Mid       float64 // fitted value at the last bar
	Sigma     float64 // residual standard deviation
	Upper     float64 // Mid + width*Sigma
	Lower     float64 // Mid - width*Sigma
}

// SlopePct is the slope as percent of the midline per bar.
func (c Channel) SlopePct() float64 {
	if c.Mid == 0 {
		return 0
	}
	return c.Slope / c.Mid * 100
}

// ZScore is the distance of price from the midline in residual sigmas.
func (c Channel) ZScore(price float64) float64 {
	if c.Sigma < 1e-9 {
		return 0
	}
	return (price - c.Mid) / c.Sigma
}

// LinearChannel fits closes[len-lookback:] against bar index and returns the channel with bands at
// width sigmas.
func LinearChannel(closes []float64, lookback int, width float64) (Channel, error) {
	if lookback < 3 || len(closes) < lookback {
		return Channel{}, ErrInsufficientData
	}
	window := closes[len(closes)-lookback:]
	n := float64(lookback)

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range window {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return Channel{}, ErrInsufficientData
	}
	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n

	var ss float64
	for i, y := range window {
		r := y - (intercept + slope*float64(i))
		ss += r * r
	}
	sigma := math.Sqrt(ss / n)
	mid := intercept + slope*(n-1)
	return Channel{
		Slope:     slope,
		Intercept: intercept,
		Mid:       mid,
		Sigma:     sigma,
		Upper:     mid + width*sigma,
		Lower:     mid - width*sigma,
	}, nil
}

// BullishDivergence reports whether the two most recent local RSI troughs within the last lookback
// bars show price making a lower low while RSI makes a higher low.
func BullishDivergence(closes, rsi []float64, lookback int) bool {
	troughs := RSITroughs(rsi, lookback)
	if len(troughs) < 2 {
		return false
	}
	a, b := troughs[len(troughs)-2], troughs[len(troughs)-1]
	return closes[b] < closes[a] && rsi[b] > rsi[a]
}

// RSITroughs returns indices of local RSI minima below 50 within the last lookback values.
// The first and last points of the series are never troughs.
func RSITroughs(rsi []float64, lookback int) []int {
	n := len(rsi)
	start := n - lookback
	if start < 1 {
		start = 1
	}
	var out []int
	for i := start; i < n-1; i++ {
		prev, cur, next := rsi[i-1], rsi[i], rsi[i+1]
		if math.IsNaN(prev) || math.IsNaN(cur) || math.IsNaN(next) {
			continue
		}
		if cur < prev && cur <= next && cur < 50 {
			out = append(out, i)
		}
	}
	return out
}

// LastValid returns the last non-NaN value of series, or def.
func LastValid(series []float64, def float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) {
			return series[i]
		}
	}
	return def
}
