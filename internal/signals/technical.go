package signals

import (
	"fmt"

	"TradeSentinel/internal/calculator"
	"TradeSentinel/internal/model"
)

// Trend is the coarse direction classification of the technical module.
type Trend string

const (
	TrendBull    Trend = "Bull"
	TrendBear    Trend = "Bear"
	TrendNeutral Trend = "Neutral"
)

const technicalMinBars = 21

// TechnicalResult is the momentum score plus the indicators behind it.
type TechnicalResult struct {
	model.Score
	Trend       Trend   `json:"trend"`
	Price       float64 `json:"price"`
	RSI         float64 `json:"rsi"`
	SMA20       float64 `json:"sma20"`
	SMA50       float64 `json:"sma50,omitempty"`
	SMA200      float64 `json:"sma200,omitempty"`
	Change5d    float64 `json:"change_5d"`
	Change20d   float64 `json:"change_20d"`
	Volatility  float64 `json:"volatility"`
	VolumeRatio float64 `json:"volume_ratio"`
}

// Technical scores price-vs-average positioning, average ordering, RSI zone, 5/20-day momentum and a
// volume/volatility structure term. Needs at least 21 daily bars.
func Technical(bars []model.OHLCV, quote *model.Quote) TechnicalResult {
	if len(bars) < technicalMinBars {
		return TechnicalResult{Score: model.Unavailable(model.ModuleTechnical, "insufficient price history"), Trend: TrendNeutral}
	}
	closes := model.Closes(bars)
	price := lastClose(bars)
	if quote != nil && quote.Price > 0 {
		price = quote.Price
	}

	res := TechnicalResult{Price: price}
	res.SMA20, _ = calculator.CalculateSMA(closes, 20)
	res.SMA50, _ = calculator.CalculateSMA(closes, 50)
	res.SMA200, _ = calculator.CalculateSMA(closes, 200)
	res.RSI, _ = calculator.CalculateRSI(closes, 14)
	res.Change5d, _ = calculator.PercentChange(closes, 5)
	res.Change20d, _ = calculator.PercentChange(closes, 20)

	score := 50.0
	var factors []string

	// Price vs moving averages
	score += aboveBelow(price, res.SMA20, 5)
	if res.SMA50 > 0 {
		score += aboveBelow(price, res.SMA50, 7)
	}
	if res.SMA200 > 0 {
		score += aboveBelow(price, res.SMA200, 8)
		if price > res.SMA200 {
			factors = append(factors, "Price above 200-day average")
		} else {
			factors = append(factors, "Price below 200-day average")
		}
	}

	// Moving average ordering
	switch {
	case res.SMA200 > 0 && res.SMA20 > res.SMA50 && res.SMA50 > res.SMA200:
		score += 8
		factors = append(factors, "Bullish MA alignment (20>50>200)")
	case res.SMA200 > 0 && res.SMA20 < res.SMA50 && res.SMA50 < res.SMA200:
		score -= 8
		factors = append(factors, "Bearish MA alignment (20<50<200)")
	case res.SMA200 == 0 && res.SMA50 > 0 && res.SMA20 > res.SMA50:
		score += 4
	case res.SMA200 == 0 && res.SMA50 > 0 && res.SMA20 < res.SMA50:
		score -= 4
	}

	// RSI zone
	switch {
	case res.RSI < 30:
		score += 8
		factors = append(factors, fmt.Sprintf("RSI oversold (%.0f)", res.RSI))
	case res.RSI < 45:
		score += 3
	case res.RSI < 60:
		score += 5
		factors = append(factors, fmt.Sprintf("RSI healthy (%.0f)", res.RSI))
	case res.RSI <= 70:
		score += 2
	default:
		score -= 8
		factors = append(factors, fmt.Sprintf("RSI overbought (%.0f)", res.RSI))
	}

	// Momentum
	switch {
	case res.Change5d > 3:
		score += 5
	case res.Change5d > 0:
		score += 2
	case res.Change5d < -3:
		score -= 5
	case res.Change5d < 0:
		score -= 2
	}
	switch {
	case res.Change20d > 8:
		score += 7
		factors = append(factors, fmt.Sprintf("Strong 20-day momentum %+.1f%%", res.Change20d))
	case res.Change20d > 0:
		score += 3
	case res.Change20d < -8:
		score -= 7
		factors = append(factors, fmt.Sprintf("Weak 20-day momentum %+.1f%%", res.Change20d))
	case res.Change20d < 0:
		score -= 3
	}

	// Structure
	if ratio, err := calculator.VolumeRatio(bars, 20); err == nil {
		res.VolumeRatio = ratio
		if ratio > 1.5 {
			if closes[len(closes)-1] >= closes[len(closes)-2] {
				score += 4
				factors = append(factors, fmt.Sprintf("Volume %.1fx average on an up day", ratio))
			} else {
				score -= 4
				factors = append(factors, fmt.Sprintf("Volume %.1fx average on a down day", ratio))
			}
		}
	}
	if vol, err := calculator.AnnualizedVolatility(closes, 20); err == nil {
		res.Volatility = vol
		switch {
		case vol > 60:
			score -= 5
			factors = append(factors, fmt.Sprintf("High volatility %.0f%%", vol))
		case vol < 25:
			score += 2
		}
	}

	res.Trend = classifyTrend(price, res.SMA50, res.SMA200, res.RSI)
	factors = append([]string{fmt.Sprintf("Trend %s", res.Trend)}, factors...)
	res.Score = model.Scored(model.ModuleTechnical, score, factors)
	return res
}

func aboveBelow(price, avg, points float64) float64 {
	if avg <= 0 {
		return 0
	}
	if price > avg {
		return points
	}
	return -points
}

func classifyTrend(price, sma50, sma200 float64, rsi float64) Trend {
	if sma50 <= 0 {
		return TrendNeutral
	}
	above := price > sma50
	below := price < sma50
	if sma200 > 0 {
		above = above && price > sma200
		below = below && price < sma200
	}
	switch {
	case above && rsi > 50:
		return TrendBull
	case below && rsi < 50:
		return TrendBear
	default:
		return TrendNeutral
	}
}
