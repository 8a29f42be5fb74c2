package signals

import (
	"fmt"
	"math"

	"TradeSentinel/internal/calculator"
	"TradeSentinel/internal/model"
)

// Mode is the channel regime detected by the hybrid module.
type Mode string

const (
	ModeTrendUp   Mode = "trend-up"
	ModeTrendDown Mode = "trend-down"
	ModeReversion Mode = "reversion"
)

const (
	HybridLookback     = 60
	hybridBandWidth    = 2.0
	hybridSlopeTrigger = 0.08 // percent of midline per bar
	divergenceLookback = 30
)

// HybridResult describes the regression channel and the trade levels derived from it.
type HybridResult struct {
	model.Score
	Mode       Mode               `json:"mode"`
	Channel    calculator.Channel `json:"channel"`
	ZScore     float64            `json:"z_score"`
	EntryLow   float64            `json:"entry_low"`
	EntryHigh  float64            `json:"entry_high"`
	Target1    float64            `json:"target1"`
	Target2    float64            `json:"target2"`
	RSI        float64            `json:"rsi"`
	Divergence bool               `json:"divergence"`
}

// Hybrid fits a linear-regression channel over the last HybridLookback closes and scores the
// symbol as a trend pullback or a mean-reversion setup depending on slope and position.
func Hybrid(bars []model.OHLCV) HybridResult {
	if len(bars) < HybridLookback {
		return HybridResult{Score: model.Unavailable(model.ModuleHybrid, "insufficient price history"), Mode: ModeReversion}
	}
	closes := model.Closes(bars)
	ch, err := calculator.LinearChannel(closes, HybridLookback, hybridBandWidth)
	if err != nil {
		return HybridResult{Score: model.Unavailable(model.ModuleHybrid, "regression failed"), Mode: ModeReversion}
	}
	price := closes[len(closes)-1]
	z := ch.ZScore(price)
	slopePct := ch.SlopePct()

	res := HybridResult{
		Channel:   ch,
		ZScore:    z,
		EntryLow:  ch.Lower,
		EntryHigh: ch.Lower + 0.5*ch.Sigma,
		Target1:   ch.Mid,
		Target2:   ch.Upper,
		RSI:       50,
	}
	rsi, rsiErr := calculator.RSISeries(closes, 14)
	prevRSI := 50.0
	if rsiErr == nil {
		res.RSI = calculator.LastValid(rsi, 50)
		if len(rsi) >= 2 && !math.IsNaN(rsi[len(rsi)-2]) {
			prevRSI = rsi[len(rsi)-2]
		}
		res.Divergence = calculator.BullishDivergence(closes, rsi, divergenceLookback)
	}

	switch {
	case slopePct >= hybridSlopeTrigger && z > -2:
		res.Mode = ModeTrendUp
	case slopePct <= -hybridSlopeTrigger && z < 2:
		res.Mode = ModeTrendDown
	default:
		res.Mode = ModeReversion
	}

	score := 50.0
	factors := []string{fmt.Sprintf("Channel slope %+.2f%%/bar, z=%.2f (%s)", slopePct, z, res.Mode)}
	switch res.Mode {
	case ModeTrendUp:
		score += 10
		switch {
		case z >= -1.5 && z <= 0:
			score += 15
			factors = append(factors, "Uptrend pullback toward channel midline")
		case z > 1.5:
			score -= 5
			factors = append(factors, "Extended above channel")
		}
	case ModeTrendDown:
		score -= 15
		factors = append(factors, "Downtrend channel")
		if res.Divergence {
			score += 5
		}
	case ModeReversion:
		if z <= -1.75 {
			score += 15
			factors = append(factors, "Touching lower band")
		} else if z >= 1.75 {
			score -= 12
			factors = append(factors, "Touching upper band")
		}
		if res.RSI < 35 && res.RSI > prevRSI {
			score += 10
			factors = append(factors, fmt.Sprintf("RSI turning up from %.0f", prevRSI))
		}
		if res.Divergence {
			score += 12
		}
	}
	if res.Divergence {
		factors = append(factors, "Bullish price/RSI divergence")
	}

	if ratio, err := calculator.VolumeRatio(bars, 20); err == nil && ratio > 1.8 && bars[len(bars)-1].Close > bars[len(bars)-1].Open {
		score += 6
		factors = append(factors, fmt.Sprintf("Volume spike %.1fx", ratio))
	}
	if ch.Mid > 0 && ch.Sigma/ch.Mid*100 > 4 {
		score -= 8
		factors = append(factors, "High channel volatility")
	}

	res.Score = model.Scored(model.ModuleHybrid, score, factors)
	return res
}
