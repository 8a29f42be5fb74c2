package signals

import (
	"fmt"

	"TradeSentinel/internal/calculator"
	"TradeSentinel/internal/model"
)

// MacroRegime is the broad risk appetite label of the macro module.
type MacroRegime string

const (
	MacroRiskOn  MacroRegime = "Risk-On"
	MacroNeutral MacroRegime = "Neutral"
	MacroRiskOff MacroRegime = "Risk-Off"
)

const (
	// HighVolatility forces Risk-Off regardless of the composite.
	HighVolatility = 30.0
	// ElevatedVolatility triggers a volatility alert in decisions.
	ElevatedVolatility = 25.0

	macroVolWeight      = 0.35
	macroTrendWeight    = 0.40
	macroRotationWeight = 0.25
)

// MacroResult blends volatility, benchmark trend and sector rotation.
type MacroResult struct {
	model.Score
	Regime          MacroRegime `json:"regime"`
	VolatilityLevel float64     `json:"volatility_level"`
	HasVolatility   bool        `json:"has_volatility"`
	VolatilityScore float64     `json:"volatility_score"`
	TrendScore      float64     `json:"trend_score"`
	RotationScore   float64     `json:"rotation_score"`
}

// Macro scores the market backdrop. Components without data drop out and the remaining weights are
// renormalized; with no component at all the module is unavailable.
func Macro(mkt MarketContext) MacroResult {
	res := MacroResult{Regime: MacroNeutral}
	var factors []string
	var weighted, weights float64

	if len(mkt.Volatility) > 0 {
		res.HasVolatility = true
		res.VolatilityLevel = lastClose(mkt.Volatility)
		res.VolatilityScore = volatilityBucket(res.VolatilityLevel)
		weighted += res.VolatilityScore * macroVolWeight
		weights += macroVolWeight
		factors = append(factors, fmt.Sprintf("Volatility index %.1f", res.VolatilityLevel))
	}

	if trend, note, ok := benchmarkTrend(mkt.Benchmark); ok {
		res.TrendScore = trend
		weighted += trend * macroTrendWeight
		weights += macroTrendWeight
		factors = append(factors, note)
	}

	if rot, diff, ok := rotation(mkt); ok {
		res.RotationScore = rot
		weighted += rot * macroRotationWeight
		weights += macroRotationWeight
		factors = append(factors, fmt.Sprintf("Offensive minus defensive 1M return %+.1f%%", diff))
	}

	if weights == 0 {
		res.Score = model.Unavailable(model.ModuleMacro, "macro data unavailable")
		return res
	}
	composite := weighted / weights
	switch {
	case composite >= 60:
		res.Regime = MacroRiskOn
	case composite >= 40:
		res.Regime = MacroNeutral
	default:
		res.Regime = MacroRiskOff
	}
	if res.HasVolatility && res.VolatilityLevel > HighVolatility {
		res.Regime = MacroRiskOff
		factors = append(factors, "Volatility above panic threshold")
	}
	factors = append([]string{fmt.Sprintf("Macro regime %s", res.Regime)}, factors...)
	res.Score = model.Scored(model.ModuleMacro, composite, factors)
	return res
}

func volatilityBucket(level float64) float64 {
	switch {
	case level < 15:
		return 80
	case level < 20:
		return 65
	case level < 25:
		return 45
	case level < 30:
		return 30
	default:
		return 15
	}
}

func benchmarkTrend(bars []model.OHLCV) (float64, string, bool) {
	closes := model.Closes(bars)
	sma50, err := calculator.CalculateSMA(closes, 50)
	if err != nil {
		return 0, "", false
	}
	price := closes[len(closes)-1]
	score := 50.0 + aboveBelow(price, sma50, 15)
	note := "Benchmark above 50-day average"
	if price <= sma50 {
		note = "Benchmark below 50-day average"
	}
	if sma200, err := calculator.CalculateSMA(closes, 200); err == nil {
		score += aboveBelow(price, sma200, 20)
	}
	if mom, err := calculator.PercentChange(closes, 20); err == nil {
		switch {
		case mom > 3:
			score += 10
		case mom < -3:
			score -= 10
		}
	}
	return model.Clamp(score, 0, 100), note, true
}

func rotation(mkt MarketContext) (float64, float64, bool) {
	var offSum, defSum float64
	var offN, defN int
	for _, r := range RankSectors(mkt) {
		switch r.Lean {
		case LeanOffensive:
			offSum += r.Return
			offN++
		case LeanDefensive:
			defSum += r.Return
			defN++
		}
	}
	if offN == 0 || defN == 0 {
		return 0, 0, false
	}
	diff := offSum/float64(offN) - defSum/float64(defN)
	switch {
	case diff > 2:
		return 75, diff, true
	case diff > 0:
		return 60, diff, true
	case diff > -2:
		return 45, diff, true
	default:
		return 30, diff, true
	}
}
