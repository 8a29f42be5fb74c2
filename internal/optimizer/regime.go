package optimizer

import (
	"math"

	"TradeSentinel/internal/calculator"
	"TradeSentinel/internal/model"
	"TradeSentinel/internal/signals"
)

// Regime thresholds.
const (
	RiskOffMacro     = 35.0
	TrendTechnical   = 65.0
	TrendMaxChop     = 45.0
	ChopMin          = 60.0
	NewsShockMinimum = 60.0

	chopPeriod = 14
)

// Inputs is the signal state the regime classifier looks at.
type Inputs struct {
	MacroScore         float64             `json:"macro_score"`
	MacroAvailable     bool                `json:"macro_available"`
	MacroRegime        signals.MacroRegime `json:"macro_regime"`
	TechnicalScore     float64             `json:"technical_score"`
	TechnicalAvailable bool                `json:"technical_available"`
	Chop               float64             `json:"chop"`
	HasChop            bool                `json:"has_chop"`
	News               float64             `json:"news"`
	HasNews            bool                `json:"has_news"`
}

// InputsFrom extracts classifier inputs from a module report, the symbol's bars and optional news.
func InputsFrom(rep signals.Report, bars []model.OHLCV, news *model.Sentiment) Inputs {
	in := Inputs{
		MacroScore:         rep.Macro.Value,
		MacroAvailable:     rep.Macro.Available,
		MacroRegime:        rep.Macro.Regime,
		TechnicalScore:     rep.Technical.Value,
		TechnicalAvailable: rep.Technical.Available,
	}
	if chop, err := calculator.Choppiness(bars, chopPeriod); err == nil && !math.IsNaN(chop) {
		in.Chop = chop
		in.HasChop = true
	}
	if news != nil {
		in.News = news.Score
		in.HasNews = true
	}
	return in
}

// DetectRegime applies the rules in priority order: Risk-Off, News-Shock, Trend, Chop, Neutral.
func DetectRegime(in Inputs) model.Regime {
	switch {
	case in.MacroAvailable && (in.MacroScore < RiskOffMacro || in.MacroRegime == signals.MacroRiskOff):
		return model.RegimeRiskOff
	case in.HasNews && math.Abs(in.News) >= NewsShockMinimum:
		return model.RegimeNewsShock
	case in.TechnicalAvailable && in.TechnicalScore >= TrendTechnical && in.HasChop && in.Chop < TrendMaxChop:
		return model.RegimeTrend
	case in.HasChop && in.Chop >= ChopMin:
		return model.RegimeChop
	default:
		return model.RegimeNeutral
	}
}
