package model

// Regime selects the base weight table.
type Regime string

const (
	RegimeNeutral   Regime = "Neutral"
	RegimeTrend     Regime = "Trend"
	RegimeChop      Regime = "Chop"
	RegimeRiskOff   Regime = "Risk-Off"
	RegimeNewsShock Regime = "News-Shock"
)

// Signal is the label attached to a 0-100 score.
type Signal string

const (
	SignalStrongBuy  Signal = "Strong-Buy"
	SignalBuy        Signal = "Buy"
	SignalHold       Signal = "Hold"
	SignalSell       Signal = "Sell"
	SignalStrongSell Signal = "Strong-Sell"
)

// Confidence grades agreement between the long and short horizon scores.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// Decision is recomputed every tick for every symbol and never persisted as state.
type Decision struct {
	Symbol          string     `json:"symbol"`
	CoreScore       float64    `json:"core_score"`
	PulseScore      float64    `json:"pulse_score"`
	NewsScore       float64    `json:"news_score"`
	CompositeScore  float64    `json:"composite_score"`
	CoreSignal      Signal     `json:"core_signal"`
	PulseSignal     Signal     `json:"pulse_signal"`
	CompositeSignal Signal     `json:"composite_signal"`
	Confidence      Confidence `json:"confidence"`
	Contributing    int        `json:"contributing"`
	Regime          Regime     `json:"regime"`
	Explanation     []string   `json:"explanation"`
	ActionItems     []string   `json:"action_items"`
	Warnings        []string   `json:"warnings,omitempty"`
}
