package model

// Personality configures one simulated trader.
type Personality struct {
	ID                   string   `yaml:"id" json:"id"`
	Name                 string   `yaml:"name" json:"name"`
	Symbols              []string `yaml:"symbols" json:"symbols"`
	StartingCapital      float64  `yaml:"starting_capital" json:"starting_capital"`
	BuyScoreThreshold    float64  `yaml:"buy_score_threshold" json:"buy_score_threshold"`
	SellScoreThreshold   float64  `yaml:"sell_score_threshold" json:"sell_score_threshold"`
	PositionSizeFraction float64  `yaml:"position_size_fraction" json:"position_size_fraction"`
	MaxPositions         int      `yaml:"max_positions" json:"max_positions"`
	StopLossPct          float64  `yaml:"stop_loss_pct" json:"stop_loss_pct"`
	TakeProfitPct        float64  `yaml:"take_profit_pct" json:"take_profit_pct"`
}
