package model

import "time"

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Quote is the latest traded price for a symbol.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Volume        *float64  `json:"volume,omitempty"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// Fundamentals carries balance-sheet and valuation ratios. Every ratio is optional.
// ProfitMargin, ROE and DividendYield are fractions (0.12 = 12%); DebtToEquity is a plain ratio.
type Fundamentals struct {
	PERatio       *float64   `json:"pe_ratio,omitempty"`
	PBRatio       *float64   `json:"pb_ratio,omitempty"`
	ROE           *float64   `json:"roe,omitempty"`
	ProfitMargin  *float64   `json:"profit_margin,omitempty"`
	DebtToEquity  *float64   `json:"debt_to_equity,omitempty"`
	CurrentRatio  *float64   `json:"current_ratio,omitempty"`
	DividendYield *float64   `json:"dividend_yield,omitempty"`
	Sector        string     `json:"sector"`
	EarningsDate  *time.Time `json:"earnings_date,omitempty"`
}

// Sentiment is an externally supplied news score in [-100,100].
type Sentiment struct {
	Score   float64 `json:"score"`
	Summary string  `json:"summary"`
}

// Float returns a pointer to v. Handy for building Fundamentals literals.
func Float(v float64) *float64 { return &v }

// Closes extracts the close column of bars.
func Closes(bars []OHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
