package model

import "time"

// Action is the side of a trade.
type Action string

const (
	ActionBuy  Action = "Buy"
	ActionSell Action = "Sell"
)

// Position is the single aggregated lot held for a symbol. Shares stay strictly positive while present.
type Position struct {
	Symbol       string    `json:"symbol"`
	Shares       float64   `json:"shares"`
	AverageCost  float64   `json:"average_cost"`
	CurrentPrice float64   `json:"current_price"`
	OpenedAt     time.Time `json:"opened_at"`
}

// CostBasis is shares times average cost.
func (p Position) CostBasis() float64 { return p.Shares * p.AverageCost }

// MarketValue is shares times the given price.
func (p Position) MarketValue(price float64) float64 { return p.Shares * price }

// UnrealizedPnL at price.
func (p Position) UnrealizedPnL(price float64) float64 { return (price - p.AverageCost) * p.Shares }

// UnrealizedPnLPct at price, in percent of cost.
func (p Position) UnrealizedPnLPct(price float64) float64 {
	if p.AverageCost <= 0 {
		return 0
	}
	return (price - p.AverageCost) / p.AverageCost * 100
}

// Trade is an immutable execution record.
type Trade struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	Action      Action    `json:"action"`
	Price       float64   `json:"price"`
	Shares      float64   `json:"shares"`
	Amount      float64   `json:"amount"`
	Timestamp   time.Time `json:"timestamp"`
	Reason      string    `json:"reason"`
	Score       float64   `json:"score"`
	RealizedPnL *float64  `json:"realized_pnl,omitempty"`
}

// LedgerState is the persisted form of a ledger. Trades are ordered most-recent-first.
type LedgerState struct {
	PersonalityID   string               `json:"personality_id"`
	StartingCapital float64              `json:"starting_capital"`
	Cash            float64              `json:"cash"`
	Positions       map[string]*Position `json:"positions"`
	Trades          []Trade              `json:"trades"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}
