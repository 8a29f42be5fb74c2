package recorder

import (
	"time"

	"TradeSentinel/internal/model"
)

// DecisionEvent holds one evaluated symbol for one personality tick.
type DecisionEvent struct {
	PersonalityID string
	Symbol        string
	Price         float64
	Decision      *model.Decision
}

// TickEvent summarizes one personality tick.
type TickEvent struct {
	PersonalityID string
	Evaluated     int
	Buys          int
	Sells         int
	Missed        int
	Errors        int
	Cash          float64
	TotalValue    float64
	Duration      time.Duration
}

// Recorder persists historical data for analysis. It is write-only; the ledger store owns state.
type Recorder interface {
	RecordTrade(personalityID string, t *model.Trade) error
	RecordDecision(evt *DecisionEvent) error
	RecordTick(evt *TickEvent) error
	Close() error
}
