package signals

import (
	"time"

	"TradeSentinel/internal/model"
)

// MarketContext is the market-wide data shared by every symbol in a tick.
// Any field may be empty when its fetch failed.
type MarketContext struct {
	Benchmark  []model.OHLCV            `json:"benchmark,omitempty"`
	Volatility []model.OHLCV            `json:"volatility,omitempty"`
	Sectors    map[string][]model.OHLCV `json:"sectors,omitempty"`
	FetchedAt  time.Time                `json:"fetched_at"`
}

// Empty reports whether no market series was fetched at all.
func (m MarketContext) Empty() bool {
	return len(m.Benchmark) == 0 && len(m.Volatility) == 0 && len(m.Sectors) == 0
}

// Inputs carries everything the modules may use for one symbol. Only Now is mandatory;
// each module declares which of the remaining fields it needs.
type Inputs struct {
	Symbol       string
	Quote        *model.Quote
	Bars         []model.OHLCV
	Fundamentals *model.Fundamentals
	Market       MarketContext
	Now          time.Time
}

// Price returns the quote price, falling back to the last close.
func (in Inputs) Price() (float64, bool) {
	if in.Quote != nil && in.Quote.Price > 0 {
		return in.Quote.Price, true
	}
	if n := len(in.Bars); n > 0 && in.Bars[n-1].Close > 0 {
		return in.Bars[n-1].Close, true
	}
	return 0, false
}

func lastClose(bars []model.OHLCV) float64 {
	if len(bars) == 0 {
		return 0
	}
	return bars[len(bars)-1].Close
}
