package ledger

import (
	"sort"
	"strings"

	"TradeSentinel/internal/model"
)

// PositionView is a position marked at a price.
type PositionView struct {
	model.Position
	Price            float64 `json:"price"`
	MarketValue      float64 `json:"market_value"`
	UnrealizedPnL    float64 `json:"unrealized_pnl"`
	UnrealizedPnLPct float64 `json:"unrealized_pnl_pct"`
}

// Portfolio is a read-only projection of the ledger at given prices.
type Portfolio struct {
	PersonalityID   string         `json:"personality_id"`
	Name            string         `json:"name"`
	Cash            float64        `json:"cash"`
	PositionsValue  float64        `json:"positions_value"`
	TotalValue      float64        `json:"total_value"`
	StartingCapital float64        `json:"starting_capital"`
	PnL             float64        `json:"pnl"`
	PnLPct          float64        `json:"pnl_pct"`
	Positions       []PositionView `json:"positions"`
	TradeCount      int            `json:"trade_count"`
}

// Stats summarizes trade history.
type Stats struct {
	Trades      int     `json:"trades"`
	Buys        int     `json:"buys"`
	Sells       int     `json:"sells"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	WinRate     float64 `json:"win_rate"`
	RealizedPnL float64 `json:"realized_pnl"`
}

// Portfolio marks every position at prices[symbol], falling back to the last traded price.
// It never mutates the ledger.
func (l *Ledger) Portfolio(prices map[string]float64) Portfolio {
	snap := l.Snapshot()
	out := Portfolio{
		PersonalityID:   l.personality.ID,
		Name:            l.personality.Name,
		Cash:            snap.Cash,
		StartingCapital: snap.StartingCapital,
		Positions:       make([]PositionView, 0, len(snap.Positions)),
		TradeCount:      len(snap.Trades),
	}
	for sym, p := range snap.Positions {
		price := p.CurrentPrice
		if v, ok := prices[sym]; ok && validPrice(v) {
			price = v
		} else if v, ok := prices[strings.ToLower(sym)]; ok && validPrice(v) {
			price = v
		}
		view := PositionView{
			Position:         *p,
			Price:            price,
			MarketValue:      p.MarketValue(price),
			UnrealizedPnL:    p.UnrealizedPnL(price),
			UnrealizedPnLPct: p.UnrealizedPnLPct(price),
		}
		view.Position.CurrentPrice = price
		out.PositionsValue += view.MarketValue
		out.Positions = append(out.Positions, view)
	}
	sort.Slice(out.Positions, func(i, j int) bool { return out.Positions[i].Symbol < out.Positions[j].Symbol })

	out.TotalValue = out.Cash + out.PositionsValue
	out.PnL = out.TotalValue - out.StartingCapital
	if out.StartingCapital > 0 {
		out.PnLPct = out.PnL / out.StartingCapital * 100
	}
	return out
}

// Stats counts trades and closed-trade outcomes.
func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	var s Stats
	for _, t := range l.state.Trades {
		s.Trades++
		switch t.Action {
		case model.ActionBuy:
			s.Buys++
		case model.ActionSell:
			s.Sells++
			if t.RealizedPnL == nil {
				continue
			}
			s.RealizedPnL += *t.RealizedPnL
			if *t.RealizedPnL > 0 {
				s.Wins++
			} else {
				s.Losses++
			}
		}
	}
	if closed := s.Wins + s.Losses; closed > 0 {
		s.WinRate = float64(s.Wins) / float64(closed) * 100
	}
	return s
}
