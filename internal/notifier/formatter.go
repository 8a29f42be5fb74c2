package notifier

import (
	"fmt"
	"strings"
	"time"

	"TradeSentinel/internal/engine"
	"TradeSentinel/internal/ledger"
	"TradeSentinel/internal/model"
)

// FormatTrades formats the trades one personality executed in a tick.
func FormatTrades(p model.Personality, trades []model.Trade) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🤖 <b>%s</b> | %d trade(s)\n\n", p.Name, len(trades)))
	for _, t := range trades {
		icon := "🟢"
		if t.Action == model.ActionSell {
			icon = "🔴"
		}
		b.WriteString(fmt.Sprintf("%s %s %s %.4g @ $%.2f ($%.2f)\n", icon, t.Action, t.Symbol, t.Shares, t.Price, t.Amount))
		b.WriteString(fmt.Sprintf("   reason: %s | score %.0f\n", t.Reason, t.Score))
		if t.RealizedPnL != nil {
			b.WriteString(fmt.Sprintf("   realized P&L: %+.2f\n", *t.RealizedPnL))
		}
	}
	return b.String()
}

// FormatPortfolio formats a portfolio projection for display.
func FormatPortfolio(pf ledger.Portfolio) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📦 <b>%s</b>\n\n", pf.Name))
	b.WriteString(fmt.Sprintf("Total value: $%.2f (%+.2f%%)\n", pf.TotalValue, pf.PnLPct))
	b.WriteString(fmt.Sprintf("Cash: $%.2f\n", pf.Cash))
	b.WriteString(fmt.Sprintf("Starting capital: $%.2f\n", pf.StartingCapital))
	if len(pf.Positions) == 0 {
		b.WriteString("No open positions\n")
		return b.String()
	}
	b.WriteString("\n<b>Positions:</b>\n")
	for _, p := range pf.Positions {
		b.WriteString(fmt.Sprintf("  %s %.4g @ $%.2f → $%.2f (%+.1f%%)\n",
			p.Symbol, p.Shares, p.AverageCost, p.Price, p.UnrealizedPnLPct))
	}
	return b.String()
}

// FormatRecentTrades lists trades newest first.
func FormatRecentTrades(name string, trades []model.Trade) string {
	if len(trades) == 0 {
		return fmt.Sprintf("📜 <b>%s</b>\n\nNo trades yet", name)
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📜 <b>%s</b> | last %d trade(s)\n\n", name, len(trades)))
	for _, t := range trades {
		b.WriteString(fmt.Sprintf("%s %s %s %.4g @ $%.2f (%s)",
			t.Timestamp.Format("01-02 15:04"), t.Action, t.Symbol, t.Shares, t.Price, t.Reason))
		if t.RealizedPnL != nil {
			b.WriteString(fmt.Sprintf(" %+.2f", *t.RealizedPnL))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatStatus summarizes every personality and the latest decisions.
func FormatStatus(portfolios []ledger.Portfolio, evals []*engine.Evaluation, lastTick time.Time) string {
	var b strings.Builder
	b.WriteString("📊 <b>TradeSentinel status</b>\n")
	if !lastTick.IsZero() {
		b.WriteString(fmt.Sprintf("Last tick: %s\n", lastTick.Format("2006-01-02 15:04")))
	}
	b.WriteString("\n")
	for _, pf := range portfolios {
		b.WriteString(fmt.Sprintf("• %s: $%.2f (%+.2f%%), %d position(s)\n",
			pf.Name, pf.TotalValue, pf.PnLPct, len(pf.Positions)))
	}
	if len(evals) > 0 {
		b.WriteString("\n<b>Signals:</b>\n")
		for _, ev := range evals {
			d := ev.Decision
			b.WriteString(fmt.Sprintf("  %s %.0f %s (%s, %s)\n",
				ev.Symbol, d.CompositeScore, d.CompositeSignal, d.Confidence, d.Regime))
		}
	}
	return b.String()
}
