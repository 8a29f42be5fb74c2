package synthesizer

import (
	"fmt"
	"math"

	"TradeSentinel/internal/model"
	"TradeSentinel/internal/signals"
)

type band int

const (
	bandLow band = iota
	bandMid
	bandHigh
)

func bandOf(score float64) band {
	switch {
	case score >= 65:
		return bandHigh
	case score < 35:
		return bandLow
	default:
		return bandMid
	}
}

type rule struct {
	summary string
	actions []string
}

// rules is keyed by [core band][pulse band].
var rules = [3][3]rule{
	bandLow: {
		bandLow:  {"Both horizons bearish", []string{"Exit or avoid; preserve capital"}},
		bandMid:  {"Weak fundamentals without momentum", []string{"Avoid new entries", "Review any existing position"}},
		bandHigh: {"Speculative rally in a weak name", []string{"Short-term trades only", "Take profits quickly"}},
	},
	bandMid: {
		bandLow:  {"Short-term weakness in an average name", []string{"Avoid new entries", "Tighten stops on existing holdings"}},
		bandMid:  {"Mixed signals, no clear edge", []string{"Hold; no new positions"}},
		bandHigh: {"Momentum leading without fundamental support", []string{"Trade momentum with tight stops", "Avoid oversizing"}},
	},
	bandHigh: {
		bandLow:  {"Quality name in a short-term downdraft", []string{"Wait for pulse to recover above 50 before entering"}},
		bandMid:  {"Solid long-horizon case, momentum unconfirmed", []string{"Build a starter position", "Add when momentum confirms"}},
		bandHigh: {"Long and short horizons agree bullish", []string{"Accumulate on pullbacks", "Set stop below recent support"}},
	},
}

const (
	sectorCallout = 3.0
	newsCallout   = 30.0
	stockVolAlert = 60.0
	earningsAlert = 7
)

func explain(d *model.Decision, rep signals.Report, hasNews bool) {
	r := rules[bandOf(d.CoreScore)][bandOf(d.PulseScore)]
	d.Explanation = []string{
		fmt.Sprintf("Core %.0f (%s), pulse %.0f (%s), composite %.0f in %s regime",
			d.CoreScore, d.CoreSignal, d.PulseScore, d.PulseSignal, d.CompositeScore, d.Regime),
		r.summary,
	}
	d.ActionItems = append([]string(nil), r.actions...)

	if d.Contributing < minContributing {
		d.Warnings = append(d.Warnings, fmt.Sprintf("Only %d modules reported", d.Contributing))
	}

	if rep.Macro.Available && rep.Macro.Regime == signals.MacroRiskOff {
		d.Warnings = append(d.Warnings, "Macro backdrop is Risk-Off; reduce exposure")
	}

	if rep.Sector.Available {
		switch {
		case rep.Sector.RelativeStrength >= sectorCallout:
			d.Explanation = append(d.Explanation, fmt.Sprintf("Sector %s outperforming benchmark by %.1f%%", rep.Sector.ETF, rep.Sector.RelativeStrength))
		case rep.Sector.RelativeStrength <= -sectorCallout:
			d.Warnings = append(d.Warnings, fmt.Sprintf("Sector %s lagging benchmark by %.1f%%", rep.Sector.ETF, -rep.Sector.RelativeStrength))
		}
	}

	if rep.Macro.HasVolatility && rep.Macro.VolatilityLevel > signals.ElevatedVolatility {
		d.Warnings = append(d.Warnings, fmt.Sprintf("Elevated market volatility (%.1f)", rep.Macro.VolatilityLevel))
	}
	if rep.Technical.Available && rep.Technical.Volatility > stockVolAlert {
		d.Warnings = append(d.Warnings, fmt.Sprintf("High stock volatility %.0f%%; size down", rep.Technical.Volatility))
	}

	if rep.Hybrid.Available {
		if rep.Hybrid.Divergence {
			d.Explanation = append(d.Explanation, "Bullish price/RSI divergence")
		}
		if d.CompositeScore >= 50 {
			d.ActionItems = append(d.ActionItems, fmt.Sprintf("Entry zone %.2f-%.2f, targets %.2f / %.2f",
				rep.Hybrid.EntryLow, rep.Hybrid.EntryHigh, rep.Hybrid.Target1, rep.Hybrid.Target2))
		}
	}

	if days := rep.Timing.DaysToEarnings; days != nil && *days <= earningsAlert {
		d.Warnings = append(d.Warnings, fmt.Sprintf("Earnings in %d days", *days))
	}

	if hasNews && math.Abs(d.NewsScore) > newsCallout {
		if d.NewsScore > 0 {
			d.Explanation = append(d.Explanation, fmt.Sprintf("Positive news flow (%+.0f) supports the view", d.NewsScore))
		} else {
			d.Explanation = append(d.Explanation, fmt.Sprintf("Negative news flow (%+.0f) weighs on the view", d.NewsScore))
		}
	}
}
