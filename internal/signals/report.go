package signals

import (
	"time"

	"TradeSentinel/internal/model"
)

// Report holds the output of every module for one symbol.
type Report struct {
	Symbol      string            `json:"symbol"`
	Fundamental FundamentalResult `json:"fundamental"`
	Technical   TechnicalResult   `json:"technical"`
	Hybrid      HybridResult      `json:"hybrid"`
	Macro       MacroResult       `json:"macro"`
	Sector      SectorResult      `json:"sector"`
	Timing      TimingResult      `json:"timing"`
}

// Analyze runs all six modules. It never fails: modules without input report Unavailable.
func Analyze(in Inputs) Report {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	var sector string
	var earnings *time.Time
	if in.Fundamentals != nil {
		sector = in.Fundamentals.Sector
		earnings = in.Fundamentals.EarningsDate
	}
	return Report{
		Symbol:      in.Symbol,
		Fundamental: Fundamental(in.Fundamentals),
		Technical:   Technical(in.Bars, in.Quote),
		Hybrid:      Hybrid(in.Bars),
		Macro:       Macro(in.Market),
		Sector:      Sector(sector, in.Market),
		Timing:      Timing(now, earnings),
	}
}

// Scores returns the module scores in weight-slot order.
func (r Report) Scores() []model.Score {
	return []model.Score{
		r.Fundamental.Score,
		r.Technical.Score,
		r.Hybrid.Score,
		r.Macro.Score,
		r.Sector.Score,
		r.Timing.Score,
	}
}

// Available counts modules that produced a real score.
func (r Report) Available() int {
	n := 0
	for _, s := range r.Scores() {
		if s.Available {
			n++
		}
	}
	return n
}
