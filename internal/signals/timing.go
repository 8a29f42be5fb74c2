package signals

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"TradeSentinel/internal/model"
)

// seasonality is the historical average month-of-year bias, in score points.
var seasonality = map[time.Month]float64{
	time.January:   3,
	time.February:  -1,
	time.March:     2,
	time.April:     5,
	time.May:       0,
	time.June:      -1,
	time.July:      4,
	time.August:    -2,
	time.September: -6,
	time.October:   1,
	time.November:  6,
	time.December:  4,
}

// exchange is the calendar the weekday and month-end rules follow.
var exchange = loadExchange()

func loadExchange() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*60*60)
	}
	return loc
}

// TimingResult describes calendar effects on the entry.
type TimingResult struct {
	model.Score
	DaysToEarnings *int    `json:"days_to_earnings,omitempty"`
	SeasonalBias   float64 `json:"seasonal_bias"`
	WeekdayRisk    string  `json:"weekday_risk,omitempty"`
	MarketClosed   bool    `json:"market_closed"`
	MonthEnd       bool    `json:"month_end"`
}

// Timing penalizes upcoming earnings, applies seasonality and weekday risk, and adds a month-end bonus.
// The earnings date is optional. now is read in exchange (New York) time.
func Timing(now time.Time, earnings *time.Time) TimingResult {
	now = now.In(exchange)
	res := TimingResult{}
	score := 50.0
	var factors []string

	if earnings != nil {
		days := daysBetween(now, *earnings)
		if days >= 0 {
			res.DaysToEarnings = &days
			switch {
			case days <= 3:
				score -= 20
				factors = append(factors, fmt.Sprintf("Earnings in %d days", days))
			case days <= 7:
				score -= 12
				factors = append(factors, fmt.Sprintf("Earnings in %d days", days))
			case days <= 14:
				score -= 5
				factors = append(factors, fmt.Sprintf("Earnings in %d days", days))
			}
		}
	} else {
		factors = append(factors, "Earnings date unknown")
	}

	res.SeasonalBias = seasonality[now.Month()]
	score += res.SeasonalBias
	if res.SeasonalBias != 0 {
		factors = append(factors, fmt.Sprintf("%s seasonality %+.0f", now.Month(), res.SeasonalBias))
	}

	switch now.Weekday() {
	case time.Monday:
		score -= 3
		res.WeekdayRisk = "week-open"
	case time.Friday:
		score -= 2
		res.WeekdayRisk = "week-close"
	case time.Saturday, time.Sunday:
		score -= 5
		res.WeekdayRisk = "market-closed"
		res.MarketClosed = true
	}
	if res.WeekdayRisk != "" {
		factors = append(factors, fmt.Sprintf("Weekday risk: %s", res.WeekdayRisk))
	}

	lastDay := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location()).Day()
	if now.Day() >= lastDay-2 {
		score += 3
		res.MonthEnd = true
		factors = append(factors, "Month-end inflows")
	}

	res.Score = model.Scored(model.ModuleTiming, score, factors)
	return res
}

func daysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
