package signals

import (
	"fmt"

	"TradeSentinel/internal/model"
)

const (
	maxProfitability = 35.0
	maxHealth        = 30.0
	maxValuation     = 35.0

	debtRiskThreshold    = 3.0
	liquidityRiskCurrent = 0.8
)

// FundamentalResult breaks the fundamental score into its three capped sections.
type FundamentalResult struct {
	model.Score
	Profitability float64 `json:"profitability"`
	Health        float64 `json:"health"`
	Valuation     float64 `json:"valuation"`
}

// Fundamental scores profitability (max 35), balance-sheet health (max 30) and valuation (max 35).
// A missing ratio earns half of its tier maximum; the dividend bonus is only ever additive.
func Fundamental(f *model.Fundamentals) FundamentalResult {
	if f == nil || !hasAnyRatio(f) {
		return FundamentalResult{Score: model.Unavailable(model.ModuleFundamental, "fundamentals unavailable")}
	}
	var factors []string

	// Profitability
	margin := tier(f.ProfitMargin, 10, func(m float64) float64 {
		switch {
		case m >= 0.20:
			return 20
		case m >= 0.10:
			return 14
		case m >= 0.05:
			return 8
		case m > 0:
			return 4
		default:
			return 0
		}
	})
	roe := tier(f.ROE, 7.5, func(r float64) float64 {
		switch {
		case r >= 0.20:
			return 15
		case r >= 0.15:
			return 11
		case r >= 0.10:
			return 7
		case r > 0:
			return 3
		default:
			return 0
		}
	})
	profitability := model.Clamp(margin+roe, 0, maxProfitability)
	if f.ProfitMargin != nil {
		factors = append(factors, fmt.Sprintf("Profit margin %.1f%%", *f.ProfitMargin*100))
	}
	if f.ROE != nil {
		factors = append(factors, fmt.Sprintf("ROE %.1f%%", *f.ROE*100))
	}

	// Balance-sheet health
	debt := tier(f.DebtToEquity, 9, func(d float64) float64 {
		switch {
		case d < 0.5:
			return 18
		case d < 1:
			return 14
		case d < 1.5:
			return 9
		case d < 2:
			return 5
		default:
			return 0
		}
	})
	if f.DebtToEquity != nil && *f.DebtToEquity > debtRiskThreshold {
		debt -= 5
		factors = append(factors, fmt.Sprintf("High leverage: debt/equity %.2f", *f.DebtToEquity))
	}
	current := tier(f.CurrentRatio, 6, func(c float64) float64 {
		switch {
		case c >= 2:
			return 12
		case c >= 1.5:
			return 9
		case c >= 1:
			return 5
		default:
			return 0
		}
	})
	if f.CurrentRatio != nil && *f.CurrentRatio < liquidityRiskCurrent {
		current -= 5
		factors = append(factors, fmt.Sprintf("Liquidity risk: current ratio %.2f", *f.CurrentRatio))
	}
	health := model.Clamp(debt+current, 0, maxHealth)

	// Valuation
	pe := tier(f.PERatio, 9, func(p float64) float64 {
		switch {
		case p <= 0:
			return 0
		case p < 15:
			return 18
		case p < 20:
			return 14
		case p < 25:
			return 10
		case p < 35:
			return 5
		default:
			return 0
		}
	})
	pb := tier(f.PBRatio, 5, func(b float64) float64 {
		switch {
		case b <= 0:
			return 0
		case b < 1.5:
			return 10
		case b < 3:
			return 7
		case b < 5:
			return 3
		default:
			return 0
		}
	})
	dividend := tier(f.DividendYield, 0, func(y float64) float64 {
		switch {
		case y >= 0.04:
			return 7
		case y >= 0.02:
			return 5
		case y > 0:
			return 2
		default:
			return 0
		}
	})
	valuation := model.Clamp(pe+pb+dividend, 0, maxValuation)
	if f.PERatio != nil {
		if *f.PERatio <= 0 {
			factors = append(factors, "Negative earnings (P/E n/a)")
		} else {
			factors = append(factors, fmt.Sprintf("P/E %.1f", *f.PERatio))
		}
	}
	if dividend > 0 {
		factors = append(factors, fmt.Sprintf("Dividend yield %.1f%%", *f.DividendYield*100))
	}

	total := profitability + health + valuation
	factors = append([]string{fmt.Sprintf("Profitability %.0f/35, health %.0f/30, valuation %.0f/35", profitability, health, valuation)}, factors...)
	return FundamentalResult{
		Score:         model.Scored(model.ModuleFundamental, total, factors),
		Profitability: profitability,
		Health:        health,
		Valuation:     valuation,
	}
}

func tier(v *float64, missing float64, fn func(float64) float64) float64 {
	if v == nil {
		return missing
	}
	return fn(*v)
}

func hasAnyRatio(f *model.Fundamentals) bool {
	for _, v := range []*float64{f.PERatio, f.PBRatio, f.ROE, f.ProfitMargin, f.DebtToEquity, f.CurrentRatio, f.DividendYield} {
		if v != nil {
			return true
		}
	}
	return false
}
