package signals

import (
	"fmt"
	"sort"
	"strings"

	"TradeSentinel/internal/calculator"
	"TradeSentinel/internal/model"
)

// Lean classifies a sector's typical behavior across the cycle.
type Lean string

const (
	LeanOffensive Lean = "offensive"
	LeanDefensive Lean = "defensive"
	LeanNeutral   Lean = "neutral"
)

// SectorProxy maps a sector to the ETF used to track it.
type SectorProxy struct {
	ETF  string
	Name string
	Lean Lean
}

// SectorBasket is the fixed proxy basket ranked by the sector module.
var SectorBasket = []SectorProxy{
	{"XLK", "Technology", LeanOffensive},
	{"XLY", "Consumer Cyclical", LeanOffensive},
	{"XLC", "Communication Services", LeanOffensive},
	{"XLF", "Financial Services", LeanOffensive},
	{"XLI", "Industrials", LeanOffensive},
	{"XLE", "Energy", LeanNeutral},
	{"XLB", "Basic Materials", LeanNeutral},
	{"XLV", "Healthcare", LeanDefensive},
	{"XLP", "Consumer Defensive", LeanDefensive},
	{"XLU", "Utilities", LeanDefensive},
	{"XLRE", "Real Estate", LeanDefensive},
}

var sectorAliases = map[string]string{
	"information technology": "XLK",
	"consumer discretionary": "XLY",
	"consumer staples":       "XLP",
	"financials":             "XLF",
	"health care":            "XLV",
	"materials":              "XLB",
	"communication":          "XLC",
	"telecommunication":      "XLC",
	"telecommunications":     "XLC",
	"financial":              "XLF",
}

const monthLookback = 21

// SectorSymbols lists the ETF tickers of the basket.
func SectorSymbols() []string {
	out := make([]string, len(SectorBasket))
	for i, p := range SectorBasket {
		out[i] = p.ETF
	}
	return out
}

// SectorETF resolves a sector name to its proxy ETF.
func SectorETF(sector string) (SectorProxy, bool) {
	key := strings.ToLower(strings.TrimSpace(sector))
	if key == "" {
		return SectorProxy{}, false
	}
	for _, p := range SectorBasket {
		if strings.ToLower(p.Name) == key || strings.ToLower(p.ETF) == key {
			return p, true
		}
	}
	if etf, ok := sectorAliases[key]; ok {
		for _, p := range SectorBasket {
			if p.ETF == etf {
				return p, true
			}
		}
	}
	return SectorProxy{}, false
}

// SectorReturn is one ranked basket entry.
type SectorReturn struct {
	ETF    string  `json:"etf"`
	Return float64 `json:"return"`
	Lean   Lean    `json:"lean"`
}

// SectorResult reports the target sector's relative strength and the basket leadership.
type SectorResult struct {
	model.Score
	ETF              string         `json:"etf,omitempty"`
	SectorReturn     float64        `json:"sector_return"`
	BenchmarkReturn  float64        `json:"benchmark_return"`
	RelativeStrength float64        `json:"relative_strength"`
	Rank             int            `json:"rank"`
	Ranking          []SectorReturn `json:"ranking,omitempty"`
	Leadership       Lean           `json:"leadership"`
}

// RankSectors orders the basket by 1-month return, best first. ETFs without data are skipped.
func RankSectors(mkt MarketContext) []SectorReturn {
	var out []SectorReturn
	for _, p := range SectorBasket {
		ret, err := calculator.PercentChange(model.Closes(mkt.Sectors[p.ETF]), monthLookback)
		if err != nil {
			continue
		}
		out = append(out, SectorReturn{ETF: p.ETF, Return: ret, Lean: p.Lean})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Return > out[j].Return })
	return out
}

// Sector compares the target sector's 1-month return against the benchmark and checks whether the
// basket leaders are offensive or defensive.
func Sector(sector string, mkt MarketContext) SectorResult {
	proxy, ok := SectorETF(sector)
	if !ok {
		return SectorResult{Score: model.Unavailable(model.ModuleSector, "sector unknown"), Leadership: LeanNeutral}
	}
	ranking := RankSectors(mkt)
	res := SectorResult{ETF: proxy.ETF, Ranking: ranking, Leadership: leadership(ranking)}
	for i, r := range ranking {
		if r.ETF == proxy.ETF {
			res.Rank = i + 1
			res.SectorReturn = r.Return
		}
	}
	if res.Rank == 0 {
		return SectorResult{Score: model.Unavailable(model.ModuleSector, "sector data unavailable"), ETF: proxy.ETF, Leadership: res.Leadership}
	}

	if bench, err := calculator.PercentChange(model.Closes(mkt.Benchmark), monthLookback); err == nil {
		res.BenchmarkReturn = bench
	} else {
		var sum float64
		for _, r := range ranking {
			sum += r.Return
		}
		res.BenchmarkReturn = sum / float64(len(ranking))
	}
	res.RelativeStrength = res.SectorReturn - res.BenchmarkReturn

	score := 50 + model.Clamp(res.RelativeStrength*3, -25, 25)
	factors := []string{fmt.Sprintf("%s %+.1f%% vs benchmark %+.1f%% (1M)", proxy.ETF, res.SectorReturn, res.BenchmarkReturn)}
	if len(ranking) >= 6 {
		switch {
		case res.Rank <= 3:
			score += 10
			factors = append(factors, fmt.Sprintf("Sector ranked #%d of %d", res.Rank, len(ranking)))
		case res.Rank > len(ranking)-3:
			score -= 10
			factors = append(factors, fmt.Sprintf("Sector ranked #%d of %d", res.Rank, len(ranking)))
		}
	}
	switch res.Leadership {
	case LeanOffensive:
		score += 5
		factors = append(factors, "Offensive sectors leading")
	case LeanDefensive:
		score -= 5
		factors = append(factors, "Defensive sectors leading")
	}
	res.Score = model.Scored(model.ModuleSector, score, factors)
	return res
}

func leadership(ranking []SectorReturn) Lean {
	top := 3
	if len(ranking) < top {
		top = len(ranking)
	}
	var off, def int
	for _, r := range ranking[:top] {
		switch r.Lean {
		case LeanOffensive:
			off++
		case LeanDefensive:
			def++
		}
	}
	switch {
	case off >= 2:
		return LeanOffensive
	case def >= 2:
		return LeanDefensive
	default:
		return LeanNeutral
	}
}
