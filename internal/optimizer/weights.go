package optimizer

import "TradeSentinel/internal/model"

// Slot order: fundamental, technical, hybrid, macro, sector, timing, sentiment, reserved.
var coreTable = map[model.Regime]model.ModuleWeights{
	model.RegimeNeutral:   {0.30, 0.10, 0.10, 0.20, 0.15, 0.05, 0.10, 0},
	model.RegimeTrend:     {0.25, 0.15, 0.10, 0.20, 0.20, 0.05, 0.05, 0},
	model.RegimeChop:      {0.35, 0.05, 0.15, 0.20, 0.10, 0.05, 0.10, 0},
	model.RegimeRiskOff:   {0.30, 0.05, 0.05, 0.35, 0.15, 0.05, 0.05, 0},
	model.RegimeNewsShock: {0.25, 0.10, 0.10, 0.20, 0.10, 0.05, 0.20, 0},
}

var pulseTable = map[model.Regime]model.ModuleWeights{
	model.RegimeNeutral:   {0.05, 0.35, 0.25, 0.10, 0.10, 0.05, 0.10, 0},
	model.RegimeTrend:     {0.05, 0.45, 0.20, 0.10, 0.10, 0.05, 0.05, 0},
	model.RegimeChop:      {0.05, 0.20, 0.45, 0.10, 0.05, 0.05, 0.10, 0},
	model.RegimeRiskOff:   {0.10, 0.25, 0.15, 0.30, 0.10, 0.05, 0.05, 0},
	model.RegimeNewsShock: {0.05, 0.30, 0.20, 0.10, 0.05, 0.05, 0.25, 0},
}

// BaseWeights returns the fixed core and pulse tables for a regime. Unknown regimes get Neutral.
func BaseWeights(r model.Regime) (core, pulse model.ModuleWeights) {
	core, ok := coreTable[r]
	if !ok {
		core = coreTable[model.RegimeNeutral]
	}
	pulse, ok = pulseTable[r]
	if !ok {
		pulse = pulseTable[model.RegimeNeutral]
	}
	return core.Normalize(), pulse.Normalize()
}
