package model

import "math"

// Module identifies a signal module.
type Module string

const (
	ModuleFundamental Module = "fundamental"
	ModuleTechnical   Module = "technical"
	ModuleHybrid      Module = "hybrid"
	ModuleMacro       Module = "macro"
	ModuleSector      Module = "sector"
	ModuleTiming      Module = "timing"
)

// Modules lists every signal module in weight-slot order.
var Modules = []Module{ModuleFundamental, ModuleTechnical, ModuleHybrid, ModuleMacro, ModuleSector, ModuleTiming}

// NeutralScore is returned by a module that could not score.
const NeutralScore = 50.0

// Score is a module output in [0,100] with the factors that produced it.
// Available is false when the module lacked its mandatory input; Value is then NeutralScore
// and the module must be left out of weighted averages.
type Score struct {
	Module    Module   `json:"module"`
	Value     float64  `json:"value"`
	Factors   []string `json:"factors,omitempty"`
	Available bool     `json:"available"`
}

// Scored builds an available score, clamped to [0,100].
func Scored(m Module, value float64, factors []string) Score {
	return Score{Module: m, Value: Clamp(value, 0, 100), Factors: factors, Available: true}
}

// Unavailable builds the neutral placeholder for a module without input.
func Unavailable(m Module, reason string) Score {
	return Score{Module: m, Value: NeutralScore, Factors: []string{reason}, Available: false}
}

// Clamp limits v to [lo,hi]. NaN collapses to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
