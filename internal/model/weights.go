package model

import (
	"encoding/json"
	"fmt"
	"math"
)

// Slot indexes a ModuleWeights vector.
type Slot int

const (
	SlotFundamental Slot = iota
	SlotTechnical
	SlotHybrid
	SlotMacro
	SlotSector
	SlotTiming
	SlotSentiment
	SlotReserved
	NumSlots
)

var slotNames = [NumSlots]string{"fundamental", "technical", "hybrid", "macro", "sector", "timing", "sentiment", "reserved"}

func (s Slot) String() string {
	if s < 0 || s >= NumSlots {
		return "unknown"
	}
	return slotNames[s]
}

// SlotOf maps a module to its weight slot.
func SlotOf(m Module) Slot {
	for i, mod := range Modules {
		if mod == m {
			return Slot(i)
		}
	}
	return SlotReserved
}

// ModuleWeights holds one weight per slot. A usable vector sums to 1.
type ModuleWeights [NumSlots]float64

// Sum adds all slots.
func (w ModuleWeights) Sum() float64 {
	var s float64
	for _, v := range w {
		s += v
	}
	return s
}

// Normalize rescales w to sum to 1. Negative and NaN slots count as zero.
// A vector with no positive mass is returned unchanged.
func (w ModuleWeights) Normalize() ModuleWeights {
	var clean ModuleWeights
	var sum float64
	for i, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			continue
		}
		clean[i] = v
		sum += v
	}
	if sum == 0 {
		return w
	}
	for i := range clean {
		clean[i] /= sum
	}
	return clean
}

// Blend returns base*(1-f) + other*f per slot, renormalized.
func (w ModuleWeights) Blend(other ModuleWeights, f float64) ModuleWeights {
	f = Clamp(f, 0, 1)
	var out ModuleWeights
	for i := range w {
		out[i] = w[i]*(1-f) + other[i]*f
	}
	return out.Normalize()
}

// MarshalJSON encodes the vector as a slot-name keyed object.
func (w ModuleWeights) MarshalJSON() ([]byte, error) {
	m := make(map[string]float64, NumSlots)
	for i, v := range w {
		m[slotNames[i]] = v
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes a slot-name keyed object. Unknown names are rejected.
func (w *ModuleWeights) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	var out ModuleWeights
	for name, v := range m {
		idx := -1
		for i, n := range slotNames {
			if n == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("unknown weight slot %q", name)
		}
		out[idx] = v
	}
	*w = out
	return nil
}
