package model

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSumsToOne(t *testing.T) {
	w := ModuleWeights{3, 1, 1, 2, 1, 1, 1, 0}
	n := w.Normalize()
	assert.InDelta(t, 1.0, n.Sum(), 1e-12)
	assert.InDelta(t, 0.3, n[SlotFundamental], 1e-12)
}

func TestNormalizeDropsInvalidSlots(t *testing.T) {
	w := ModuleWeights{1, -1, math.NaN(), math.Inf(1), 1, 0, 0, 0}
	n := w.Normalize()
	assert.InDelta(t, 0.5, n[SlotFundamental], 1e-12)
	assert.Equal(t, 0.0, n[SlotTechnical])
	assert.Equal(t, 0.0, n[SlotHybrid])
	assert.InDelta(t, 1.0, n.Sum(), 1e-12)
}

func TestNormalizeAllZeroUnchanged(t *testing.T) {
	var w ModuleWeights
	assert.Equal(t, w, w.Normalize())
}

func TestBlend(t *testing.T) {
	base := ModuleWeights{1, 0, 0, 0, 0, 0, 0, 0}
	learned := ModuleWeights{0, 1, 0, 0, 0, 0, 0, 0}
	b := base.Blend(learned, 0.6)
	assert.InDelta(t, 0.4, b[SlotFundamental], 1e-12)
	assert.InDelta(t, 0.6, b[SlotTechnical], 1e-12)
}

func TestWeightsJSON(t *testing.T) {
	w := ModuleWeights{0.3, 0.1, 0.1, 0.2, 0.15, 0.05, 0.1, 0}
	data, err := json.Marshal(w)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sentiment":0.1`)

	var back ModuleWeights
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, w, back)

	assert.Error(t, json.Unmarshal([]byte(`{"momentum":1}`), &back))
}

func TestSlotOf(t *testing.T) {
	assert.Equal(t, SlotTiming, SlotOf(ModuleTiming))
	assert.Equal(t, "macro", SlotOf(ModuleMacro).String())
}

func TestScoredClamps(t *testing.T) {
	assert.Equal(t, 100.0, Scored(ModuleTechnical, 130, nil).Value)
	assert.Equal(t, 0.0, Scored(ModuleTechnical, -4, nil).Value)
	u := Unavailable(ModuleSector, "no data")
	assert.False(t, u.Available)
	assert.Equal(t, NeutralScore, u.Value)
}

func TestPositionPnL(t *testing.T) {
	p := Position{Symbol: "AAPL", Shares: 10, AverageCost: 100, OpenedAt: time.Now()}
	assert.Equal(t, 1000.0, p.CostBasis())
	assert.Equal(t, 1200.0, p.MarketValue(120))
	assert.Equal(t, 200.0, p.UnrealizedPnL(120))
	assert.InDelta(t, 20.0, p.UnrealizedPnLPct(120), 1e-12)
}
