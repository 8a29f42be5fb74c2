package optimizer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeSentinel/internal/model"
	"TradeSentinel/internal/signals"
	"TradeSentinel/internal/store"
)

func TestDetectRegime(t *testing.T) {
	tests := []struct {
		name string
		in   Inputs
		want model.Regime
	}{
		{"no data", Inputs{}, model.RegimeNeutral},
		{"low macro", Inputs{MacroAvailable: true, MacroScore: 30}, model.RegimeRiskOff},
		{"forced macro risk-off", Inputs{MacroAvailable: true, MacroScore: 55, MacroRegime: signals.MacroRiskOff}, model.RegimeRiskOff},
		{"risk-off beats trend", Inputs{MacroAvailable: true, MacroScore: 20, TechnicalAvailable: true, TechnicalScore: 80, HasChop: true, Chop: 30}, model.RegimeRiskOff},
		{"risk-off beats news", Inputs{MacroAvailable: true, MacroScore: 20, HasNews: true, News: -80}, model.RegimeRiskOff},
		{"news shock", Inputs{MacroAvailable: true, MacroScore: 60, HasNews: true, News: -65}, model.RegimeNewsShock},
		{"trend", Inputs{TechnicalAvailable: true, TechnicalScore: 70, HasChop: true, Chop: 38}, model.RegimeTrend},
		{"strong but noisy", Inputs{TechnicalAvailable: true, TechnicalScore: 70, HasChop: true, Chop: 50}, model.RegimeNeutral},
		{"chop", Inputs{TechnicalAvailable: true, TechnicalScore: 50, HasChop: true, Chop: 65}, model.RegimeChop},
		{"unavailable macro ignored", Inputs{MacroScore: 10, HasChop: true, Chop: 61}, model.RegimeChop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectRegime(tt.in))
		})
	}
}

func TestBaseWeightsSumToOne(t *testing.T) {
	for _, r := range []model.Regime{model.RegimeNeutral, model.RegimeTrend, model.RegimeChop, model.RegimeRiskOff, model.RegimeNewsShock} {
		core, pulse := BaseWeights(r)
		assert.InDelta(t, 1.0, core.Sum(), 1e-9, r)
		assert.InDelta(t, 1.0, pulse.Sum(), 1e-9, r)
		assert.Greater(t, pulse[model.SlotTechnical]+pulse[model.SlotHybrid], core[model.SlotTechnical]+core[model.SlotHybrid], "pulse is technical-biased in %s", r)
	}
	core, _ := BaseWeights("Sideways")
	neutral, _ := BaseWeights(model.RegimeNeutral)
	assert.Equal(t, neutral, core)
}

func TestOptimizeWithoutLearnings(t *testing.T) {
	o := New(store.NewMemory(), 0)
	assert.Equal(t, DefaultBlend, o.Blend())

	res := o.Optimize(context.Background(), Inputs{MacroAvailable: true, MacroScore: 20})
	core, pulse := BaseWeights(model.RegimeRiskOff)
	assert.Equal(t, model.RegimeRiskOff, res.Regime)
	assert.False(t, res.Blended)
	assert.Equal(t, core, res.Core)
	assert.Equal(t, pulse, res.Pulse)
}

func TestStoreAndClearLearnings(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	o := New(st, 0.6)

	learnedCore := model.ModuleWeights{2, 0, 0, 0, 0, 0, 0, 0}
	learnedPulse := model.ModuleWeights{0, 1, 0, 0, 0, 0, 0, 0}
	require.NoError(t, o.StoreLearnings(ctx, learnedCore, learnedPulse))

	l, ok, err := o.Learned(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 1.0, l.Core[model.SlotFundamental], 1e-12, "stored normalized")

	res := o.Optimize(ctx, Inputs{})
	require.True(t, res.Blended)
	base, _ := BaseWeights(model.RegimeNeutral)
	assert.InDelta(t, base[model.SlotFundamental]*0.4+0.6, res.Core[model.SlotFundamental], 1e-9)
	assert.InDelta(t, 1.0, res.Core.Sum(), 1e-9)
	assert.InDelta(t, 1.0, res.Pulse.Sum(), 1e-9)

	// A second optimizer on the same store sees the learnings.
	assert.True(t, New(st, 0.6).Optimize(ctx, Inputs{}).Blended)

	require.NoError(t, o.ClearLearnings(ctx))
	_, ok, err = o.Learned(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, o.Optimize(ctx, Inputs{}).Blended)
}

func TestDegenerateLearningsFallBackToBase(t *testing.T) {
	ctx := context.Background()
	o := New(store.NewMemory(), 0.6)
	require.NoError(t, o.StoreLearnings(ctx, model.ModuleWeights{}, model.ModuleWeights{}))

	res := o.Optimize(ctx, Inputs{})
	base, _ := BaseWeights(model.RegimeNeutral)
	for i := range base {
		assert.InDelta(t, base[i], res.Core[i], 1e-9)
	}
}

type failingStore struct{ store.Memory }

func (*failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("disk on fire")
}

func TestOptimizeStoreFailureUsesBase(t *testing.T) {
	o := New(&failingStore{}, 0.6)
	res := o.Optimize(context.Background(), Inputs{})
	assert.False(t, res.Blended)
	assert.Equal(t, model.RegimeNeutral, res.Regime)
}

func TestInputsFrom(t *testing.T) {
	rep := signals.Report{}
	rep.Macro.Value, rep.Macro.Available, rep.Macro.Regime = 62, true, signals.MacroRiskOn
	in := InputsFrom(rep, nil, &model.Sentiment{Score: -40})
	assert.True(t, in.MacroAvailable)
	assert.False(t, in.HasChop)
	assert.True(t, in.HasNews)
	assert.Equal(t, -40.0, in.News)
}
