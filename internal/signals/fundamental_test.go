package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"TradeSentinel/internal/model"
)

func TestFundamental_StrongCompany(t *testing.T) {
	res := Fundamental(&model.Fundamentals{
		ProfitMargin:  model.Float(0.25),
		ROE:           model.Float(0.25),
		DebtToEquity:  model.Float(0.3),
		CurrentRatio:  model.Float(2.5),
		PERatio:       model.Float(12),
		PBRatio:       model.Float(1.2),
		DividendYield: model.Float(0.03),
	})
	assert.True(t, res.Available)
	assert.Equal(t, 35.0, res.Profitability)
	assert.Equal(t, 30.0, res.Health)
	assert.Equal(t, 33.0, res.Valuation)
	assert.Equal(t, 98.0, res.Value)
}

func TestFundamental_DistressedCompany(t *testing.T) {
	res := Fundamental(&model.Fundamentals{
		ProfitMargin: model.Float(-0.05),
		ROE:          model.Float(-0.10),
		DebtToEquity: model.Float(4),
		CurrentRatio: model.Float(0.5),
		PERatio:      model.Float(-3),
		PBRatio:      model.Float(8),
	})
	assert.True(t, res.Available)
	assert.Equal(t, 0.0, res.Value)
	assert.Equal(t, 0.0, res.Health, "penalties never push a section below zero")
	assert.Contains(t, res.Factors, "High leverage: debt/equity 4.00")
	assert.Contains(t, res.Factors, "Negative earnings (P/E n/a)")
}

func TestFundamental_PartialInputsEarnHalfCredit(t *testing.T) {
	res := Fundamental(&model.Fundamentals{PERatio: model.Float(12)})
	assert.True(t, res.Available)
	assert.InDelta(t, 17.5, res.Profitability, 1e-9)
	assert.InDelta(t, 15.0, res.Health, 1e-9)
	assert.InDelta(t, 23.0, res.Valuation, 1e-9)
	assert.InDelta(t, 55.5, res.Value, 1e-9)
}

func TestFundamental_Unavailable(t *testing.T) {
	for name, f := range map[string]*model.Fundamentals{
		"nil":         nil,
		"sector only": {Sector: "Technology"},
	} {
		res := Fundamental(f)
		assert.False(t, res.Available, name)
		assert.Equal(t, model.NeutralScore, res.Value, name)
	}
}
