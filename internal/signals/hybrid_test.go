package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"TradeSentinel/internal/model"
)

func TestHybrid_UptrendOnMidline(t *testing.T) {
	res := Hybrid(lineBars(80, 100, 0.5))
	assert.True(t, res.Available)
	assert.Equal(t, ModeTrendUp, res.Mode)
	assert.InDelta(t, 75.0, res.Value, 1e-9)
	assert.InDelta(t, res.Channel.Mid, res.Target1, 1e-9)
	assert.InDelta(t, res.Channel.Upper, res.Target2, 1e-9)
	assert.InDelta(t, res.Channel.Lower, res.EntryLow, 1e-9)
	assert.GreaterOrEqual(t, res.EntryHigh, res.EntryLow)
}

func TestHybrid_Downtrend(t *testing.T) {
	res := Hybrid(lineBars(80, 200, -0.5))
	assert.Equal(t, ModeTrendDown, res.Mode)
	assert.Less(t, res.Value, 50.0)
}

func TestHybrid_LowerBandTouchInRange(t *testing.T) {
	bars := lineBars(79, 100, 0)
	for i := range bars {
		c := 99.0
		if i%2 == 1 {
			c = 101
		}
		bars[i].Open, bars[i].Close, bars[i].High, bars[i].Low = c, c, c+0.2, c-0.2
	}
	last := bars[len(bars)-1]
	last.Time = last.Time.AddDate(0, 0, 1)
	last.Open, last.Close, last.High, last.Low = 96, 96, 96.2, 95.8
	bars = append(bars, last)

	res := Hybrid(bars)
	assert.Equal(t, ModeReversion, res.Mode)
	assert.Less(t, res.ZScore, -1.75)
	assert.False(t, res.Divergence)
	assert.Contains(t, res.Factors, "Touching lower band")
	assert.InDelta(t, 65.0, res.Value, 1e-9)
}

func TestHybrid_InsufficientHistory(t *testing.T) {
	res := Hybrid(lineBars(30, 100, 1))
	assert.False(t, res.Available)
	assert.Equal(t, model.NeutralScore, res.Value)
}
