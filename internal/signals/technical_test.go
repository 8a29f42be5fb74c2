package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"TradeSentinel/internal/model"
)

func TestTechnical_Uptrend(t *testing.T) {
	res := Technical(lineBars(250, 100, 0.5), nil)
	assert.True(t, res.Available)
	assert.Equal(t, TrendBull, res.Trend)
	assert.Greater(t, res.SMA20, res.SMA50)
	assert.Greater(t, res.SMA50, res.SMA200)
	assert.InDelta(t, 77.0, res.Value, 1e-9)
	assert.Contains(t, res.Factors, "Bullish MA alignment (20>50>200)")
}

func TestTechnical_Downtrend(t *testing.T) {
	res := Technical(lineBars(250, 200, -0.3), nil)
	assert.True(t, res.Available)
	assert.Equal(t, TrendBear, res.Trend)
	assert.Less(t, res.Value, 35.0)
}

func TestTechnical_QuoteOverridesLastClose(t *testing.T) {
	bars := lineBars(60, 100, 0)
	res := Technical(bars, &model.Quote{Price: 120})
	assert.Equal(t, 120.0, res.Price)
	assert.Equal(t, 0.0, res.SMA200, "200-day average needs 200 bars")
}

func TestTechnical_InsufficientHistory(t *testing.T) {
	res := Technical(lineBars(10, 100, 1), nil)
	assert.False(t, res.Available)
	assert.Equal(t, model.NeutralScore, res.Value)
	assert.Equal(t, TrendNeutral, res.Trend)
}
