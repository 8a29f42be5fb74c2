package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeSentinel/internal/collector"
	"TradeSentinel/internal/model"
	"TradeSentinel/internal/optimizer"
	"TradeSentinel/internal/sentiment"
	"TradeSentinel/internal/signals"
	"TradeSentinel/internal/store"
)

func newEngine(p collector.Provider, sent sentiment.Provider) *Engine {
	col := collector.New(p, collector.Options{SectorSymbols: []string{"XLK", "XLU"}})
	return New(col, sent, optimizer.New(store.NewMemory(), 0.6))
}

func TestEvaluateWithMockData(t *testing.T) {
	p := collector.NewMockProvider(100)
	p.Fundamentals["AAPL"] = &model.Fundamentals{
		Sector:       "Technology",
		PERatio:      model.Float(18),
		ProfitMargin: model.Float(0.22),
		ROE:          model.Float(0.3),
	}
	e := newEngine(p, sentiment.NewStatic(map[string]float64{"AAPL": 20}))

	ev, err := e.Evaluate(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", ev.Symbol)
	assert.Greater(t, ev.Price, 0.0)
	require.NotNil(t, ev.News)
	assert.Equal(t, 20.0, ev.Decision.NewsScore)
	assert.Equal(t, ev.Weights.Regime, ev.Decision.Regime)
	assert.GreaterOrEqual(t, ev.Decision.Contributing, 3)
	assert.InDelta(t, 1.0, ev.Weights.Core.Sum(), 1e-9)
	assert.GreaterOrEqual(t, ev.Decision.CompositeScore, 0.0)
	assert.LessOrEqual(t, ev.Decision.CompositeScore, 100.0)
}

func TestEvaluateWithoutAnyData(t *testing.T) {
	p := collector.NewMockProvider(100)
	p.Fail["GONE"] = true
	p.Fail["SPY"], p.Fail["VIX"], p.Fail["XLK"], p.Fail["XLU"] = true, true, true, true
	e := newEngine(p, nil)

	ev, err := e.Evaluate(context.Background(), "GONE")
	assert.ErrorIs(t, err, ErrNoPrice)
	require.NotNil(t, ev)
	assert.Equal(t, 1, ev.Decision.Contributing, "only timing scores")
	assert.Equal(t, model.ConfidenceLow, ev.Decision.Confidence)
	assert.Nil(t, ev.News)
}

func TestScoreIsDeterministic(t *testing.T) {
	e := newEngine(collector.NewMockProvider(100), nil)
	bars := make([]model.OHLCV, 120)
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		c := 100 + float64(i)*0.3
		bars[i] = model.OHLCV{Time: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	in := signals.Inputs{Symbol: "X", Bars: bars, Now: start.AddDate(0, 0, 130)}
	a := e.Score(context.Background(), in, nil)
	b := e.Score(context.Background(), in, nil)
	assert.Equal(t, a.Decision, b.Decision)
	assert.Equal(t, bars[len(bars)-1].Close, a.Price)
}
