package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeSentinel/internal/model"
	"TradeSentinel/internal/store"
)

func balanced() model.Personality {
	return model.Personality{
		ID:                   "balanced",
		Name:                 "Balanced",
		Symbols:              []string{"AAPL", "MSFT"},
		StartingCapital:      1000,
		BuyScoreThreshold:    58,
		SellScoreThreshold:   42,
		PositionSizeFraction: 0.25,
		MaxPositions:         4,
		StopLossPct:          6,
		TakeProfitPct:        15,
	}
}

func fixedClock(l *Ledger) {
	t := time.Date(2024, 5, 6, 14, 30, 0, 0, time.UTC)
	l.now = func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func newLedger(t *testing.T, p model.Personality, st store.Store) *Ledger {
	t.Helper()
	l := New(context.Background(), p, st, 10)
	fixedClock(l)
	return l
}

func TestBuySizesAtCashFraction(t *testing.T) {
	l := newLedger(t, balanced(), store.NewMemory())

	tr, miss := l.Buy("aapl", 50, "buy-signal", 60)
	require.Equal(t, MissNone, miss)
	assert.Equal(t, "AAPL", tr.Symbol)
	assert.Equal(t, model.ActionBuy, tr.Action)
	assert.InDelta(t, 250, tr.Amount, 1e-9)
	assert.InDelta(t, 5, tr.Shares, 1e-9)
	assert.NotEmpty(t, tr.ID)
	assert.Nil(t, tr.RealizedPnL)
	assert.InDelta(t, 750, l.Cash(), 1e-9)

	pos, ok := l.Position("AAPL")
	require.True(t, ok)
	assert.InDelta(t, 50, pos.AverageCost, 1e-9)
}

func TestBuyCapsPositionAtFractionOfTotalValue(t *testing.T) {
	l := newLedger(t, balanced(), nil)
	_, miss := l.Buy("AAPL", 10, "first", 70)
	require.Equal(t, MissNone, miss)

	// 25 shares held worth 250 of a 1000 portfolio: no room left at the same price.
	_, miss = l.Buy("AAPL", 10, "again", 70)
	assert.Equal(t, MissFractionalShare, miss)
	assert.InDelta(t, 750, l.Cash(), 1e-9)
}

func TestBuyMisses(t *testing.T) {
	tests := []struct {
		name  string
		p     func(*model.Personality)
		price float64
		want  Miss
	}{
		{"invalid price", nil, 0, MissInvalidPrice},
		{"share costs more than the slice", nil, 400, MissFractionalShare},
		{"below minimum notional", func(p *model.Personality) { p.PositionSizeFraction = 0.005 }, 1, MissBelowMinimum},
		{"no cash", func(p *model.Personality) { p.StartingCapital = 5 }, 1, MissInsufficientCash},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := balanced()
			if tt.p != nil {
				tt.p(&p)
			}
			l := newLedger(t, p, nil)
			before := l.Snapshot()
			_, miss := l.Buy("AAPL", tt.price, "x", 70)
			assert.Equal(t, tt.want, miss)
			assert.Equal(t, before, l.Snapshot(), "a missed trade must not change state")
		})
	}
}

func TestBuySharesBlendsAverageCost(t *testing.T) {
	p := balanced()
	p.StartingCapital = 5000
	l := newLedger(t, p, nil)

	_, miss := l.BuyShares("AAPL", 10, 100, "a", 70)
	require.Equal(t, MissNone, miss)
	_, miss = l.BuyShares("AAPL", 10, 120, "b", 70)
	require.Equal(t, MissNone, miss)

	pos, ok := l.Position("AAPL")
	require.True(t, ok)
	assert.InDelta(t, 20, pos.Shares, 1e-9)
	assert.InDelta(t, 110, pos.AverageCost, 1e-9)
	assert.InDelta(t, 2800, l.Cash(), 1e-9)

	_, miss = l.BuyShares("AAPL", 100, 120, "c", 70)
	assert.Equal(t, MissInsufficientCash, miss)
	_, miss = l.BuyShares("AAPL", 0.5, 120, "d", 70)
	assert.Equal(t, MissFractionalShare, miss)
}

func TestBuyThenSellAllRestoresCashPlusPnL(t *testing.T) {
	for _, exit := range []float64{37.13, 41.5, 55.55} {
		l := newLedger(t, balanced(), nil)
		_, miss := l.Buy("MSFT", 41.5, "in", 70)
		require.Equal(t, MissNone, miss)

		tr, miss := l.Sell("MSFT", exit, "out", 30, 0)
		require.Equal(t, MissNone, miss)
		require.NotNil(t, tr.RealizedPnL)
		assert.InDelta(t, 1000+*tr.RealizedPnL, l.Cash(), 1e-6)
		assert.Equal(t, 0, l.OpenPositions())
	}
}

func TestPartialSell(t *testing.T) {
	p := balanced()
	p.StartingCapital = 5000
	l := newLedger(t, p, nil)
	_, _ = l.BuyShares("AAPL", 10, 100, "in", 70)

	tr, miss := l.Sell("AAPL", 110, "trim", 50, 4)
	require.Equal(t, MissNone, miss)
	assert.InDelta(t, 40, *tr.RealizedPnL, 1e-9)
	pos, ok := l.Position("AAPL")
	require.True(t, ok)
	assert.InDelta(t, 6, pos.Shares, 1e-9)
	assert.InDelta(t, 100, pos.AverageCost, 1e-9)

	_, miss = l.Sell("AAPL", 110, "rest", 50, 99)
	require.Equal(t, MissNone, miss)
	_, ok = l.Position("AAPL")
	assert.False(t, ok)

	_, miss = l.Sell("AAPL", 110, "again", 50, 0)
	assert.Equal(t, MissNoPosition, miss)
}

func TestStopLossAndTakeProfit(t *testing.T) {
	p := balanced()
	p.StartingCapital = 5000
	l := newLedger(t, p, nil)
	_, _ = l.BuyShares("AAPL", 10, 100, "in", 70)

	assert.True(t, l.ShouldStopLoss("AAPL", 94), "-6% hits a 6% stop")
	assert.False(t, l.ShouldStopLoss("AAPL", 94.5))
	assert.True(t, l.ShouldTakeProfit("AAPL", 115))
	assert.False(t, l.ShouldTakeProfit("AAPL", 114))
	assert.False(t, l.ShouldStopLoss("MSFT", 1), "no position")

	// Predicates are pure.
	snap := l.Snapshot()
	l.ShouldStopLoss("AAPL", 50)
	assert.Equal(t, snap, l.Snapshot())
}

func TestPortfolioProjection(t *testing.T) {
	p := balanced()
	p.StartingCapital = 5000
	l := newLedger(t, p, nil)
	_, _ = l.BuyShares("AAPL", 10, 100, "in", 70)
	_, _ = l.BuyShares("MSFT", 5, 200, "in", 70)

	before := l.Snapshot()
	pf := l.Portfolio(map[string]float64{"AAPL": 110})
	assert.Equal(t, before, l.Snapshot())

	require.Len(t, pf.Positions, 2)
	assert.Equal(t, "AAPL", pf.Positions[0].Symbol)
	assert.InDelta(t, 100, pf.Positions[0].UnrealizedPnL, 1e-9)
	assert.InDelta(t, 10, pf.Positions[0].UnrealizedPnLPct, 1e-9)
	assert.InDelta(t, 200, pf.Positions[1].Price, 1e-9, "falls back to last trade price")
	assert.InDelta(t, 3000, pf.Cash, 1e-9)
	assert.InDelta(t, 5100, pf.TotalValue, 1e-9)
	assert.InDelta(t, 2, pf.PnLPct, 1e-9)
	assert.Equal(t, 2, pf.TradeCount)
}

func TestPersistenceRoundTrip(t *testing.T) {
	st := store.NewMemory()
	p := balanced()
	p.StartingCapital = 10000
	l := newLedger(t, p, st)

	_, _ = l.BuyShares("AAPL", 10, 100, "in", 70)
	_, _ = l.BuyShares("MSFT", 5, 300, "in", 65)
	_, _ = l.BuyShares("NVDA", 2, 450, "in", 80)
	_, _ = l.Sell("NVDA", 500, "take-profit", 55, 0)
	_, _ = l.BuyShares("AAPL", 5, 90, "add", 72)
	want := l.Snapshot()
	require.Len(t, want.Positions, 2)
	require.Len(t, want.Trades, 5)
	assert.Equal(t, "AAPL", want.Trades[0].Symbol, "most recent first")

	reloaded := New(context.Background(), p, st, 10)
	assert.Equal(t, want, reloaded.Snapshot())
	assert.InDelta(t, l.Cash(), reloaded.Cash(), 1e-9)
}

func TestResetRestoresStartingCapital(t *testing.T) {
	st := store.NewMemory()
	l := newLedger(t, balanced(), st)
	_, _ = l.Buy("AAPL", 50, "in", 70)
	l.Reset()

	assert.InDelta(t, 1000, l.Cash(), 1e-9)
	assert.Equal(t, 0, l.OpenPositions())
	assert.Empty(t, l.Trades(0))

	reloaded := New(context.Background(), balanced(), st, 10)
	assert.Equal(t, 0, reloaded.OpenPositions())
}

func TestStats(t *testing.T) {
	p := balanced()
	p.StartingCapital = 5000
	l := newLedger(t, p, nil)
	_, _ = l.BuyShares("AAPL", 10, 100, "in", 70)
	_, _ = l.Sell("AAPL", 110, "out", 40, 0)
	_, _ = l.BuyShares("MSFT", 10, 100, "in", 70)
	_, _ = l.Sell("MSFT", 95, "stop-loss", 40, 0)

	s := l.Stats()
	assert.Equal(t, 4, s.Trades)
	assert.Equal(t, 2, s.Buys)
	assert.Equal(t, 1, s.Wins)
	assert.Equal(t, 1, s.Losses)
	assert.InDelta(t, 50, s.WinRate, 1e-9)
	assert.InDelta(t, 50, s.RealizedPnL, 1e-9)
	assert.Len(t, l.Trades(3), 3)
}

type brokenStore struct {
	*store.Memory
	getErr, setErr error
	raw            []byte
}

func (b *brokenStore) Get(ctx context.Context, key string) ([]byte, error) {
	if b.getErr != nil {
		return nil, b.getErr
	}
	if b.raw != nil {
		return b.raw, nil
	}
	return b.Memory.Get(ctx, key)
}

func (b *brokenStore) Set(ctx context.Context, key string, v []byte) error {
	if b.setErr != nil {
		return b.setErr
	}
	return b.Memory.Set(ctx, key, v)
}

func TestPersistenceFailuresAreNonFatal(t *testing.T) {
	t.Run("failed load starts fresh", func(t *testing.T) {
		for _, st := range []*brokenStore{
			{Memory: store.NewMemory(), getErr: errors.New("disk gone")},
			{Memory: store.NewMemory(), raw: []byte("{not json")},
		} {
			l := newLedger(t, balanced(), st)
			assert.InDelta(t, 1000, l.Cash(), 1e-9)
		}
	})

	t.Run("failed save keeps the mutation", func(t *testing.T) {
		st := &brokenStore{Memory: store.NewMemory(), setErr: errors.New("read-only")}
		l := newLedger(t, balanced(), st)
		_, miss := l.Buy("AAPL", 50, "in", 70)
		require.Equal(t, MissNone, miss)
		assert.InDelta(t, 750, l.Cash(), 1e-9)
		assert.Error(t, l.Save(context.Background()))
	})
}
