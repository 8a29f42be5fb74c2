package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"TradeSentinel/internal/model"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Name() string { return "testify" }

func (m *mockProvider) FetchQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	args := m.Called(ctx, symbol)
	q, _ := args.Get(0).(*model.Quote)
	return q, args.Error(1)
}

func (m *mockProvider) FetchCandles(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	args := m.Called(ctx, symbol, days)
	bars, _ := args.Get(0).([]model.OHLCV)
	return bars, args.Error(1)
}

func (m *mockProvider) FetchFundamentals(ctx context.Context, symbol string) (*model.Fundamentals, error) {
	args := m.Called(ctx, symbol)
	f, _ := args.Get(0).(*model.Fundamentals)
	return f, args.Error(1)
}

func TestCollectDegradesOnFailure(t *testing.T) {
	p := &mockProvider{}
	bars := generateMockBars(100, 30)
	p.On("FetchQuote", mock.Anything, "AAPL").Return(nil, errors.New("timeout"))
	p.On("FetchCandles", mock.Anything, "AAPL", 260).Return(bars, nil)
	p.On("FetchFundamentals", mock.Anything, "AAPL").Return(nil, ErrUnavailable)
	p.On("FetchCandles", mock.Anything, mock.Anything, mock.Anything).Return(nil, ErrUnavailable)

	c := New(p, Options{SectorSymbols: []string{"XLK"}})
	in := c.Collect(context.Background(), "AAPL")

	assert.Nil(t, in.Quote)
	assert.Nil(t, in.Fundamentals)
	assert.Len(t, in.Bars, 30)
	price, ok := in.Price()
	require.True(t, ok, "falls back to the last close")
	assert.Equal(t, bars[len(bars)-1].Close, price)
	assert.Empty(t, in.Market.Benchmark)
	assert.Empty(t, in.Market.Sectors)
	p.AssertExpectations(t)
}

type countingProvider struct {
	*MockProvider
	candles atomic.Int32
}

func (c *countingProvider) FetchCandles(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	c.candles.Add(1)
	time.Sleep(5 * time.Millisecond)
	return c.MockProvider.FetchCandles(ctx, symbol, days)
}

func TestMarketIsCachedAndShared(t *testing.T) {
	p := &countingProvider{MockProvider: NewMockProvider(100)}
	c := New(p, Options{SectorSymbols: []string{"XLK", "XLU"}, MarketTTL: time.Hour})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m := c.Market(context.Background())
			assert.Len(t, m.Sectors, 2)
		}()
	}
	wg.Wait()
	first := p.candles.Load()
	assert.Equal(t, int32(4), first, "benchmark, volatility and two sectors fetched once")

	c.Market(context.Background())
	assert.Equal(t, first, p.candles.Load(), "served from cache")

	c.InvalidateMarket()
	c.Market(context.Background())
	assert.Equal(t, first*2, p.candles.Load())
}

// ctxProvider fails every fetch whose context is already done, like a real HTTP client.
type ctxProvider struct {
	*MockProvider
	down atomic.Bool
}

func (c *ctxProvider) FetchCandles(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.down.Load() {
		return nil, ErrUnavailable
	}
	return c.MockProvider.FetchCandles(ctx, symbol, days)
}

func TestMarketSurvivesCanceledCaller(t *testing.T) {
	p := &ctxProvider{MockProvider: NewMockProvider(100)}
	c := New(p, Options{SectorSymbols: []string{"XLK", "XLU"}, MarketTTL: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Market(ctx)

	m := c.Market(context.Background())
	assert.NotEmpty(t, m.Benchmark)
	assert.NotEmpty(t, m.Volatility)
	assert.Len(t, m.Sectors, 2)
}

func TestMarketFailedRefreshIsNotCached(t *testing.T) {
	p := &ctxProvider{MockProvider: NewMockProvider(100)}
	c := New(p, Options{SectorSymbols: []string{"XLK"}, MarketTTL: time.Hour})

	p.down.Store(true)
	assert.True(t, c.Market(context.Background()).Empty())

	p.down.Store(false)
	m := c.Market(context.Background())
	require.False(t, m.Empty(), "refetched after the failed refresh")
	assert.Len(t, m.Sectors, 1)

	c.InvalidateMarket()
	p.down.Store(true)
	stale := c.Market(context.Background())
	assert.Equal(t, m.Benchmark, stale.Benchmark, "last good context served while the provider is down")
}

func TestMockProvider(t *testing.T) {
	ctx := context.Background()
	m := NewMockProvider(50)
	bars, err := m.FetchCandles(ctx, "ANY", 40)
	require.NoError(t, err)
	require.Len(t, bars, 40)
	assert.True(t, bars[0].Time.Before(bars[39].Time))

	m.SetPrice("ANY", 61)
	q, err := m.FetchQuote(ctx, "ANY")
	require.NoError(t, err)
	assert.Equal(t, 61.0, q.Price)

	m.Fail["BAD"] = true
	_, err = m.FetchQuote(ctx, "BAD")
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = m.FetchFundamentals(ctx, "ANY")
	assert.ErrorIs(t, err, ErrUnavailable)
}

type flakyProvider struct {
	*MockProvider
	calls atomic.Int32
}

func (f *flakyProvider) FetchQuote(context.Context, string) (*model.Quote, error) {
	f.calls.Add(1)
	return nil, errors.New("502 bad gateway")
}

func TestGuardedOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyProvider{MockProvider: NewMockProvider(10)}
	g := NewGuarded(inner, GuardConfig{RequestsPerSecond: 1000, Burst: 100, ConsecutiveFailures: 3, OpenTimeout: time.Hour})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := g.FetchQuote(ctx, "AAPL")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}
	_, err := g.FetchQuote(ctx, "AAPL")
	assert.ErrorIs(t, err, ErrUnavailable, "open breaker fails fast")
	assert.Equal(t, int32(3), inner.calls.Load())
	assert.Equal(t, "open", g.State().String())
}

func TestGuardedMissingDataDoesNotTrip(t *testing.T) {
	inner := NewMockProvider(10)
	g := NewGuarded(inner, GuardConfig{RequestsPerSecond: 1000, Burst: 100, ConsecutiveFailures: 2})
	for i := 0; i < 5; i++ {
		_, err := g.FetchFundamentals(context.Background(), "AAPL")
		assert.ErrorIs(t, err, ErrUnavailable)
	}
	assert.Equal(t, "closed", g.State().String())

	bars, err := g.FetchCandles(context.Background(), "AAPL", 10)
	require.NoError(t, err)
	assert.Len(t, bars, 10)
}

const chartJSON = `{"chart":{"result":[{"meta":{"regularMarketPrice":190.5,"previousClose":188.0,"regularMarketVolume":1200},
"timestamp":[1704240000,1704326400,1704412800],
"indicators":{"quote":[{"open":[185,null,187],"high":[186,null,189],"low":[184,null,186],"close":[185.5,null,188],"volume":[100,null,300]}]}}],"error":null}}`

const summaryJSON = `{"quoteSummary":{"result":[{
"summaryDetail":{"trailingPE":{"raw":29.1},"dividendYield":{"raw":0.005}},
"defaultKeyStatistics":{"priceToBook":{"raw":45.2}},
"financialData":{"returnOnEquity":{"raw":1.47},"profitMargins":{"raw":0.25},"debtToEquity":{"raw":181.3},"currentRatio":{"raw":0.99}},
"assetProfile":{"sector":"Technology"},
"calendarEvents":{"earnings":{"earningsDate":[{"raw":1706745600}]}}}],"error":null}}`

func TestYahooProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/chart/"):
			w.Write([]byte(chartJSON))
		case strings.Contains(r.URL.Path, "/quoteSummary/"):
			w.Write([]byte(summaryJSON))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	y := NewYahooProvider("", time.Second)
	y.chartURL = srv.URL + "/chart/%s?interval=%s&range=%s"
	y.summURL = srv.URL + "/quoteSummary/%s"
	ctx := context.Background()

	bars, err := y.FetchCandles(ctx, "AAPL", 10)
	require.NoError(t, err)
	require.Len(t, bars, 2, "null bar skipped")
	assert.Equal(t, 188.0, bars[1].Close)

	q, err := y.FetchQuote(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 190.5, q.Price)
	assert.InDelta(t, 2.5, q.Change, 1e-9)
	require.NotNil(t, q.Volume)

	f, err := y.FetchFundamentals(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Technology", f.Sector)
	require.NotNil(t, f.DebtToEquity)
	assert.InDelta(t, 1.813, *f.DebtToEquity, 1e-9)
	require.NotNil(t, f.EarningsDate)
	assert.Equal(t, 2024, f.EarningsDate.Year())
}

func TestRESTProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/v1/bars/daily":
			w.Write([]byte(`[{"timestamp":1704326400,"close":11},{"timestamp":1704240000,"close":10}]`))
		case "/api/v1/quote":
			w.Write([]byte(`{"price":11.5,"change":0.5}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := NewRESTProvider(srv.URL, "k", "", time.Second)
	ctx := context.Background()
	bars, err := p.FetchCandles(ctx, "X", 5)
	require.NoError(t, err)
	assert.Equal(t, 10.0, bars[0].Close, "sorted chronologically")

	q, err := p.FetchQuote(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, 11.5, q.Price)

	_, err = p.FetchFundamentals(ctx, "X")
	assert.ErrorIs(t, err, ErrUnavailable)
}
