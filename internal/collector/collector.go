// Package collector fetches market data through a Provider and assembles per-symbol module inputs.
// Every fetch failure degrades to missing data with a warning; nothing here aborts a tick.
package collector

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"TradeSentinel/internal/model"
	"TradeSentinel/internal/signals"
)

// Options configures a Collector.
type Options struct {
	FetchTimeout   time.Duration
	HistoryDays    int
	Benchmark      string
	Volatility     string
	SectorSymbols  []string
	MarketTTL      time.Duration
	MaxParallelism int
}

// Collector orchestrates data fetching for the signal modules.
type Collector struct {
	provider Provider
	opts     Options

	sf        singleflight.Group
	mu        sync.RWMutex
	market    signals.MarketContext
	marketAge time.Time
	now       func() time.Time
}

// New creates a Collector. Zero options select defaults: 10s fetch timeout, 260 days of history,
// SPY benchmark, VIX volatility index, the sector basket and a 5-minute market cache.
func New(p Provider, opts Options) *Collector {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	if opts.HistoryDays <= 0 {
		opts.HistoryDays = 260
	}
	if opts.Benchmark == "" {
		opts.Benchmark = "SPY"
	}
	if opts.Volatility == "" {
		opts.Volatility = "VIX"
	}
	if opts.SectorSymbols == nil {
		opts.SectorSymbols = signals.SectorSymbols()
	}
	if opts.MarketTTL <= 0 {
		opts.MarketTTL = 5 * time.Minute
	}
	if opts.MaxParallelism <= 0 {
		opts.MaxParallelism = 4
	}
	return &Collector{provider: p, opts: opts, now: time.Now}
}

// Provider returns the underlying provider.
func (c *Collector) Provider() Provider { return c.provider }

// Collect fetches quote, candles and fundamentals for symbol concurrently and attaches the shared
// market context. Missing pieces are left nil.
func (c *Collector) Collect(ctx context.Context, symbol string) signals.Inputs {
	in := signals.Inputs{Symbol: symbol, Now: c.now()}
	logger := log.With().Str("component", "collector").Str("symbol", symbol).Logger()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fctx, cancel := context.WithTimeout(gctx, c.opts.FetchTimeout)
		defer cancel()
		q, err := c.provider.FetchQuote(fctx, symbol)
		if err != nil {
			logger.Warn().Err(err).Msg("quote unavailable")
			return nil
		}
		in.Quote = q
		return nil
	})
	g.Go(func() error {
		fctx, cancel := context.WithTimeout(gctx, c.opts.FetchTimeout)
		defer cancel()
		bars, err := c.provider.FetchCandles(fctx, symbol, c.opts.HistoryDays)
		if err != nil {
			logger.Warn().Err(err).Msg("candles unavailable, price modules will be neutral")
			return nil
		}
		in.Bars = bars
		return nil
	})
	g.Go(func() error {
		fctx, cancel := context.WithTimeout(gctx, c.opts.FetchTimeout)
		defer cancel()
		f, err := c.provider.FetchFundamentals(fctx, symbol)
		if err != nil {
			logger.Warn().Err(err).Msg("fundamentals unavailable")
			return nil
		}
		in.Fundamentals = f
		return nil
	})
	_ = g.Wait()

	in.Market = c.Market(ctx)
	return in
}

// Market returns the shared market context, refreshing it when older than the TTL. Concurrent
// callers share one refresh. The refresh is detached from ctx so a caller going away cannot
// poison the cache; a refresh where every series failed is not cached and the last good
// context is returned instead.
func (c *Collector) Market(ctx context.Context) signals.MarketContext {
	c.mu.RLock()
	stale := c.market
	if !c.marketAge.IsZero() && c.now().Sub(c.marketAge) < c.opts.MarketTTL {
		c.mu.RUnlock()
		return stale
	}
	c.mu.RUnlock()

	ch := c.sf.DoChan("market", func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.marketTimeout())
		defer cancel()
		m := c.fetchMarket(fctx)
		if m.Empty() {
			return m, ErrUnavailable
		}
		c.mu.Lock()
		c.market, c.marketAge = m, c.now()
		c.mu.Unlock()
		return m, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return stale
		}
		return res.Val.(signals.MarketContext)
	case <-ctx.Done():
		return stale
	}
}

// marketTimeout bounds one refresh: the series run in batches of MaxParallelism.
func (c *Collector) marketTimeout() time.Duration {
	n := len(c.opts.SectorSymbols) + 2
	batches := (n + c.opts.MaxParallelism - 1) / c.opts.MaxParallelism
	return time.Duration(batches) * c.opts.FetchTimeout
}

// InvalidateMarket forces the next Market call to refetch.
func (c *Collector) InvalidateMarket() {
	c.mu.Lock()
	c.marketAge = time.Time{}
	c.mu.Unlock()
}

func (c *Collector) fetchMarket(ctx context.Context) signals.MarketContext {
	logger := log.With().Str("component", "collector").Logger()
	m := signals.MarketContext{Sectors: make(map[string][]model.OHLCV, len(c.opts.SectorSymbols)), FetchedAt: c.now()}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.MaxParallelism)
	fetch := func(symbol string, days int, assign func([]model.OHLCV)) {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, c.opts.FetchTimeout)
			defer cancel()
			bars, err := c.provider.FetchCandles(fctx, symbol, days)
			if err != nil {
				logger.Warn().Err(err).Str("symbol", symbol).Msg("market series unavailable")
				return nil
			}
			mu.Lock()
			assign(bars)
			mu.Unlock()
			return nil
		})
	}

	fetch(c.opts.Benchmark, c.opts.HistoryDays, func(b []model.OHLCV) { m.Benchmark = b })
	fetch(c.opts.Volatility, 5, func(b []model.OHLCV) { m.Volatility = b })
	for _, s := range c.opts.SectorSymbols {
		s := s
		fetch(s, 30, func(b []model.OHLCV) { m.Sectors[s] = b })
	}
	_ = g.Wait()

	logger.Info().Int("sectors", len(m.Sectors)).Bool("benchmark", len(m.Benchmark) > 0).
		Bool("volatility", len(m.Volatility) > 0).Msg("market context refreshed")
	return m
}
