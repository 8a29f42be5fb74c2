package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"TradeSentinel/internal/collector"
	"TradeSentinel/internal/config"
	"TradeSentinel/internal/engine"
	"TradeSentinel/internal/metrics"
	"TradeSentinel/internal/notifier"
	"TradeSentinel/internal/optimizer"
	"TradeSentinel/internal/recorder"
	"TradeSentinel/internal/sentiment"
	"TradeSentinel/internal/store"
	"TradeSentinel/internal/trader"
)

// app holds every long-lived component. Fields are nil when the command did not need them.
type app struct {
	cfg       *config.Config
	store     store.Store
	optimizer *optimizer.Optimizer
	collector *collector.Collector
	engine    *engine.Engine
	metrics   *metrics.Metrics
	recorder  recorder.Recorder
	telegram  *notifier.TelegramNotifier
	pool      *trader.Pool
}

func openStore(cfg *config.Config) (store.Store, error) {
	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	log.Info().Str("backend", st.Name()).Msg("state store opened")
	return st, nil
}

func newProvider(cfg *config.Config) collector.Provider {
	ds := cfg.DataSource
	var p collector.Provider
	switch ds.Provider {
	case "rest":
		p = collector.NewRESTProvider(ds.BaseURL, ds.APIKey, cfg.Proxy, ds.Timeout)
	case "mock":
		p = collector.NewMockProvider(100)
	default:
		p = collector.NewYahooProvider(cfg.Proxy, ds.Timeout)
	}
	log.Info().Str("provider", p.Name()).Msg("market data provider selected")
	return collector.NewGuarded(p, collector.GuardConfig{
		RequestsPerSecond:   ds.RequestsPerSecond,
		Burst:               ds.Burst,
		ConsecutiveFailures: ds.BreakerFailures,
		OpenTimeout:         ds.BreakerTimeout,
	})
}

func newSentiment(cfg *config.Config) sentiment.Provider {
	switch cfg.Sentiment.Provider {
	case "static":
		return sentiment.NewStatic(cfg.Sentiment.Static)
	case "http":
		return sentiment.NewHTTP(cfg.Sentiment.BaseURL, cfg.Sentiment.Timeout)
	default:
		return sentiment.Noop{}
	}
}

// newCore builds store, optimizer, collector and engine.
func newCore(cfg *config.Config) (*app, error) {
	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	ds := cfg.DataSource
	col := collector.New(newProvider(cfg), collector.Options{
		FetchTimeout:   ds.Timeout,
		HistoryDays:    ds.HistoryDays,
		Benchmark:      ds.Benchmark,
		Volatility:     ds.Volatility,
		SectorSymbols:  ds.SectorSymbols,
		MarketTTL:      ds.MarketTTL,
		MaxParallelism: cfg.Trading.Parallelism,
	})
	opt := optimizer.New(st, cfg.Trading.LearnedBlend)
	return &app{
		cfg:       cfg,
		store:     st,
		optimizer: opt,
		collector: col,
		engine:    engine.New(col, newSentiment(cfg), opt),
	}, nil
}

// newService extends newCore with metrics, recorder, notifier and the trader pool.
func newService(ctx context.Context, cfg *config.Config) (*app, error) {
	a, err := newCore(cfg)
	if err != nil {
		return nil, err
	}
	a.metrics = metrics.New()

	a.recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			a.recorder = sr
		}
	}

	deps := trader.Deps{
		Engine:      a.engine,
		Store:       a.store,
		Recorder:    a.recorder,
		Metrics:     a.metrics,
		MinNotional: cfg.Trading.MinNotional,
		Parallelism: cfg.Trading.Parallelism,
	}
	if cfg.Telegram.BotToken != "" {
		a.telegram = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		deps.Alerter = a.telegram
	}

	a.pool, err = trader.NewPool(ctx, cfg.Personalities, deps)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// newLedgers builds a pool for inspecting or resetting persisted ledgers without market data.
func newLedgers(ctx context.Context, cfg *config.Config) (*app, error) {
	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, store: st}
	a.pool, err = trader.NewPool(ctx, cfg.Personalities, trader.Deps{Store: st, MinNotional: cfg.Trading.MinNotional})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) Close() {
	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			log.Error().Err(err).Msg("close recorder")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Error().Err(err).Msg("close store")
		}
	}
}
