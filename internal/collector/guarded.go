package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"TradeSentinel/internal/model"
)

// GuardConfig tunes the guarded provider.
type GuardConfig struct {
	RequestsPerSecond   float64
	Burst               int
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// Guarded wraps a Provider with a client-side rate limit and a circuit breaker. While the breaker
// is open every call fails fast with ErrUnavailable.
type Guarded struct {
	inner   Provider
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewGuarded wraps p. Zero config values select conservative defaults.
func NewGuarded(p Provider, cfg GuardConfig) *Guarded {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = time.Minute
	}
	threshold := cfg.ConsecutiveFailures
	settings := gobreaker.Settings{
		Name:        p.Name(),
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Missing data is an answer, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("component", "collector").Str("provider", name).
				Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	}
	return &Guarded{
		inner:   p,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func (g *Guarded) Name() string { return g.inner.Name() }

// State reports the breaker state.
func (g *Guarded) State() gobreaker.State { return g.breaker.State() }

func (g *Guarded) do(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	res, err := g.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s: %v: %w", g.inner.Name(), err, ErrUnavailable)
	}
	return res, err
}

func (g *Guarded) FetchQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	res, err := g.do(ctx, func() (interface{}, error) { return g.inner.FetchQuote(ctx, symbol) })
	if err != nil {
		return nil, err
	}
	return res.(*model.Quote), nil
}

func (g *Guarded) FetchCandles(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	res, err := g.do(ctx, func() (interface{}, error) { return g.inner.FetchCandles(ctx, symbol, days) })
	if err != nil {
		return nil, err
	}
	return res.([]model.OHLCV), nil
}

func (g *Guarded) FetchFundamentals(ctx context.Context, symbol string) (*model.Fundamentals, error) {
	res, err := g.do(ctx, func() (interface{}, error) { return g.inner.FetchFundamentals(ctx, symbol) })
	if err != nil {
		return nil, err
	}
	return res.(*model.Fundamentals), nil
}
