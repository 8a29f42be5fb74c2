// Package engine runs the per-symbol pipeline: data, modules, optimizer, synthesizer.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"TradeSentinel/internal/model"
	"TradeSentinel/internal/optimizer"
	"TradeSentinel/internal/sentiment"
	"TradeSentinel/internal/signals"
	"TradeSentinel/internal/synthesizer"
)

// ErrNoPrice means neither a quote nor a last close was available; the decision is still produced
// but must not be traded on.
var ErrNoPrice = errors.New("no price available")

// DataSource assembles module inputs for a symbol. *collector.Collector implements it.
type DataSource interface {
	Collect(ctx context.Context, symbol string) signals.Inputs
}

// Evaluation is the full result of one pipeline run.
type Evaluation struct {
	Symbol      string           `json:"symbol"`
	Price       float64          `json:"price"`
	Quote       *model.Quote     `json:"quote,omitempty"`
	News        *model.Sentiment `json:"news,omitempty"`
	Report      signals.Report   `json:"report"`
	Weights     optimizer.Result `json:"weights"`
	Decision    model.Decision   `json:"decision"`
	EvaluatedAt time.Time        `json:"evaluated_at"`
}

// Engine is stateless apart from its collaborators; one instance is shared by all personalities.
type Engine struct {
	data             DataSource
	sentiment        sentiment.Provider
	optimizer        *optimizer.Optimizer
	sentimentTimeout time.Duration
}

// New creates an Engine. A nil sentiment provider means no news.
func New(data DataSource, sent sentiment.Provider, opt *optimizer.Optimizer) *Engine {
	if sent == nil {
		sent = sentiment.Noop{}
	}
	return &Engine{data: data, sentiment: sent, optimizer: opt, sentimentTimeout: 5 * time.Second}
}

// Evaluate collects data for symbol and scores it. The Evaluation is returned even when err is
// ErrNoPrice.
func (e *Engine) Evaluate(ctx context.Context, symbol string) (*Evaluation, error) {
	in := e.data.Collect(ctx, symbol)
	news := e.news(ctx, symbol)
	ev := e.Score(ctx, in, news)
	if ev.Price <= 0 {
		return ev, fmt.Errorf("%s: %w", symbol, ErrNoPrice)
	}
	return ev, nil
}

// Score runs modules, optimizer and synthesizer over already collected inputs.
func (e *Engine) Score(ctx context.Context, in signals.Inputs, news *model.Sentiment) *Evaluation {
	rep := signals.Analyze(in)
	weights := e.optimizer.Optimize(ctx, optimizer.InputsFrom(rep, in.Bars, news))
	decision := synthesizer.Synthesize(synthesizer.Input{
		Symbol: in.Symbol,
		Report: rep,
		Regime: weights.Regime,
		Core:   weights.Core,
		Pulse:  weights.Pulse,
		News:   news,
	})
	price, _ := in.Price()
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	log.Debug().Str("component", "engine").Str("symbol", in.Symbol).
		Str("regime", string(weights.Regime)).Float64("composite", decision.CompositeScore).
		Str("signal", string(decision.CompositeSignal)).Str("confidence", string(decision.Confidence)).
		Int("modules", decision.Contributing).Msg("symbol evaluated")

	return &Evaluation{
		Symbol:      in.Symbol,
		Price:       price,
		Quote:       in.Quote,
		News:        news,
		Report:      rep,
		Weights:     weights,
		Decision:    decision,
		EvaluatedAt: now,
	}
}

func (e *Engine) news(ctx context.Context, symbol string) *model.Sentiment {
	sctx, cancel := context.WithTimeout(ctx, e.sentimentTimeout)
	defer cancel()
	s, err := e.sentiment.GetSentiment(sctx, symbol)
	if err != nil {
		if !errors.Is(err, sentiment.ErrUnavailable) {
			log.Warn().Str("component", "engine").Str("symbol", symbol).Err(err).Msg("sentiment unavailable")
		}
		return nil
	}
	return s
}
