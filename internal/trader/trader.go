// Package trader runs simulated personalities: each tick re-evaluates the universe, closes
// positions that hit an exit rule and then opens new ones.
package trader

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"TradeSentinel/internal/engine"
	"TradeSentinel/internal/ledger"
	"TradeSentinel/internal/metrics"
	"TradeSentinel/internal/model"
	"TradeSentinel/internal/notifier"
	"TradeSentinel/internal/recorder"
	"TradeSentinel/internal/store"
)

// Trade reasons.
const (
	ReasonStopLoss   = "stop-loss"
	ReasonTakeProfit = "take-profit"
	ReasonSellSignal = "sell-signal"
	ReasonBuySignal  = "buy-signal"
)

// MissMaxPositions is reported when a buy signal arrives with every slot taken.
const MissMaxPositions ledger.Miss = "max positions reached"

// Evaluator scores one symbol. *engine.Engine implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, symbol string) (*engine.Evaluation, error)
}

// Alerter delivers trade notifications. *notifier.TelegramNotifier implements it.
type Alerter interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Deps are shared by every trader in a pool. Store, Recorder, Metrics and Alerter are optional.
type Deps struct {
	Engine      Evaluator
	Store       store.Store
	Recorder    recorder.Recorder
	Metrics     *metrics.Metrics
	Alerter     Alerter
	MinNotional float64
	Parallelism int
}

// MissedTrade is a wanted trade the ledger refused.
type MissedTrade struct {
	Symbol string       `json:"symbol"`
	Action model.Action `json:"action"`
	Reason ledger.Miss  `json:"reason"`
}

// TickResult summarizes one tick.
type TickResult struct {
	PersonalityID string            `json:"personality_id"`
	StartedAt     time.Time         `json:"started_at"`
	Duration      time.Duration     `json:"duration"`
	Skipped       bool              `json:"skipped,omitempty"`
	Evaluated     int               `json:"evaluated"`
	Trades        []model.Trade     `json:"trades"`
	Missed        []MissedTrade     `json:"missed,omitempty"`
	Errors        map[string]string `json:"errors,omitempty"`
	Portfolio     ledger.Portfolio  `json:"portfolio"`
}

// Trader owns one personality's ledger. Ticks are non-reentrant.
type Trader struct {
	personality model.Personality
	ledger      *ledger.Ledger
	deps        Deps
	logger      zerolog.Logger

	running atomic.Bool

	mu       sync.RWMutex
	prices   map[string]float64
	evals    map[string]*engine.Evaluation
	lastTick TickResult
}

// New creates a trader and loads its ledger from deps.Store.
func New(ctx context.Context, p model.Personality, deps Deps) *Trader {
	if deps.Recorder == nil {
		deps.Recorder = recorder.NewNoopRecorder()
	}
	if deps.Parallelism <= 0 {
		deps.Parallelism = 4
	}
	return &Trader{
		personality: p,
		ledger:      ledger.New(ctx, p, deps.Store, deps.MinNotional),
		deps:        deps,
		logger:      log.With().Str("component", "trader").Str("personality", p.ID).Logger(),
		prices:      make(map[string]float64),
		evals:       make(map[string]*engine.Evaluation),
	}
}

func (t *Trader) Personality() model.Personality { return t.personality }
func (t *Trader) Ledger() *ledger.Ledger         { return t.ledger }

// Running reports whether a tick is in flight.
func (t *Trader) Running() bool { return t.running.Load() }

// Portfolio projects the ledger at the last evaluated prices.
func (t *Trader) Portfolio() ledger.Portfolio {
	t.mu.RLock()
	prices := make(map[string]float64, len(t.prices))
	for k, v := range t.prices {
		prices[k] = v
	}
	t.mu.RUnlock()
	return t.ledger.Portfolio(prices)
}

// LastTick returns the result of the most recent completed tick.
func (t *Trader) LastTick() TickResult {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastTick
}

// Evaluations returns the latest evaluation per symbol, sorted by symbol.
func (t *Trader) Evaluations() []*engine.Evaluation {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*engine.Evaluation, 0, len(t.evals))
	for _, ev := range t.evals {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Reset restores the ledger to its starting capital. It holds the tick slot while doing so and
// returns false, leaving the ledger alone, when a tick is in flight.
func (t *Trader) Reset() bool {
	if !t.running.CompareAndSwap(false, true) {
		return false
	}
	defer t.running.Store(false)
	t.ledger.Reset()
	return true
}

// Tick evaluates the universe and held symbols, runs the exit pass and then the entry pass.
// A tick requested while another is running returns immediately with Skipped set.
func (t *Trader) Tick(ctx context.Context) TickResult {
	res := TickResult{PersonalityID: t.personality.ID, StartedAt: time.Now().UTC(), Errors: map[string]string{}}
	if !t.running.CompareAndSwap(false, true) {
		t.logger.Warn().Msg("previous tick still running, skipping")
		res.Skipped = true
		return res
	}
	defer t.running.Store(false)

	symbols := t.universe()
	evals, unpriced := t.evaluate(ctx, symbols, &res)
	res.Evaluated = len(evals)

	t.mu.Lock()
	for sym, ev := range evals {
		t.prices[sym] = ev.Price
		t.evals[sym] = ev
	}
	for sym, ev := range unpriced {
		t.evals[sym] = ev
	}
	t.mu.Unlock()

	exited := t.exitPass(symbols, evals, &res)
	t.entryPass(symbols, evals, exited, &res)

	res.Portfolio = t.Portfolio()
	res.Duration = time.Since(res.StartedAt)
	t.report(ctx, evals, unpriced, &res)

	t.mu.Lock()
	t.lastTick = res
	t.mu.Unlock()
	return res
}

// universe is the configured symbols plus anything still held, in stable order.
func (t *Trader) universe() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range t.personality.Symbols {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	held := t.ledger.Snapshot().Positions
	extra := make([]string, 0, len(held))
	for s := range held {
		if !seen[s] {
			extra = append(extra, s)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// evaluate scores every symbol. Evaluations without a usable price come back separately: their
// decisions are recorded but never traded.
func (t *Trader) evaluate(ctx context.Context, symbols []string, res *TickResult) (evals, unpriced map[string]*engine.Evaluation) {
	var mu sync.Mutex
	evals = make(map[string]*engine.Evaluation, len(symbols))
	unpriced = make(map[string]*engine.Evaluation)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.deps.Parallelism)
	for _, sym := range symbols {
		sym := sym
		g.Go(func() error {
			ev, err := t.evaluateOne(gctx, sym)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Errors[sym] = err.Error()
				if errors.Is(err, engine.ErrNoPrice) && ev != nil {
					unpriced[sym] = ev
				}
				t.logger.Warn().Str("symbol", sym).Err(err).Msg("symbol skipped this tick")
				return nil
			}
			evals[sym] = ev
			return nil
		})
	}
	_ = g.Wait()
	return evals, unpriced
}

// evaluateOne isolates a single symbol so a panic in scoring cannot take down the tick.
func (t *Trader) evaluateOne(ctx context.Context, symbol string) (ev *engine.Evaluation, err error) {
	defer func() {
		if r := recover(); r != nil {
			ev, err = nil, fmt.Errorf("evaluate %s panicked: %v", symbol, r)
		}
	}()
	ev, err = t.deps.Engine.Evaluate(ctx, symbol)
	if errors.Is(err, engine.ErrNoPrice) {
		return ev, err
	}
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", symbol, err)
	}
	return ev, nil
}

// exitPass closes positions in priority order stop-loss, take-profit, sell signal.
func (t *Trader) exitPass(symbols []string, evals map[string]*engine.Evaluation, res *TickResult) map[string]bool {
	exited := make(map[string]bool)
	for _, sym := range symbols {
		ev, ok := evals[sym]
		if !ok {
			continue
		}
		if _, held := t.ledger.Position(sym); !held {
			continue
		}
		score := ev.Decision.CompositeScore

		var reason string
		switch {
		case t.ledger.ShouldStopLoss(sym, ev.Price):
			reason = ReasonStopLoss
		case t.ledger.ShouldTakeProfit(sym, ev.Price):
			reason = ReasonTakeProfit
		case score < t.personality.SellScoreThreshold:
			reason = ReasonSellSignal
		default:
			continue
		}

		trade, miss := t.ledger.Sell(sym, ev.Price, reason, score, 0)
		if miss != ledger.MissNone {
			t.missed(res, sym, model.ActionSell, miss)
			continue
		}
		exited[sym] = true
		t.executed(res, trade)
	}
	return exited
}

// entryPass opens positions for buy signals, strongest composite first.
func (t *Trader) entryPass(symbols []string, evals map[string]*engine.Evaluation, exited map[string]bool, res *TickResult) {
	var candidates []*engine.Evaluation
	for _, sym := range symbols {
		ev, ok := evals[sym]
		if !ok || exited[sym] {
			continue
		}
		if _, held := t.ledger.Position(sym); held {
			continue
		}
		if ev.Decision.CompositeScore >= t.personality.BuyScoreThreshold {
			candidates = append(candidates, ev)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Decision.CompositeScore > candidates[j].Decision.CompositeScore
	})

	for _, ev := range candidates {
		if t.personality.MaxPositions > 0 && t.ledger.OpenPositions() >= t.personality.MaxPositions {
			t.missed(res, ev.Symbol, model.ActionBuy, MissMaxPositions)
			continue
		}
		trade, miss := t.ledger.Buy(ev.Symbol, ev.Price, ReasonBuySignal, ev.Decision.CompositeScore)
		if miss != ledger.MissNone {
			t.missed(res, ev.Symbol, model.ActionBuy, miss)
			continue
		}
		t.executed(res, trade)
	}
}

func (t *Trader) executed(res *TickResult, trade model.Trade) {
	res.Trades = append(res.Trades, trade)
	t.deps.Metrics.TradeExecuted(t.personality.ID, string(trade.Action), trade.Reason)
	if err := t.deps.Recorder.RecordTrade(t.personality.ID, &trade); err != nil {
		t.logger.Error().Err(err).Str("trade", trade.ID).Msg("record trade")
	}
}

func (t *Trader) missed(res *TickResult, symbol string, action model.Action, miss ledger.Miss) {
	res.Missed = append(res.Missed, MissedTrade{Symbol: symbol, Action: action, Reason: miss})
	t.deps.Metrics.TradeMissed(t.personality.ID, string(miss))
	t.logger.Info().Bool("missed", true).Str("symbol", symbol).Str("action", string(action)).
		Str("reason", string(miss)).Msg("trade not executed")
}

func (t *Trader) report(ctx context.Context, evals, unpriced map[string]*engine.Evaluation, res *TickResult) {
	for _, set := range []map[string]*engine.Evaluation{evals, unpriced} {
		for sym, ev := range set {
			t.deps.Metrics.SetComposite(sym, ev.Decision.CompositeScore)
			d := ev.Decision
			if err := t.deps.Recorder.RecordDecision(&recorder.DecisionEvent{
				PersonalityID: t.personality.ID, Symbol: sym, Price: ev.Price, Decision: &d,
			}); err != nil {
				t.logger.Error().Err(err).Str("symbol", sym).Msg("record decision")
			}
		}
	}

	var buys, sells int
	for _, tr := range res.Trades {
		if tr.Action == model.ActionBuy {
			buys++
		} else {
			sells++
		}
	}
	pf := res.Portfolio
	t.deps.Metrics.ObserveTick(t.personality.ID, res.Duration, len(res.Errors))
	t.deps.Metrics.SetPortfolio(t.personality.ID, pf.Cash, pf.TotalValue, len(pf.Positions))
	if err := t.deps.Recorder.RecordTick(&recorder.TickEvent{
		PersonalityID: t.personality.ID, Evaluated: res.Evaluated, Buys: buys, Sells: sells,
		Missed: len(res.Missed), Errors: len(res.Errors), Cash: pf.Cash, TotalValue: pf.TotalValue,
		Duration: res.Duration,
	}); err != nil {
		t.logger.Error().Err(err).Msg("record tick")
	}

	if len(res.Trades) > 0 && t.deps.Alerter != nil {
		if err := t.deps.Alerter.SendWithRetry(ctx, notifier.FormatTrades(t.personality, res.Trades), 2); err != nil {
			t.logger.Error().Err(err).Msg("send trade alert")
		}
	}

	t.logger.Info().Int("evaluated", res.Evaluated).Int("buys", buys).Int("sells", sells).
		Int("missed", len(res.Missed)).Int("errors", len(res.Errors)).
		Float64("total_value", pf.TotalValue).Dur("took", res.Duration).Msg("tick complete")
}
