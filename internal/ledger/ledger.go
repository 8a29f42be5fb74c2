// Package ledger is the per-personality position ledger: cash, single-lot positions and trade
// history, persisted through a store after every mutation.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"TradeSentinel/internal/model"
	"TradeSentinel/internal/store"
)

// Miss names why a buy or sell did not execute. The empty Miss means the trade happened.
type Miss string

const (
	MissNone             Miss = ""
	MissInvalidPrice     Miss = "invalid price"
	MissInsufficientCash Miss = "insufficient cash"
	MissBelowMinimum     Miss = "below minimum notional"
	MissFractionalShare  Miss = "less than one share"
	MissNoPosition       Miss = "no position"
)

// DefaultMinNotional is the smallest trade value the ledger executes.
const DefaultMinNotional = 10.0

const (
	saveTimeout = 5 * time.Second
	epsilon     = 1e-9
)

// Key returns the store key for a personality's ledger.
func Key(personalityID string) string { return "ledger:" + personalityID }

// Ledger is safe for concurrent use. Only Buy, BuyShares, Sell and Reset mutate it.
type Ledger struct {
	mu          sync.Mutex
	personality model.Personality
	minNotional decimal.Decimal
	cash        decimal.Decimal
	state       *model.LedgerState
	store       store.Store
	logger      zerolog.Logger
	now         func() time.Time
}

// New creates a ledger for p and loads any persisted state. A nil store keeps the ledger in memory.
// A failed load falls back to a fresh ledger holding StartingCapital.
func New(ctx context.Context, p model.Personality, st store.Store, minNotional float64) *Ledger {
	if minNotional <= 0 {
		minNotional = DefaultMinNotional
	}
	l := &Ledger{
		personality: p,
		minNotional: decimal.NewFromFloat(minNotional),
		store:       st,
		logger:      log.With().Str("component", "ledger").Str("personality", p.ID).Logger(),
		now:         func() time.Time { return time.Now().UTC() },
	}
	l.reset()
	if err := l.Load(ctx); err != nil {
		l.logger.Error().Err(err).Msg("failed to load ledger, starting fresh")
		l.reset()
	}
	return l
}

// Load replaces the in-memory state with the persisted one. A missing key is not an error.
func (l *Ledger) Load(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	var st model.LedgerState
	err := store.GetJSON(ctx, l.store, Key(l.personality.ID), &st)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load ledger %s: %w", l.personality.ID, err)
	}
	if st.Positions == nil {
		st.Positions = make(map[string]*model.Position)
	}
	if st.Cash < 0 {
		return fmt.Errorf("load ledger %s: negative cash %.2f", l.personality.ID, st.Cash)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = &st
	l.cash = decimal.NewFromFloat(st.Cash)
	l.logger.Info().Float64("cash", st.Cash).Int("positions", len(st.Positions)).
		Int("trades", len(st.Trades)).Msg("ledger loaded")
	return nil
}

// Save persists the current state.
func (l *Ledger) Save(ctx context.Context) error {
	l.mu.Lock()
	snap := l.snapshot()
	l.mu.Unlock()
	return l.persist(ctx, snap)
}

// Buy opens or extends a position sized at cash * PositionSizeFraction, capped so the position
// stays within that fraction of total portfolio value.
func (l *Ledger) Buy(symbol string, price float64, reason string, score float64) (model.Trade, Miss) {
	symbol = strings.ToUpper(symbol)
	if !validPrice(price) {
		return model.Trade{}, MissInvalidPrice
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cash.LessThan(l.minNotional) {
		return model.Trade{}, MissInsufficientCash
	}
	frac := decimal.NewFromFloat(model.Clamp(l.personality.PositionSizeFraction, 0, 1))
	px := decimal.NewFromFloat(price)
	notional := l.cash.Mul(frac)

	held := decimal.Zero
	if pos, ok := l.state.Positions[symbol]; ok {
		held = decimal.NewFromFloat(pos.Shares).Mul(px)
	}
	if limit := l.totalValue(symbol, price).Mul(frac).Sub(held); notional.GreaterThan(limit) {
		notional = decimal.Max(limit, decimal.Zero)
	}
	if notional.GreaterThan(l.cash) {
		notional = l.cash
	}

	shares := notional.Div(px)
	if shares.LessThan(decimal.NewFromInt(1)) {
		return model.Trade{}, MissFractionalShare
	}
	if notional.LessThan(l.minNotional) {
		return model.Trade{}, MissBelowMinimum
	}
	return l.executeBuy(symbol, px, shares.InexactFloat64(), notional, reason, score), MissNone
}

// BuyShares buys an explicit quantity.
func (l *Ledger) BuyShares(symbol string, shares, price float64, reason string, score float64) (model.Trade, Miss) {
	symbol = strings.ToUpper(symbol)
	if !validPrice(price) {
		return model.Trade{}, MissInvalidPrice
	}
	if shares < 1 {
		return model.Trade{}, MissFractionalShare
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	px := decimal.NewFromFloat(price)
	amount := px.Mul(decimal.NewFromFloat(shares))
	if amount.LessThan(l.minNotional) {
		return model.Trade{}, MissBelowMinimum
	}
	if amount.GreaterThan(l.cash) {
		return model.Trade{}, MissInsufficientCash
	}
	return l.executeBuy(symbol, px, shares, amount, reason, score), MissNone
}

// Sell closes shares of symbol; shares <= 0 or at least the held quantity closes the whole lot.
func (l *Ledger) Sell(symbol string, price float64, reason string, score float64, shares float64) (model.Trade, Miss) {
	symbol = strings.ToUpper(symbol)
	if !validPrice(price) {
		return model.Trade{}, MissInvalidPrice
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.state.Positions[symbol]
	if !ok {
		return model.Trade{}, MissNoPosition
	}
	if shares <= 0 || shares > pos.Shares-epsilon {
		shares = pos.Shares
	}

	px := decimal.NewFromFloat(price)
	qty := decimal.NewFromFloat(shares)
	proceeds := px.Mul(qty)
	realized := px.Sub(decimal.NewFromFloat(pos.AverageCost)).Mul(qty).InexactFloat64()

	l.cash = l.cash.Add(proceeds)
	pos.Shares -= shares
	pos.CurrentPrice = price
	if pos.Shares <= epsilon {
		delete(l.state.Positions, symbol)
	}

	t := l.record(model.Trade{
		Symbol:      symbol,
		Action:      model.ActionSell,
		Price:       price,
		Shares:      shares,
		Amount:      proceeds.InexactFloat64(),
		Reason:      reason,
		Score:       score,
		RealizedPnL: &realized,
	})
	l.logger.Info().Str("symbol", symbol).Float64("shares", shares).Float64("price", price).
		Float64("realized_pnl", realized).Str("reason", reason).Msg("sell executed")
	return t, MissNone
}

// ShouldStopLoss reports whether the position's unrealized loss at price reached StopLossPct.
func (l *Ledger) ShouldStopLoss(symbol string, price float64) bool {
	if l.personality.StopLossPct <= 0 {
		return false
	}
	pct, ok := l.pnlPct(symbol, price)
	return ok && pct <= -l.personality.StopLossPct+epsilon
}

// ShouldTakeProfit reports whether the position's unrealized gain at price reached TakeProfitPct.
func (l *Ledger) ShouldTakeProfit(symbol string, price float64) bool {
	if l.personality.TakeProfitPct <= 0 {
		return false
	}
	pct, ok := l.pnlPct(symbol, price)
	return ok && pct >= l.personality.TakeProfitPct-epsilon
}

// Reset restores the starting capital and drops all positions and trades.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.reset()
	snap := l.snapshot()
	l.mu.Unlock()
	l.logger.Info().Float64("cash", snap.Cash).Msg("ledger reset")
	l.save(snap)
}

// Position returns a copy of the lot held for symbol.
func (l *Ledger) Position(symbol string) (model.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, ok := l.state.Positions[strings.ToUpper(symbol)]
	if !ok {
		return model.Position{}, false
	}
	return *pos, true
}

// OpenPositions counts held lots.
func (l *Ledger) OpenPositions() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.state.Positions)
}

// Cash returns available cash.
func (l *Ledger) Cash() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cash.InexactFloat64()
}

// Trades returns up to n most recent trades, newest first. n <= 0 returns all.
func (l *Ledger) Trades(n int) []model.Trade {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 || n > len(l.state.Trades) {
		n = len(l.state.Trades)
	}
	out := make([]model.Trade, n)
	copy(out, l.state.Trades[:n])
	return out
}

// Snapshot returns a deep copy of the ledger state.
func (l *Ledger) Snapshot() model.LedgerState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot()
}

// Personality returns the configuration the ledger was created with.
func (l *Ledger) Personality() model.Personality { return l.personality }

func (l *Ledger) executeBuy(symbol string, px decimal.Decimal, shares float64, amount decimal.Decimal, reason string, score float64) model.Trade {
	price := px.InexactFloat64()
	l.cash = l.cash.Sub(amount)
	if l.cash.IsNegative() {
		l.cash = decimal.Zero
	}

	if pos, ok := l.state.Positions[symbol]; ok {
		total := pos.Shares + shares
		pos.AverageCost = (pos.Shares*pos.AverageCost + shares*price) / total
		pos.Shares = total
		pos.CurrentPrice = price
	} else {
		l.state.Positions[symbol] = &model.Position{
			Symbol:       symbol,
			Shares:       shares,
			AverageCost:  price,
			CurrentPrice: price,
			OpenedAt:     l.now(),
		}
	}

	t := l.record(model.Trade{
		Symbol: symbol,
		Action: model.ActionBuy,
		Price:  price,
		Shares: shares,
		Amount: amount.InexactFloat64(),
		Reason: reason,
		Score:  score,
	})
	l.logger.Info().Str("symbol", symbol).Float64("shares", shares).Float64("price", price).
		Float64("amount", t.Amount).Str("reason", reason).Msg("buy executed")
	return t
}

// record stamps and prepends t, then persists. Caller holds mu.
func (l *Ledger) record(t model.Trade) model.Trade {
	t.ID = uuid.NewString()
	t.Timestamp = l.now()
	l.state.Trades = append([]model.Trade{t}, l.state.Trades...)
	l.state.UpdatedAt = t.Timestamp
	l.save(l.snapshot())
	return t
}

// save persists snap; failures are logged and the in-memory state is kept.
func (l *Ledger) save(snap model.LedgerState) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := l.persist(ctx, snap); err != nil {
		l.logger.Error().Err(err).Msg("failed to save ledger")
	}
}

func (l *Ledger) persist(ctx context.Context, snap model.LedgerState) error {
	if l.store == nil {
		return nil
	}
	return store.SetJSON(ctx, l.store, Key(l.personality.ID), snap)
}

func (l *Ledger) reset() {
	now := l.now()
	l.cash = decimal.NewFromFloat(l.personality.StartingCapital)
	l.state = &model.LedgerState{
		PersonalityID:   l.personality.ID,
		StartingCapital: l.personality.StartingCapital,
		Cash:            l.personality.StartingCapital,
		Positions:       make(map[string]*model.Position),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// snapshot copies state. Caller holds mu.
func (l *Ledger) snapshot() model.LedgerState {
	s := *l.state
	s.Cash = l.cash.InexactFloat64()
	s.Positions = make(map[string]*model.Position, len(l.state.Positions))
	for k, p := range l.state.Positions {
		cp := *p
		s.Positions[k] = &cp
	}
	s.Trades = make([]model.Trade, len(l.state.Trades))
	for i, t := range l.state.Trades {
		if t.RealizedPnL != nil {
			v := *t.RealizedPnL
			t.RealizedPnL = &v
		}
		s.Trades[i] = t
	}
	return s
}

// totalValue is cash plus every position marked at its last price, with symbol marked at price.
// Caller holds mu.
func (l *Ledger) totalValue(symbol string, price float64) decimal.Decimal {
	total := l.cash
	for sym, p := range l.state.Positions {
		mark := p.CurrentPrice
		if sym == symbol {
			mark = price
		}
		total = total.Add(decimal.NewFromFloat(p.Shares).Mul(decimal.NewFromFloat(mark)))
	}
	return total
}

func (l *Ledger) pnlPct(symbol string, price float64) (float64, bool) {
	if !validPrice(price) {
		return 0, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, ok := l.state.Positions[strings.ToUpper(symbol)]
	if !ok {
		return 0, false
	}
	return pos.UnrealizedPnLPct(price), true
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}
