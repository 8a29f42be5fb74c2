package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"TradeSentinel/internal/engine"
	"TradeSentinel/internal/ledger"
	"TradeSentinel/internal/notifier"
	"TradeSentinel/internal/trader"
)

// MinInterval is the shortest accepted tick interval.
const MinInterval = time.Second

// Scheduler runs one cron job per personality. Jobs never overlap with themselves.
type Scheduler struct {
	Cron *cron.Cron
	Pool *trader.Pool
	Ctx  context.Context

	logger  zerolog.Logger
	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, pool *trader.Pool) *Scheduler {
	logger := log.With().Str("component", "scheduler").Logger()
	cronLogger := cron.PrintfLogger(&logger)
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		Pool:    pool,
		Ctx:     ctx,
		logger:  logger,
		entries: make(map[string]cron.EntryID),
	}
}

// Register schedules t every interval.
func (s *Scheduler) Register(t *trader.Trader, interval time.Duration) error {
	if interval < MinInterval {
		return fmt.Errorf("tick interval %s below minimum %s", interval, MinInterval)
	}
	id := t.Personality().ID

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; ok {
		return fmt.Errorf("personality %q already scheduled", id)
	}
	entry, err := s.Cron.AddFunc(fmt.Sprintf("@every %s", interval), func() { s.tick(t) })
	if err != nil {
		return fmt.Errorf("register %s: %w", id, err)
	}
	s.entries[id] = entry
	s.logger.Info().Str("personality", id).Dur("interval", interval).Msg("personality scheduled")
	return nil
}

// RegisterAll schedules every trader in the pool at the same interval.
func (s *Scheduler) RegisterAll(interval time.Duration) error {
	for _, t := range s.Pool.Traders() {
		if err := s.Register(t, interval); err != nil {
			return err
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info().Int("jobs", len(s.entries)).Msg("scheduler started")
}

// Stop prevents new ticks. The returned context is done once in-flight ticks finish.
func (s *Scheduler) Stop() context.Context {
	ctx := s.Cron.Stop()
	s.logger.Info().Msg("scheduler stopped")
	return ctx
}

// Next returns the next scheduled run for a personality.
func (s *Scheduler) Next(id string) (time.Time, bool) {
	s.mu.Lock()
	entry, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return s.Cron.Entry(entry).Next, true
}

// RunNow ticks every personality immediately (manual trigger / run_on_start).
func (s *Scheduler) RunNow() []trader.TickResult {
	return s.Pool.TickAll(s.Ctx)
}

func (s *Scheduler) tick(t *trader.Trader) {
	if s.Ctx.Err() != nil {
		return
	}
	t.Tick(s.Ctx)
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return help()
	}
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch fields[0] {
	case "/portfolio":
		traders, err := s.pick(arg)
		if err != nil {
			return err.Error()
		}
		parts := make([]string, 0, len(traders))
		for _, t := range traders {
			parts = append(parts, notifier.FormatPortfolio(t.Portfolio()))
		}
		return strings.Join(parts, "\n")
	case "/trades":
		traders, err := s.pick(arg)
		if err != nil {
			return err.Error()
		}
		parts := make([]string, 0, len(traders))
		for _, t := range traders {
			parts = append(parts, notifier.FormatRecentTrades(t.Personality().Name, t.Ledger().Trades(10)))
		}
		return strings.Join(parts, "\n")
	case "/status":
		return s.status()
	case "/tick":
		results := s.RunNow()
		var trades int
		for _, r := range results {
			trades += len(r.Trades)
		}
		return fmt.Sprintf("✅ tick complete: %d personalities, %d trade(s)", len(results), trades)
	default:
		return help()
	}
}

func (s *Scheduler) pick(id string) ([]*trader.Trader, error) {
	if id == "" {
		return s.Pool.Traders(), nil
	}
	t, ok := s.Pool.Get(id)
	if !ok {
		return nil, fmt.Errorf("unknown personality %q", id)
	}
	return []*trader.Trader{t}, nil
}

func (s *Scheduler) status() string {
	var portfolios []ledger.Portfolio
	latest := make(map[string]*engine.Evaluation)
	var lastTick time.Time
	for _, t := range s.Pool.Traders() {
		portfolios = append(portfolios, t.Portfolio())
		if lt := t.LastTick(); lt.StartedAt.After(lastTick) {
			lastTick = lt.StartedAt
		}
		for _, ev := range t.Evaluations() {
			if cur, ok := latest[ev.Symbol]; !ok || ev.EvaluatedAt.After(cur.EvaluatedAt) {
				latest[ev.Symbol] = ev
			}
		}
	}
	evals := make([]*engine.Evaluation, 0, len(latest))
	for _, ev := range latest {
		evals = append(evals, ev)
	}
	sort.Slice(evals, func(i, j int) bool { return evals[i].Symbol < evals[j].Symbol })
	return notifier.FormatStatus(portfolios, evals, lastTick)
}

func help() string {
	return "Available commands:\n• /status\n• /portfolio [id]\n• /trades [id]\n• /tick"
}
