package trader

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"TradeSentinel/internal/model"
)

// Pool holds one Trader per personality. Traders share Deps but no mutable state.
type Pool struct {
	traders []*Trader
	byID    map[string]*Trader
}

// NewPool builds a trader per personality. Personality IDs must be unique.
func NewPool(ctx context.Context, personalities []model.Personality, deps Deps) (*Pool, error) {
	p := &Pool{byID: make(map[string]*Trader, len(personalities))}
	for _, pers := range personalities {
		if pers.ID == "" {
			return nil, fmt.Errorf("personality %q has no id", pers.Name)
		}
		if _, dup := p.byID[pers.ID]; dup {
			return nil, fmt.Errorf("duplicate personality id %q", pers.ID)
		}
		t := New(ctx, pers, deps)
		p.traders = append(p.traders, t)
		p.byID[pers.ID] = t
	}
	return p, nil
}

// Traders returns traders in configuration order.
func (p *Pool) Traders() []*Trader { return p.traders }

// Get looks a trader up by personality id.
func (p *Pool) Get(id string) (*Trader, bool) {
	t, ok := p.byID[id]
	return t, ok
}

// TickAll ticks every personality in parallel and returns results in configuration order.
func (p *Pool) TickAll(ctx context.Context) []TickResult {
	results := make([]TickResult, len(p.traders))
	var g errgroup.Group
	for i, t := range p.traders {
		i, t := i, t
		g.Go(func() error {
			results[i] = t.Tick(ctx)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Symbols returns the union of every personality's universe.
func (p *Pool) Symbols() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range p.traders {
		for _, s := range t.universe() {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}
