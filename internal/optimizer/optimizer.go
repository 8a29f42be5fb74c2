// Package optimizer classifies the market regime and produces the core and pulse weight vectors.
// It never trains: learned vectors are supplied from outside through StoreLearnings.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"TradeSentinel/internal/model"
	"TradeSentinel/internal/store"
)

const (
	// LearnedKey is the store key of the learned weight pair.
	LearnedKey = "optimizer:learned"
	// DefaultBlend is the share of the learned vector in the final weights.
	DefaultBlend = 0.6
)

// Learned is a stored pair of externally supplied weight vectors.
type Learned struct {
	Core     model.ModuleWeights `json:"core"`
	Pulse    model.ModuleWeights `json:"pulse"`
	StoredAt time.Time           `json:"stored_at"`
}

// Result is the optimizer output for one symbol.
type Result struct {
	Regime  model.Regime        `json:"regime"`
	Core    model.ModuleWeights `json:"core"`
	Pulse   model.ModuleWeights `json:"pulse"`
	Blended bool                `json:"blended"`
}

// Optimizer blends the regime base tables with the learned pair, if one is stored.
type Optimizer struct {
	store store.Store
	blend float64
}

// New creates an Optimizer. A blend outside (0,1] falls back to DefaultBlend.
func New(st store.Store, blend float64) *Optimizer {
	if blend <= 0 || blend > 1 {
		blend = DefaultBlend
	}
	return &Optimizer{store: st, blend: blend}
}

// Blend returns the learned-vector share.
func (o *Optimizer) Blend() float64 { return o.blend }

// Optimize detects the regime and returns the final weights. A store failure degrades to the base
// tables with a warning.
func (o *Optimizer) Optimize(ctx context.Context, in Inputs) Result {
	regime := DetectRegime(in)
	core, pulse := BaseWeights(regime)
	res := Result{Regime: regime, Core: core, Pulse: pulse}

	learned, ok, err := o.load(ctx)
	if err != nil {
		log.Warn().Str("component", "optimizer").Err(err).Msg("learned weights unavailable, using base tables")
		return res
	}
	if ok {
		res.Core = core.Blend(learned.Core, o.blend)
		res.Pulse = pulse.Blend(learned.Pulse, o.blend)
		res.Blended = true
	}
	return res
}

// StoreLearnings persists a learned pair. Vectors are normalized before storing.
func (o *Optimizer) StoreLearnings(ctx context.Context, core, pulse model.ModuleWeights) error {
	l := Learned{Core: core.Normalize(), Pulse: pulse.Normalize(), StoredAt: time.Now().UTC()}
	if err := store.SetJSON(ctx, o.store, LearnedKey, l); err != nil {
		return fmt.Errorf("store learnings: %w", err)
	}
	log.Info().Str("component", "optimizer").Msg("learned weights stored")
	return nil
}

// ClearLearnings removes the learned pair; subsequent optimizations use the base tables only.
func (o *Optimizer) ClearLearnings(ctx context.Context) error {
	if err := o.store.Delete(ctx, LearnedKey); err != nil {
		return fmt.Errorf("clear learnings: %w", err)
	}
	log.Info().Str("component", "optimizer").Msg("learned weights cleared")
	return nil
}

// Learned returns the stored pair, if any.
func (o *Optimizer) Learned(ctx context.Context) (Learned, bool, error) {
	return o.load(ctx)
}

func (o *Optimizer) load(ctx context.Context) (Learned, bool, error) {
	var l Learned
	err := store.GetJSON(ctx, o.store, LearnedKey, &l)
	if errors.Is(err, store.ErrNotFound) {
		return Learned{}, false, nil
	}
	if err != nil {
		return Learned{}, false, err
	}
	return l, true, nil
}
