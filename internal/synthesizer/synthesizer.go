// Package synthesizer fuses module scores into a Decision. Output depends only on its inputs.
package synthesizer

import (
	"math"

	"TradeSentinel/internal/model"
	"TradeSentinel/internal/signals"
)

// Composite blend.
const (
	coreShare  = 0.40
	pulseShare = 0.45
	newsShare  = 0.15

	minContributing = 3
)

// Input is everything one decision is computed from.
type Input struct {
	Symbol string
	Report signals.Report
	Regime model.Regime
	Core   model.ModuleWeights
	Pulse  model.ModuleWeights
	News   *model.Sentiment
}

// Synthesize computes core, pulse and composite scores with labels, confidence and the explanation.
func Synthesize(in Input) model.Decision {
	scores := in.Report.Scores()
	core, contributing := WeightedScore(scores, in.Core)
	pulse, _ := WeightedScore(scores, in.Pulse)
	// Labels, confidence and the explanation all read the reported (rounded) scores.
	core, pulse = round1(core), round1(pulse)
	news := NewsScore(in.News)
	composite := Composite(core, pulse, news)

	d := model.Decision{
		Symbol:          in.Symbol,
		CoreScore:       core,
		PulseScore:      pulse,
		NewsScore:       news,
		CompositeScore:  composite,
		CoreSignal:      Label(core),
		PulseSignal:     Label(pulse),
		CompositeSignal: Label(composite),
		Confidence:      Confidence(core, pulse, news, contributing),
		Contributing:    contributing,
		Regime:          in.Regime,
	}
	explain(&d, in.Report, in.News != nil)
	return d
}

// WeightedScore averages available module scores with w, renormalizing over the modules present.
// Only the six module slots take part. Returns the neutral score when nothing is available.
func WeightedScore(scores []model.Score, w model.ModuleWeights) (float64, int) {
	var sum, weights, plain float64
	n := 0
	for _, s := range scores {
		if !s.Available {
			continue
		}
		n++
		plain += s.Value
		wt := w[model.SlotOf(s.Module)]
		if math.IsNaN(wt) || wt <= 0 {
			continue
		}
		sum += s.Value * wt
		weights += wt
	}
	switch {
	case n == 0:
		return model.NeutralScore, 0
	case weights == 0:
		return model.Clamp(plain/float64(n), 0, 100), n
	default:
		return model.Clamp(sum/weights, 0, 100), n
	}
}

// NewsScore returns the sentiment clamped to [-100,100], or 0 when absent.
func NewsScore(s *model.Sentiment) float64 {
	if s == nil {
		return 0
	}
	return model.Clamp(s.Score, -100, 100)
}

// Composite is round(0.40*core + 0.45*pulse + 0.15*(50 + news/2)) in [0,100].
func Composite(core, pulse, news float64) float64 {
	normalized := 50 + model.Clamp(news, -100, 100)/2
	return model.Clamp(math.Round(coreShare*core+pulseShare*pulse+newsShare*normalized), 0, 100)
}

// Label maps a score to its signal. The same thresholds apply to core, pulse and composite.
func Label(score float64) model.Signal {
	switch {
	case score >= 80:
		return model.SignalStrongBuy
	case score >= 65:
		return model.SignalBuy
	case score >= 50:
		return model.SignalHold
	case score >= 35:
		return model.SignalSell
	default:
		return model.SignalStrongSell
	}
}

// Confidence grades agreement between the horizons. Fewer than three contributing modules is always Low.
func Confidence(core, pulse, news float64, contributing int) model.Confidence {
	if contributing < minContributing {
		return model.ConfidenceLow
	}
	diff := math.Abs(core - pulse)
	bullish := core >= 65 && pulse >= 65 && news >= 0
	bearish := core <= 35 && pulse <= 35 && news <= 0
	switch {
	case diff < 15 && (bullish || bearish):
		return model.ConfidenceHigh
	case diff < 30:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
