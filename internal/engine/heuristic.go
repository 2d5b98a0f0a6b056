package engine

import (
	"context"
	"math/rand"
	"sync"
)

// Heuristic probability bounds and jitter.
const (
	HeuristicFloor   = 0.10
	HeuristicCeiling = 0.95
	HeuristicJitter  = 0.02
	heuristicBase    = 0.15
)

// Jitter returns a value in [-1, 1] used to perturb heuristic estimates.
type Jitter func() float64

// NoJitter is a Jitter that never perturbs.
func NoJitter() float64 { return 0 }

// NewRandomJitter returns a goroutine-safe Jitter seeded with seed.
func NewRandomJitter(seed int64) Jitter {
	var mu sync.Mutex
	rng := rand.New(rand.NewSource(seed))
	return func() float64 {
		mu.Lock()
		defer mu.Unlock()
		return rng.Float64()*2 - 1
	}
}

// HeuristicScorer estimates a readmission probability from threshold rules
// alone. It stands in for the model when none is available.
type HeuristicScorer struct {
	jitter Jitter
}

// NewHeuristicScorer creates a HeuristicScorer. A nil jitter disables perturbation.
func NewHeuristicScorer(jitter Jitter) *HeuristicScorer {
	if jitter == nil {
		jitter = NoJitter
	}
	return &HeuristicScorer{jitter: jitter}
}

// ScoreModel implements ProbabilityScorer. It never fails.
func (h *HeuristicScorer) ScoreModel(_ context.Context, in ScoreInput) (float64, error) {
	return h.Estimate(in.Record, in.Condition), nil
}

// Estimate returns the heuristic probability in [HeuristicFloor, HeuristicCeiling].
func (h *HeuristicScorer) Estimate(r PatientRecord, condition ConditionType) float64 {
	p := heuristicBase

	if age, ok := r.Number(FeatureAge); ok {
		switch {
		case age >= 75:
			p += 0.20
		case age >= 60:
			p += 0.10
		}
	}

	if sys, dia, ok := ParseBloodPressure(r[FeatureBloodPressure]); ok {
		switch {
		case sys >= 160 || dia >= 100:
			p += 0.15
		case sys >= 140 || dia >= 90:
			p += 0.08
		}
	}

	if chol, ok := r.Number(FeatureCholesterol); ok {
		switch {
		case chol >= 260:
			p += 0.10
		case chol >= 220:
			p += 0.05
		}
	}

	if plt, ok := r.Number(FeaturePlatelets); ok && plt > 0 && (plt < 150 || plt > 450) {
		p += 0.05
	}
	if containsFold(r, FeatureInsulin, "high") {
		p += 0.08
	}

	switch condition {
	case Diabetes:
		if v, ok := r.Number(FeatureHemoglobin); ok && v < 10 {
			p += 0.08
		}
		if v, ok := r.Number(FeatureWBC); ok && v >= 11 {
			p += 0.05
		}
		if v, ok := r.Number(FeatureUrineProtein); ok && v >= 30 {
			p += 0.06
		}
		if v, ok := r.Number(FeatureUrineGlucose); ok && v >= 20 {
			p += 0.06
		}
	default:
		switch {
		case containsFold(r, FeatureECG, "abnormal"):
			p += 0.12
		case containsFold(r, FeatureECG, "borderline"):
			p += 0.06
		}
		if v, ok := r.Number(FeaturePulse); ok && v >= 100 {
			p += 0.08
		}
	}

	p += clamp(h.jitter(), -1, 1) * HeuristicJitter
	return clamp(p, HeuristicFloor, HeuristicCeiling)
}
