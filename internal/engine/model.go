package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrFeatureNamesUnavailable is reported by a Model that cannot state its
	// expected column order; the engine then uses DefaultSchema.
	ErrFeatureNamesUnavailable = errors.New("model feature names unavailable")
	// ErrModelUnavailable is returned when no model is configured.
	ErrModelUnavailable = errors.New("model unavailable")
)

// Model is the external trained classifier.
type Model interface {
	PredictProbability(ctx context.Context, features FeatureVector) (float64, error)
	FeatureNames(ctx context.Context, condition ConditionType) ([]string, error)
}

// ScoreInput is everything a probability strategy may look at.
type ScoreInput struct {
	Record    PatientRecord
	Condition ConditionType
	Features  FeatureVector
}

// ProbabilityScorer produces the probability that enters the blend.
type ProbabilityScorer interface {
	ScoreModel(ctx context.Context, in ScoreInput) (float64, error)
}

// ModelScorer adapts a Model to ProbabilityScorer.
type ModelScorer struct {
	model Model
}

// NewModelScorer wraps model. A nil model always reports ErrModelUnavailable.
func NewModelScorer(model Model) *ModelScorer {
	return &ModelScorer{model: model}
}

// ScoreModel calls the model once and validates the returned probability.
func (s *ModelScorer) ScoreModel(ctx context.Context, in ScoreInput) (float64, error) {
	if s == nil || s.model == nil {
		return 0, ErrModelUnavailable
	}
	p, err := s.model.PredictProbability(ctx, in.Features)
	if err != nil {
		return 0, fmt.Errorf("predict probability: %w", err)
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, fmt.Errorf("model returned probability %v outside [0,1]", p)
	}
	return p, nil
}

// FeatureOrder asks the model for its expected columns. It returns nil when the
// model is absent or cannot report them.
func (s *ModelScorer) FeatureOrder(ctx context.Context, condition ConditionType) ([]string, error) {
	if s == nil || s.model == nil {
		return nil, ErrFeatureNamesUnavailable
	}
	names, err := s.model.FeatureNames(ctx, condition)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, ErrFeatureNamesUnavailable
	}
	return names, nil
}
