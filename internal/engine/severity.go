package engine

import (
	"strings"
)

// SeverityCeiling is the severity score treated as maximal when normalizing.
const SeverityCeiling = 8.0

// SeverityScorer computes a rule-based clinical severity score.
type SeverityScorer interface {
	ScoreSeverity(record PatientRecord, condition ConditionType) float64
}

// RuleSeverity is the additive threshold rule table. It never consults the model.
type RuleSeverity struct{}

// NewRuleSeverity creates the rule-based severity scorer.
func NewRuleSeverity() *RuleSeverity {
	return &RuleSeverity{}
}

// ScoreSeverity returns the unbounded additive score. Fields that are missing or
// fail to parse skip their rule.
func (s *RuleSeverity) ScoreSeverity(record PatientRecord, condition ConditionType) float64 {
	return s.score(record, condition)
}

func (s *RuleSeverity) score(r PatientRecord, condition ConditionType) float64 {
	score := 0.0

	if age, ok := r.Number(FeatureAge); ok {
		switch {
		case age >= 75:
			score += 2
		case age >= 60:
			score += 1
		}
	}

	score += bloodPressurePoints(r[FeatureBloodPressure])

	if chol, ok := r.Number(FeatureCholesterol); ok {
		switch {
		case chol >= 260:
			score += 2
		case chol >= 220:
			score += 1
		}
	}

	if containsFold(r, FeatureInsulin, "high") {
		score += 1
	}
	if containsFold(r, FeatureDiabetics, "high") {
		score += 2
	}
	if v, ok := r.Number(FeatureUrineProtein); ok && v >= 30 {
		score += 1
	}
	if v, ok := r.Number(FeatureUrineGlucose); ok && v >= 20 {
		score += 1
	}
	if v, ok := r.Number(FeatureWBC); ok && v >= 11 {
		score += 1
	}
	if v, ok := r.Number(FeatureHemoglobin); ok && v < 10 {
		score += 1
	}

	if condition == HeartFailure {
		switch {
		case containsFold(r, FeatureECG, "abnormal"):
			score += 2
		case containsFold(r, FeatureECG, "borderline"):
			score += 1
		}
		if v, ok := r.Number(FeaturePulse); ok && v >= 100 {
			score += 1
		}
	}

	if v, ok := r.Number(FeatureAirQuality); ok && v >= 120 {
		score += 1
	}
	if v, ok := r.Number(FeatureSocialEvents); ok && v >= 3 {
		score += 0.5
	}
	return score
}

// bloodPressurePoints scores a "systolic/diastolic" reading; malformed readings score 0.
func bloodPressurePoints(v any) float64 {
	sys, dia, ok := ParseBloodPressure(v)
	if !ok {
		return 0
	}
	switch {
	case sys >= 160 || dia >= 100:
		return 2
	case sys >= 140 || dia >= 90:
		return 1
	}
	return 0
}

func containsFold(r PatientRecord, field, needle string) bool {
	v, ok := r[field]
	if !ok || v == nil {
		return false
	}
	return strings.Contains(strings.ToLower(stringify(v)), needle)
}

// NormalizeSeverity clamps score to [0, SeverityCeiling] and scales it to [0, 1].
func NormalizeSeverity(score float64) float64 {
	return clamp(score, 0, SeverityCeiling) / SeverityCeiling
}
