package engine

import (
	"math"
	"strings"
)

// Blend weights and decision thresholds. The rule-based severity is weighted
// above the model output.
const (
	ModelWeight    = 0.4
	SeverityWeight = 0.6

	MediumThreshold     = 0.40
	HighThreshold       = 0.70
	PredictionThreshold = 0.5
)

// RiskBand is the discrete classification of an adjusted risk.
type RiskBand string

const (
	BandLow    RiskBand = "Low"
	BandMedium RiskBand = "Medium"
	BandHigh   RiskBand = "High"
)

// ParseRiskBand maps a label to a band, ignoring case; unknown labels are
// reported as not ok.
func ParseRiskBand(s string) (RiskBand, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return BandLow, true
	case "medium":
		return BandMedium, true
	case "high":
		return BandHigh, true
	}
	return "", false
}

// CalibrationMode records where the probability fed into the blend came from.
type CalibrationMode string

const (
	ModeModel     CalibrationMode = "model"
	ModeHeuristic CalibrationMode = "heuristic"
)

// Calibrator blends a probability with a severity score and classifies the result.
type Calibrator struct {
	ModelWeight    float64
	SeverityWeight float64
}

// NewCalibrator returns a Calibrator using the default blend weights.
func NewCalibrator() *Calibrator {
	return &Calibrator{ModelWeight: ModelWeight, SeverityWeight: SeverityWeight}
}

// Calibrate returns clamp(wm*p + ws*normalize(severity), 0, 1).
func (c *Calibrator) Calibrate(modelProbability, severityScore float64) float64 {
	if math.IsNaN(modelProbability) {
		modelProbability = 0
	}
	if math.IsNaN(severityScore) {
		severityScore = 0
	}
	adjusted := c.ModelWeight*modelProbability + c.SeverityWeight*NormalizeSeverity(severityScore)
	return clamp(adjusted, 0, 1)
}

// Classify maps an adjusted risk to its band.
func Classify(adjusted float64) RiskBand {
	switch {
	case adjusted >= HighThreshold:
		return BandHigh
	case adjusted >= MediumThreshold:
		return BandMedium
	default:
		return BandLow
	}
}

// Predicted reports the binary readmission prediction for an adjusted risk.
func Predicted(adjusted float64) bool {
	return adjusted >= PredictionThreshold
}

// PredictionLabel renders Predicted as "Yes" or "No".
func PredictionLabel(adjusted float64) string {
	if Predicted(adjusted) {
		return "Yes"
	}
	return "No"
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
