package engine

import "strings"

// Feature names as the model expects them.
const (
	FeatureAge           = "Age"
	FeatureSex           = "Sex"
	FeatureWeight        = "Weight"
	FeatureBloodPressure = "Blood Pressure"
	FeatureCholesterol   = "Cholesterol"
	FeatureInsulin       = "Insulin"
	FeaturePlatelets     = "Platelets"
	FeatureDiabetics     = "Diabetics"
	FeatureAirQuality    = "air_quality_index"
	FeatureSocialEvents  = "social_event_count"
	FeatureHemoglobin    = "Hemoglobin (g/dL)"
	FeatureWBC           = "WBC Count (10^9/L)"
	FeaturePlateletCount = "Platelet Count (10^9/L)"
	FeatureUrineProtein  = "Urine Protein (mg/dL)"
	FeatureUrineGlucose  = "Urine Glucose (mg/dL)"
	FeatureECG           = "ECG Result"
	FeaturePulse         = "Pulse Rate (bpm)"
)

var (
	CommonFeatures = []string{
		FeatureAge, FeatureSex, FeatureWeight, FeatureBloodPressure, FeatureCholesterol,
		FeatureInsulin, FeaturePlatelets, FeatureDiabetics, FeatureAirQuality, FeatureSocialEvents,
	}
	DiabetesFeatures = []string{
		FeatureHemoglobin, FeatureWBC, FeaturePlateletCount, FeatureUrineProtein, FeatureUrineGlucose,
	}
	HeartFailureFeatures = []string{
		FeatureECG, FeaturePulse,
	}
)

// DefaultSchema returns the engine's default column order: common features,
// then diabetes features, then heart failure features.
func DefaultSchema() []string {
	out := make([]string, 0, len(CommonFeatures)+len(DiabetesFeatures)+len(HeartFailureFeatures))
	out = append(out, CommonFeatures...)
	out = append(out, DiabetesFeatures...)
	out = append(out, HeartFailureFeatures...)
	return out
}

// NeutralBloodPressure is the encoded value of a normal 120/80 reading, used
// whenever the blood pressure field cannot be parsed.
const NeutralBloodPressure = 2.0

// Ordinal values for qualitative severity fields.
const (
	OrdinalLow      = 1
	OrdinalNormal   = 2
	OrdinalModerate = 3
	OrdinalHigh     = 4
)

var ordinalMap = map[string]int{
	"low":        OrdinalLow,
	"normal":     OrdinalNormal,
	"moderate":   OrdinalModerate,
	"high":       OrdinalHigh,
	"borderline": OrdinalModerate,
	"abnormal":   OrdinalHigh,
}

// EncodeOrdinal maps a qualitative string to 1-4. Unknown or missing values map to Normal.
func EncodeOrdinal(v any) float64 {
	if v == nil {
		return OrdinalNormal
	}
	if n, ok := ordinalMap[strings.ToLower(strings.TrimSpace(stringify(v)))]; ok {
		return float64(n)
	}
	return OrdinalNormal
}

// ParseBloodPressure splits a "systolic/diastolic" reading.
func ParseBloodPressure(v any) (systolic, diastolic float64, ok bool) {
	if v == nil {
		return 0, 0, false
	}
	parts := strings.Split(stringify(v), "/")
	if len(parts) != 2 {
		return 0, 0, false
	}
	s, sok := ParseFloat(parts[0])
	d, dok := ParseFloat(parts[1])
	if !sok || !dok {
		return 0, 0, false
	}
	return s, d, true
}

// EncodeBloodPressure returns systolic/120 + diastolic/80, or NeutralBloodPressure
// when the reading is malformed.
func EncodeBloodPressure(v any) float64 {
	s, d, ok := ParseBloodPressure(v)
	if !ok {
		return NeutralBloodPressure
	}
	return s/120.0 + d/80.0
}

// EncodeSex returns 1 for values starting with "f" (case-insensitive), else 0.
func EncodeSex(v any) float64 {
	if v == nil {
		return 0
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(stringify(v))), "f") {
		return 1
	}
	return 0
}

// FeatureVector is an ordered set of named numeric features.
type FeatureVector struct {
	Condition ConditionType `json:"condition"`
	Names     []string      `json:"names"`
	Values    []float64     `json:"values"`
}

// Get returns the value of the named feature.
func (fv FeatureVector) Get(name string) (float64, bool) {
	for i, n := range fv.Names {
		if n == name {
			return fv.Values[i], true
		}
	}
	return 0, false
}

// Map returns the vector as a name to value map.
func (fv FeatureVector) Map() map[string]float64 {
	out := make(map[string]float64, len(fv.Names))
	for i, n := range fv.Names {
		out[n] = fv.Values[i]
	}
	return out
}

// Len returns the vector width.
func (fv FeatureVector) Len() int {
	return len(fv.Values)
}

// Normalizer converts a PatientRecord into a model-ready FeatureVector.
type Normalizer struct{}

// NewNormalizer creates a Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize builds the feature vector for condition. When order is non-empty it
// is used as the column order (model-supplied schema); otherwise DefaultSchema.
// Columns that the engine does not know are filled with 0.
func (n *Normalizer) Normalize(record PatientRecord, condition ConditionType, order []string) FeatureVector {
	row := n.encode(record, condition)

	cols := order
	if len(cols) == 0 {
		cols = DefaultSchema()
	}

	fv := FeatureVector{
		Condition: condition,
		Names:     make([]string, len(cols)),
		Values:    make([]float64, len(cols)),
	}
	for i, col := range cols {
		fv.Names[i] = col
		fv.Values[i] = row[col]
	}
	return fv
}

// encode computes every known feature; features of the other condition are
// forced to 0 so the schema width never depends on the active condition.
func (n *Normalizer) encode(r PatientRecord, condition ConditionType) map[string]float64 {
	row := map[string]float64{
		FeatureAge:           r.Float(FeatureAge, 0),
		FeatureSex:           EncodeSex(valueOr(r, FeatureSex, "Male")),
		FeatureWeight:        r.Float(FeatureWeight, 0),
		FeatureBloodPressure: EncodeBloodPressure(valueOr(r, FeatureBloodPressure, "120/80")),
		FeatureCholesterol:   r.Float(FeatureCholesterol, 0),
		FeatureInsulin:       EncodeOrdinal(valueOr(r, FeatureInsulin, "Normal")),
		FeaturePlatelets:     r.Float(FeaturePlatelets, 0),
		FeatureDiabetics:     EncodeOrdinal(valueOr(r, FeatureDiabetics, "Normal")),
		FeatureAirQuality:    r.Float(FeatureAirQuality, 50),
		FeatureSocialEvents:  r.Float(FeatureSocialEvents, 0),
	}

	for _, f := range DiabetesFeatures {
		row[f] = 0
	}
	for _, f := range HeartFailureFeatures {
		row[f] = 0
	}

	switch condition {
	case Diabetes:
		row[FeatureHemoglobin] = r.Float(FeatureHemoglobin, 13.5)
		row[FeatureWBC] = r.Float(FeatureWBC, 7.0)
		row[FeaturePlateletCount] = r.Float(FeaturePlateletCount, 250)
		row[FeatureUrineProtein] = r.Float(FeatureUrineProtein, 10)
		row[FeatureUrineGlucose] = r.Float(FeatureUrineGlucose, 5)
	default:
		row[FeatureECG] = EncodeOrdinal(valueOr(r, FeatureECG, "Normal"))
		row[FeaturePulse] = r.Float(FeaturePulse, 72)
	}
	return row
}

func valueOr(r PatientRecord, field string, def any) any {
	if v, ok := r[field]; ok && v != nil {
		return v
	}
	return def
}
