package engine

import "time"

// Score is the calibrated outcome of one assessment.
type Score struct {
	ModelProbability float64
	Mode             CalibrationMode
	AdjustedRisk     float64
	Band             RiskBand
}

// ReportData is a point-in-time snapshot of an assessment. Every consumer
// (API response, rendered report, persisted follow-up) reads from the same
// value instead of recomputing.
type ReportData struct {
	PatientID          string             `json:"patient_id"`
	PatientName        string             `json:"patient_name"`
	Condition          ConditionType      `json:"condition"`
	ConditionLabel     string             `json:"condition_label"`
	AdmissionDate      string             `json:"admission_date,omitempty"`
	DischargeDate      string             `json:"discharge_date,omitempty"`
	Features           map[string]float64 `json:"features"`
	FeatureOrder       []string           `json:"feature_order"`
	SeverityScore      float64            `json:"severity_score"`
	NormalizedSeverity float64            `json:"normalized_severity"`
	ModelProbability   float64            `json:"model_probability"`
	CalibrationMode    CalibrationMode    `json:"calibration_mode"`
	AdjustedRisk       float64            `json:"adjusted_risk"`
	RiskBand           RiskBand           `json:"risk_band"`
	Prediction         bool               `json:"prediction"`
	PredictionLabel    string             `json:"prediction_label"`
	Plan               FollowUpPlan       `json:"followup_plan"`
	Schedule           []string           `json:"schedule"`
	Staffing           StaffingEstimate   `json:"staffing"`
	SimulationDate     string             `json:"simulation_date"`
	HospitalUnit       string             `json:"hospital_unit"`
	GeneratedAt        time.Time          `json:"generated_at"`

	// FallbackReason is set when the heuristic replaced a failing model.
	FallbackReason string `json:"-"`
}

// Aggregator assembles ReportData. It performs no scoring of its own.
type Aggregator struct {
	now func() time.Time
}

// NewAggregator creates an Aggregator stamping snapshots with now.
func NewAggregator(now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{now: now}
}

// Aggregate builds the snapshot.
func (a *Aggregator) Aggregate(record PatientRecord, condition ConditionType, features FeatureVector,
	severity float64, score Score, plan FollowUpPlan, staffing StaffingEstimate) ReportData {
	order := make([]string, len(features.Names))
	copy(order, features.Names)

	return ReportData{
		PatientID:          record.Text(FieldPatientID, ""),
		PatientName:        record.Text(FieldPatientName, ""),
		Condition:          condition,
		ConditionLabel:     condition.Label(),
		AdmissionDate:      record.Text(FieldAdmissionDate, ""),
		DischargeDate:      record.Text(FieldDischargeDate, ""),
		Features:           features.Map(),
		FeatureOrder:       order,
		SeverityScore:      Round(severity, 2),
		NormalizedSeverity: Round(NormalizeSeverity(severity), 4),
		ModelProbability:   Round(score.ModelProbability, 4),
		CalibrationMode:    score.Mode,
		AdjustedRisk:       Round(score.AdjustedRisk, 4),
		RiskBand:           score.Band,
		Prediction:         Predicted(score.AdjustedRisk),
		PredictionLabel:    PredictionLabel(score.AdjustedRisk),
		Plan:               plan,
		Schedule:           plan.ScheduleLabels(),
		Staffing:           staffing,
		SimulationDate:     record.Text(FieldSimulationDate, ""),
		HospitalUnit:       record.Text(FieldHospitalUnit, ""),
		GeneratedAt:        a.now().UTC(),
	}
}
