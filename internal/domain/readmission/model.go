package readmission

import (
	"github.com/google/uuid"

	"github.com/readmit/readmit/internal/engine"
)

// PlanView is the follow-up plan as returned to API clients.
type PlanView struct {
	RiskBand  engine.RiskBand `json:"risk_band"`
	Channel   string          `json:"channel"`
	Schedule  []string        `json:"schedule"`
	Note      string          `json:"note"`
	Rationale string          `json:"rationale"`
}

func newPlanView(p engine.FollowUpPlan) PlanView {
	return PlanView{
		RiskBand:  p.RiskBand,
		Channel:   p.Channel,
		Schedule:  p.ScheduleLabels(),
		Note:      p.Note,
		Rationale: p.Rationale,
	}
}

// Prediction is the response of the predict endpoint.
type Prediction struct {
	DiseaseType            string                  `json:"disease_type"`
	PatientID              string                  `json:"patient_id,omitempty"`
	ReadmissionProbability float64                 `json:"readmission_probability"`
	Prediction             string                  `json:"prediction"`
	RiskLabel              engine.RiskBand         `json:"risk_label"`
	FollowupPlan           PlanView                `json:"followup_plan"`
	Staffing               engine.StaffingEstimate `json:"staffing"`
	CalibrationMode        engine.CalibrationMode  `json:"calibration_mode"`
	SeverityScore          float64                 `json:"severity_score"`
	FollowupID             *uuid.UUID              `json:"followup_id,omitempty"`
	StorageError           string                  `json:"storage_error,omitempty"`
}

// StaffingResult is the response of the single-patient staffing endpoint.
type StaffingResult struct {
	SimulationDate string                  `json:"simulation_date"`
	HospitalUnit   string                  `json:"hospital_unit"`
	RiskScore      float64                 `json:"risk_score"`
	Staffing       engine.StaffingEstimate `json:"staffing"`
}

// CohortPatient is one entry of a cohort simulation request.
type CohortPatient struct {
	RiskLevel string `json:"risk_level"`
}

// CohortRequest is the body of the cohort staffing endpoint.
type CohortRequest struct {
	Patients []CohortPatient `json:"patients"`
}

// CohortResult is the response of the cohort staffing endpoint.
type CohortResult struct {
	engine.CohortEstimate
	Message string `json:"message"`
}

const cohortMessage = "Staffing simulation based on current predicted risk mix."
