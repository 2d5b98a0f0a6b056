package followup

import (
	"time"

	"github.com/google/uuid"

	"github.com/readmit/readmit/internal/engine"
)

// Status is the lifecycle state of a follow-up.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
)

// NotAvailable fills text fields the intake form left empty.
const NotAvailable = "N/A"

// DateLayout is the calendar format of prediction dates.
const DateLayout = "2006-01-02"

// Record is one persisted follow-up, created per successful prediction.
type Record struct {
	ID             uuid.UUID  `json:"id"`
	PatientID      string     `json:"patient_id"`
	PatientName    string     `json:"patient_name"`
	Condition      string     `json:"condition"`
	AdjustedRisk   float64    `json:"adjusted_risk"`
	RiskBand       string     `json:"risk_band"`
	Channel        string     `json:"channel"`
	NextVisit      string     `json:"next_visit"`
	SimulationDate string     `json:"simulation_date"`
	HospitalUnit   string     `json:"hospital_unit"`
	PredictionDate time.Time  `json:"prediction_date"`
	Status         Status     `json:"status"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// IsActive reports whether the follow-up still needs action.
func (r *Record) IsActive() bool {
	return r.Status != StatusCompleted
}

func orNA(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}

// NewRecord derives a pending follow-up from an assessment snapshot.
func NewRecord(rep engine.ReportData, now time.Time) *Record {
	next := NotAvailable
	if o, ok := rep.Plan.NextVisit(); ok {
		next = o.Label
	}
	return &Record{
		ID:             uuid.New(),
		PatientID:      orNA(rep.PatientID),
		PatientName:    orNA(rep.PatientName),
		Condition:      rep.ConditionLabel,
		AdjustedRisk:   rep.AdjustedRisk,
		RiskBand:       string(rep.RiskBand),
		Channel:        rep.Plan.Channel,
		NextVisit:      next,
		SimulationDate: orNA(rep.SimulationDate),
		HospitalUnit:   orNA(rep.HospitalUnit),
		PredictionDate: truncateDay(now),
		Status:         StatusPending,
		CreatedAt:      now.UTC(),
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
