package readmission

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/readmit/readmit/internal/domain/followup"
	"github.com/readmit/readmit/internal/engine"
	"github.com/readmit/readmit/internal/platform/metrics"
)

// Assessor scores a patient record.
type Assessor interface {
	Assess(ctx context.Context, record engine.PatientRecord) (engine.ReportData, error)
	SimulateCohort(labels []string) engine.CohortEstimate
}

// FollowupRecorder persists follow-ups derived from assessments.
type FollowupRecorder interface {
	Record(ctx context.Context, rep engine.ReportData) (*followup.Record, error)
}

type Service struct {
	engine    Assessor
	followups FollowupRecorder
	logger    zerolog.Logger
}

// NewService wires the engine to the follow-up store. followups may be nil,
// in which case predictions are not persisted.
func NewService(eng Assessor, followups FollowupRecorder, logger zerolog.Logger) *Service {
	return &Service{
		engine:    eng,
		followups: followups,
		logger:    logger.With().Str("component", "readmission").Logger(),
	}
}

// Assess runs the engine and records prediction metrics.
func (s *Service) Assess(ctx context.Context, record engine.PatientRecord) (engine.ReportData, error) {
	rep, err := s.engine.Assess(ctx, record)
	if err != nil {
		return engine.ReportData{}, err
	}
	metrics.RecordPrediction(string(rep.Condition), string(rep.RiskBand), string(rep.CalibrationMode))
	if rep.FallbackReason != "" {
		metrics.RecordModelFallback()
	}
	return rep, nil
}

// Predict assesses record and persists a follow-up. A storage failure does
// not fail the prediction; it is reported in StorageError.
func (s *Service) Predict(ctx context.Context, record engine.PatientRecord) (*Prediction, error) {
	rep, err := s.Assess(ctx, record)
	if err != nil {
		return nil, err
	}

	p := &Prediction{
		DiseaseType:            rep.ConditionLabel,
		PatientID:              rep.PatientID,
		ReadmissionProbability: rep.AdjustedRisk,
		Prediction:             rep.PredictionLabel,
		RiskLabel:              rep.RiskBand,
		FollowupPlan:           newPlanView(rep.Plan),
		Staffing:               rep.Staffing,
		CalibrationMode:        rep.CalibrationMode,
		SeverityScore:          rep.SeverityScore,
	}

	if s.followups != nil {
		rec, err := s.followups.Record(ctx, rep)
		if err != nil {
			s.logger.Warn().Err(err).Str("patient_id", rep.PatientID).Msg("prediction not persisted")
			p.StorageError = err.Error()
		} else {
			p.FollowupID = &rec.ID
		}
	}

	s.logger.Info().
		Str("patient_id", rep.PatientID).
		Str("condition", string(rep.Condition)).
		Float64("adjusted_risk", rep.AdjustedRisk).
		Str("band", string(rep.RiskBand)).
		Str("mode", string(rep.CalibrationMode)).
		Msg("prediction completed")
	return p, nil
}

// SimulateStaffing projects staffing for a single patient.
func (s *Service) SimulateStaffing(ctx context.Context, record engine.PatientRecord) (*StaffingResult, error) {
	rep, err := s.Assess(ctx, record)
	if err != nil {
		return nil, err
	}
	return &StaffingResult{
		SimulationDate: orNA(rep.SimulationDate),
		HospitalUnit:   orNA(rep.HospitalUnit),
		RiskScore:      rep.AdjustedRisk,
		Staffing:       rep.Staffing,
	}, nil
}

// SimulateCohort projects staffing for a cohort of risk-labeled patients.
func (s *Service) SimulateCohort(req CohortRequest) *CohortResult {
	labels := make([]string, len(req.Patients))
	for i, p := range req.Patients {
		labels[i] = p.RiskLevel
	}
	return &CohortResult{
		CohortEstimate: s.engine.SimulateCohort(labels),
		Message:        cohortMessage,
	}
}

func orNA(s string) string {
	if s == "" {
		return followup.NotAvailable
	}
	return s
}
